package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/analysis"
	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/oracle"
	"github.com/dvloznov/statement-analyzer/internal/reconcile"
	"github.com/dvloznov/statement-analyzer/internal/source"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	var (
		location string
		model    string
		timeout  time.Duration
		pretty   bool
	)
	flag.StringVar(&location, "file", "", "Path to a PDF statement or gs://bucket/object (required)")
	flag.StringVar(&model, "model", cfg.GeminiModel, "Gemini model used for extraction")
	flag.DurationVar(&timeout, "timeout", cfg.OracleTimeout, "Maximum time to wait for the model")
	flag.BoolVar(&pretty, "pretty", true, "Indent JSON output")
	flag.Parse()

	// Logs go to stderr so stdout stays valid JSON.
	log, _ := logger.NewWithOptions(os.Stderr, logger.Format(cfg.LogFormat), cfg.LogLevel)

	if location == "" {
		log.Error().Msg("Usage: analyze -file /path/to/statement.pdf | gs://bucket/statement.pdf")
		return errors.New("missing -file")
	}

	ctx := logger.WithContext(context.Background(), log)

	loader := source.NewLoader(cfg.MaxUploadBytes, cfg.GCSCredentialsFile)
	pdf, err := loader.Load(ctx, location)
	if err != nil {
		log.Error().Err(err).Str("file", location).Msg("Failed to load statement")
		return err
	}

	extractor, err := oracle.NewGeminiOracle(ctx, oracle.GeminiConfig{
		APIKey:     cfg.GeminiAPIKey,
		Model:      model,
		APIVersion: cfg.GeminiAPIVersion,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create extraction oracle")
		return err
	}

	log.Info().
		Str("file", source.FilenameFromLocation(location)).
		Int("bytes", len(pdf)).
		Str("model", model).
		Msg("Analyzing statement")

	analyzer := analysis.NewAnalyzer(extractor, reconcile.New(cfg.ReconcilePolicy()), timeout)
	record, err := analyzer.Analyze(ctx, pdf)
	if err != nil {
		printJSON(pretty, errorBody(err))
		return err
	}

	return printJSON(pretty, record)
}

func errorBody(err error) middleware.ErrorResponse {
	var extErr *oracle.ExtractionError
	if errors.As(err, &extErr) {
		return middleware.ErrorResponse{Error: extErr.Message, Code: string(extErr.Code)}
	}
	return middleware.ErrorResponse{Error: err.Error(), Code: middleware.CodeInternal}
}

func printJSON(pretty bool, v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
