package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/analysis"
	"github.com/dvloznov/statement-analyzer/internal/api/handlers"
	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/oracle"
	"github.com/dvloznov/statement-analyzer/internal/reconcile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Parse command-line flags
	var (
		port  = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		model = flag.String("model", cfg.GeminiModel, "Gemini model used for extraction (or set GEMINI_MODEL env)")
	)
	flag.Parse()

	// Initialize logger
	log, levelOK := logger.NewWithOptions(os.Stdout, logger.Format(cfg.LogFormat), cfg.LogLevel)
	if !levelOK {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, using info")
	}
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}

	ctx := context.Background()

	extractor, err := oracle.NewGeminiOracle(ctx, oracle.GeminiConfig{
		APIKey:     cfg.GeminiAPIKey,
		Model:      *model,
		APIVersion: cfg.GeminiAPIVersion,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create extraction oracle")
	}

	reconciler := reconcile.New(cfg.ReconcilePolicy())
	analyzer := analysis.NewAnalyzer(extractor, reconciler, cfg.OracleTimeout)

	// Initialize handlers
	statementsHandler := handlers.NewStatementsHandler(analyzer, cfg.MaxUploadBytes, log)

	// Create router
	mux := http.NewServeMux()

	analyze := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.AnalyzeStatement(w, r)
		} else {
			middleware.WriteErrorCode(w, http.StatusMethodNotAllowed, middleware.CodeMethodNotAllowed, "Method not allowed")
		}
	}
	mux.HandleFunc("/api/analyze", analyze)
	mux.HandleFunc("/api/parse-statement", analyze)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"model":  *model,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)

	// The write deadline has to outlive the oracle call.
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.OracleTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("port", *port).
			Str("model", *model).
			Dur("oracle_timeout", cfg.OracleTimeout).
			Int64("max_upload_bytes", cfg.MaxUploadBytes).
			Msg("Starting statement analyzer")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
