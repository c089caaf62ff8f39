package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/oracle"
	"github.com/rs/zerolog"
)

// StatementAnalyzer extracts and reconciles one PDF statement.
type StatementAnalyzer interface {
	Analyze(ctx context.Context, pdf []byte) (*domain.StatementRecord, error)
}

// StatementsHandler handles statement upload endpoints.
type StatementsHandler struct {
	analyzer       StatementAnalyzer
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(analyzer StatementAnalyzer, maxUploadBytes int64, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		analyzer:       analyzer,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// AnalyzeStatement handles POST /api/analyze
func (h *StatementsHandler) AnalyzeStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.requestLogger(ctx)

	upload, err := h.readUpload(w, r)
	if err != nil {
		var uploadErr *UploadError
		if errors.As(err, &uploadErr) {
			log.Info().Str("reason", uploadErr.Message).Msg("Upload rejected")
			middleware.WriteErrorCode(w, http.StatusBadRequest, middleware.CodeInvalidUpload, uploadErr.Message)
			return
		}
		log.Error().Err(err).Msg("Failed to read upload")
		middleware.WriteErrorCode(w, http.StatusInternalServerError, middleware.CodeInternal, "Failed to read the uploaded file")
		return
	}

	log = logger.WithFields(log, map[string]interface{}{
		"filename": upload.Filename,
		"bytes":    len(upload.Data),
	})
	log.Info().Msg("Statement received")

	record, err := h.analyzer.Analyze(logger.WithContext(ctx, log), upload.Data)
	if err != nil {
		writeAnalysisError(w, log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, record)
}

// requestLogger prefers the request-scoped logger set by middleware.
func (h *StatementsHandler) requestLogger(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(logger.LoggerKey).(zerolog.Logger); ok {
		return l
	}
	return h.log
}

// writeAnalysisError maps a failed analysis onto the two user-facing
// categories: a wrong document (400) or a processing failure (500).
func writeAnalysisError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var extErr *oracle.ExtractionError
	if errors.As(err, &extErr) {
		switch extErr.Code {
		case oracle.CodeDocumentTypeMismatch:
			log.Info().Str("reason", extErr.Message).Msg("Document is not a bank statement")
			middleware.WriteErrorCode(w, http.StatusBadRequest, middleware.CodeDocumentTypeMismatch, extErr.Message)
			return
		case oracle.CodeExtractionFailure:
			log.Error().Err(err).Msg("Statement extraction failed")
			middleware.WriteErrorCode(w, http.StatusInternalServerError, middleware.CodeExtractionFailure,
				"Failed to process the statement: "+extErr.Message)
			return
		}
	}

	log.Error().Err(err).Msg("Unexpected error while analyzing statement")
	middleware.WriteErrorCode(w, http.StatusInternalServerError, middleware.CodeInternal,
		"An unexpected error occurred while processing the statement")
}
