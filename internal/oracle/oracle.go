// Package oracle turns PDF bytes into a structured statement by delegating
// to an external document-understanding model.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// ExtractionOracle extracts a statement record from a PDF document.
// Implementations return an *ExtractionError for every failure they can
// classify.
type ExtractionOracle interface {
	Extract(ctx context.Context, pdf []byte) (*domain.StatementRecord, error)
}

// ErrorCode names the two failure categories an oracle can report.
type ErrorCode string

const (
	// CodeDocumentTypeMismatch means the document is not a bank statement.
	// The user can fix it by uploading a different file.
	CodeDocumentTypeMismatch ErrorCode = "document_type_mismatch"

	// CodeExtractionFailure means the model call or its output was unusable.
	CodeExtractionFailure ErrorCode = "extraction_failure"
)

var (
	// ErrDocumentTypeMismatch matches any *ExtractionError with CodeDocumentTypeMismatch.
	ErrDocumentTypeMismatch = errors.New("document is not a bank statement")

	// ErrExtractionFailed matches any *ExtractionError with CodeExtractionFailure.
	ErrExtractionFailed = errors.New("statement extraction failed")
)

// ExtractionError is the typed failure returned by oracles.
// Message is safe to show to the user; Err carries internal detail.
type ExtractionError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the category sentinels.
func (e *ExtractionError) Is(target error) bool {
	switch target {
	case ErrDocumentTypeMismatch:
		return e.Code == CodeDocumentTypeMismatch
	case ErrExtractionFailed:
		return e.Code == CodeExtractionFailure
	}
	return false
}

// DocumentTypeMismatch builds a CodeDocumentTypeMismatch error.
func DocumentTypeMismatch(message string) *ExtractionError {
	return &ExtractionError{Code: CodeDocumentTypeMismatch, Message: message}
}

// ExtractionFailure builds a CodeExtractionFailure error wrapping err.
func ExtractionFailure(message string, err error) *ExtractionError {
	return &ExtractionError{Code: CodeExtractionFailure, Message: message, Err: err}
}
