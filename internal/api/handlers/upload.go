package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	// fileField is the multipart field carrying the PDF.
	fileField = "file"

	// multipartOverhead is the allowance for boundaries and other form fields
	// on top of the file size limit.
	multipartOverhead = 1 << 20
)

// UploadError is a client-correctable problem with the upload.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	return e.Message
}

// Upload is a validated PDF held in memory.
type Upload struct {
	Filename string
	Data     []byte
}

// readUpload streams the multipart body, keeps the first "file" part in
// memory and validates it. Nothing is written to disk.
func (h *StatementsHandler) readUpload(w http.ResponseWriter, r *http.Request) (*Upload, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return nil, &UploadError{Message: "Request must be multipart/form-data"}
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	reader, err := r.MultipartReader()
	if err != nil {
		return nil, &UploadError{Message: "Invalid multipart request"}
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, &UploadError{Message: "No file uploaded. Use form field 'file'."}
		}
		if err != nil {
			if isTooLarge(err) {
				return nil, h.tooLarge()
			}
			return nil, &UploadError{Message: "Invalid multipart request"}
		}

		if part.FormName() != fileField {
			part.Close()
			continue
		}
		defer part.Close()

		if err := validateDeclaredType(part.Header.Get("Content-Type")); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(part, h.maxUploadBytes+1))
		if err != nil {
			if isTooLarge(err) {
				return nil, h.tooLarge()
			}
			return nil, fmt.Errorf("readUpload: reading file part: %w", err)
		}
		if n > h.maxUploadBytes {
			return nil, h.tooLarge()
		}
		if n == 0 {
			return nil, &UploadError{Message: "Uploaded file is empty"}
		}

		data := buf.Bytes()
		if err := validatePDFContent(data); err != nil {
			return nil, err
		}

		filename := filepath.Base(part.FileName())
		if filename == "." || filename == string(filepath.Separator) {
			filename = "document.pdf"
		}
		return &Upload{Filename: filename, Data: data}, nil
	}
}

func (h *StatementsHandler) tooLarge() *UploadError {
	return &UploadError{Message: fmt.Sprintf("File exceeds the maximum size of %d MB", h.maxUploadBytes>>20)}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// validateDeclaredType checks the content type the client declared for the part.
func validateDeclaredType(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || strings.ToLower(mediaType) != "application/pdf" {
		return &UploadError{Message: "Only PDF files are supported"}
	}
	return nil
}

// validatePDFContent checks the file signature so a renamed file is caught
// before it reaches the model.
func validatePDFContent(data []byte) error {
	sniffLen := len(data)
	if sniffLen > 512 {
		sniffLen = 512
	}
	detected := strings.ToLower(strings.Split(http.DetectContentType(data[:sniffLen]), ";")[0])
	if detected != "application/pdf" {
		return &UploadError{Message: "File content is not a PDF document"}
	}
	return nil
}
