// Package source loads statement PDFs for offline analysis, either from the
// local filesystem or from a Google Cloud Storage object.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ErrTooLarge is returned when a statement exceeds the loader's size limit.
var ErrTooLarge = errors.New("statement exceeds size limit")

// Loader reads statement bytes from a path or a gs:// URI. Reads are capped
// at MaxBytes.
type Loader struct {
	// MaxBytes caps how much is read from any location.
	MaxBytes int64

	// CredentialsFile is an optional service account key for GCS reads.
	CredentialsFile string

	// openObject is replaced in tests.
	openObject func(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// NewLoader creates a Loader with the given size limit.
func NewLoader(maxBytes int64, credentialsFile string) *Loader {
	l := &Loader{MaxBytes: maxBytes, CredentialsFile: credentialsFile}
	l.openObject = l.openGCSObject
	return l
}

// Load returns the bytes at location.
func (l *Loader) Load(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "gs://") {
		bucket, object, err := ParseGCSURI(location)
		if err != nil {
			return nil, err
		}
		rc, err := l.openObject(ctx, bucket, object)
		if err != nil {
			return nil, fmt.Errorf("Load: reading object %s/%s: %w", bucket, object, err)
		}
		defer rc.Close()
		return l.readLimited(rc, location)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("Load: open file %q: %w", location, err)
	}
	defer f.Close()
	return l.readLimited(f, location)
}

func (l *Loader) readLimited(r io.Reader, location string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("Load: reading %s: %w", location, err)
	}
	if int64(len(data)) > l.MaxBytes {
		return nil, fmt.Errorf("Load: %s: %w (%d bytes)", location, ErrTooLarge, l.MaxBytes)
	}
	return data, nil
}

// openGCSObject opens a reader on a GCS object. The client is closed along
// with the reader.
func (l *Loader) openGCSObject(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	var opts []option.ClientOption
	if l.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(l.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &clientReader{Reader: rc, client: client}, nil
}

type clientReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *clientReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}

// ParseGCSURI splits "gs://bucket/path/to/file.pdf" into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromLocation extracts the filename from a path or GCS URI.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func FilenameFromLocation(location string) string {
	if strings.HasPrefix(location, "gs://") {
		trimmed := strings.TrimPrefix(location, "gs://")
		parts := strings.SplitN(trimmed, "/", 2)
		if len(parts) < 2 {
			return trimmed
		}
		return path.Base(parts[1])
	}
	return filepath.Base(location)
}
