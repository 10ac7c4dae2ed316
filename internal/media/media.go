// Package media stores images uploaded through the admin dashboard.
package media

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrTooLarge        = errors.New("media: file too large")
	ErrUnsupportedType = errors.New("media: unsupported file type")
)

// Storage persists an upload and returns the URL it is served from.
type Storage interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}

// Object is an upload that passed the checks.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

var allowed = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
	"image/x-icon":  true,
}

// Prepare reads at most maxBytes from r, sniffs the content type and picks a
// unique object key that keeps the detected extension.
func Prepare(name string, r io.Reader, maxBytes int64) (*Object, error) {
	var buf bytes.Buffer
	reader := r
	if maxBytes > 0 {
		reader = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(&buf, reader)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if maxBytes > 0 && n > maxBytes {
		return nil, ErrTooLarge
	}

	mt := mimetype.Detect(buf.Bytes())
	contentType := mt.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !allowed[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	return &Object{
		Key:         objectKey(name, mt.Extension()),
		ContentType: contentType,
		Data:        buf.Bytes(),
	}, nil
}

func objectKey(name, ext string) string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)

	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(name, "\\", "/")), path.Ext(name))
	var clean strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			clean.WriteRune(r)
		case r == ' ' || r == '.':
			clean.WriteByte('-')
		}
	}
	stem := strings.Trim(clean.String(), "-")
	if stem == "" {
		stem = "upload"
	}
	return stem + "-" + hex.EncodeToString(b) + ext
}
