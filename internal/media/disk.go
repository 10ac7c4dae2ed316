package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Disk writes uploads into a directory served under URLPrefix.
type Disk struct {
	dir       string
	urlPrefix string
	maxBytes  int64
}

func NewDisk(dir, urlPrefix string, maxBytes int64) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Disk{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/"), maxBytes: maxBytes}, nil
}

// Dir is the directory files are written to.
func (d *Disk) Dir() string { return d.dir }

func (d *Disk) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	obj, err := Prepare(name, r, d.maxBytes)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(d.dir, obj.Key)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, obj.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", obj.Key, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", obj.Key, err)
	}
	return d.urlPrefix + "/" + obj.Key, nil
}
