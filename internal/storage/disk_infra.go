package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"
)

const DefaultUploadDir = "uploads"

type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		dir = DefaultUploadDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (d *DiskStore) Dir() string { return d.dir }

// FileName — <unix-millis>-<xid><ext>, расширение берётся из исходного имени.
func (d *DiskStore) FileName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), xid.New().String(), ext)
}

func (d *DiskStore) Save(ctx context.Context, r io.Reader, originalName, contentType string) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(d.dir, d.FileName(originalName))
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &Asset{
		Path:         path,
		OriginalName: originalName,
		Size:         n,
		ContentType:  contentType,
	}, nil
}

func (d *DiskStore) Open(asset *Asset) (io.ReadCloser, error) {
	f, err := os.Open(asset.Path)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return f, nil
}

func (d *DiskStore) Remove(asset *Asset) error {
	if err := os.Remove(asset.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
