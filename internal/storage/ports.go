package storage

import (
	"context"
	"io"
)

// Asset — загруженный файл, лежащий на диске на время запроса.
type Asset struct {
	Path         string
	OriginalName string
	Size         int64
	ContentType  string
}

type Store interface {
	Save(ctx context.Context, r io.Reader, originalName, contentType string) (*Asset, error)
	Open(asset *Asset) (io.ReadCloser, error)
	Remove(asset *Asset) error
}

// Archiver копирует файл во внешнее хранилище и возвращает публичный URL.
type Archiver interface {
	Archive(ctx context.Context, asset *Asset) (string, error)
}
