package storage

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

type Service struct {
	store    Store
	archiver Archiver
	keep     bool
	log      *zap.SugaredLogger
}

// NewService — archiver может быть nil (архив в S3 выключен).
func NewService(store Store, archiver Archiver, keep bool, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		store:    store,
		archiver: archiver,
		keep:     keep,
		log:      log,
	}
}

func (s *Service) Save(ctx context.Context, r io.Reader, originalName, contentType string) (*Asset, error) {
	asset, err := s.store.Save(ctx, r, originalName, contentType)
	if err != nil {
		return nil, fmt.Errorf("save upload %q: %w", originalName, err)
	}
	return asset, nil
}

func (s *Service) Open(asset *Asset) (io.ReadCloser, error) {
	return s.store.Open(asset)
}

// Finish — архивирует файл (если есть archiver) и удаляет локальную копию,
// если файлы не хранятся. При ошибке архивации файл остаётся на диске.
func (s *Service) Finish(ctx context.Context, asset *Asset) (archiveURL string, err error) {
	if s.archiver != nil {
		archiveURL, err = s.archiver.Archive(ctx, asset)
		if err != nil {
			return "", fmt.Errorf("archive %s: %w", asset.Path, err)
		}
		s.log.Debugw("asset archived", "path", asset.Path, "url", archiveURL)
	}

	if !s.keep {
		if rmErr := s.store.Remove(asset); rmErr != nil {
			return archiveURL, fmt.Errorf("remove %s: %w", asset.Path, rmErr)
		}
	}
	return archiveURL, nil
}
