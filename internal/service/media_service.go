package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/repository/postgres"
)

const (
	mediaPrefix    = "/api/v1/media/"
	snapshotPrefix = "/api/snapshot/"
)

type MediaStore interface {
	FindByPath(ctx context.Context, path string) (*models.MediaLocation, error)
	FindByPathSuffix(ctx context.Context, suffix string) (*models.MediaLocation, error)
}

// Presigner is satisfied by *client.S3Presigner.
type Presigner interface {
	Presign(ctx context.Context, location string) (string, error)
}

// MediaService resolves legacy media paths to stored snapshot URLs.
type MediaService struct {
	store     MediaStore
	presigner Presigner
	logger    *zap.Logger
}

// NewMediaService accepts a nil presigner; s3:// targets are then returned as stored.
func NewMediaService(store MediaStore, presigner Presigner, logger *zap.Logger) *MediaService {
	return &MediaService{store: store, presigner: presigner, logger: logger}
}

// Resolve tries an exact path match, then the suffix after the legacy
// prefix, then the bare filename. It returns ErrNotFound when all miss.
func (s *MediaService) Resolve(ctx context.Context, requestPath string) (string, error) {
	loc, err := s.lookup(ctx, requestPath)
	if err != nil {
		return "", err
	}
	target := loc.Target()
	if target == "" {
		return "", fmt.Errorf("media %s: %w", requestPath, ErrNotFound)
	}
	if strings.HasPrefix(target, "s3://") && s.presigner != nil {
		signed, err := s.presigner.Presign(ctx, target)
		if err != nil {
			return "", fmt.Errorf("presign media: %w", err)
		}
		return signed, nil
	}
	return target, nil
}

func (s *MediaService) lookup(ctx context.Context, requestPath string) (*models.MediaLocation, error) {
	loc, err := s.store.FindByPath(ctx, requestPath)
	if !errors.Is(err, postgres.ErrNotFound) {
		return loc, err
	}

	loc, err = s.store.FindByPathSuffix(ctx, mediaSuffix(requestPath))
	if !errors.Is(err, postgres.ErrNotFound) {
		return loc, err
	}

	if name := path.Base(requestPath); name != "" && name != "/" && name != "." {
		loc, err = s.store.FindByPathSuffix(ctx, name)
		if !errors.Is(err, postgres.ErrNotFound) {
			return loc, err
		}
	}
	s.logger.Debug("Media not found", zap.String("path", requestPath))
	return nil, fmt.Errorf("media %s: %w", requestPath, ErrNotFound)
}

func mediaSuffix(p string) string {
	switch {
	case strings.HasPrefix(p, mediaPrefix):
		return strings.TrimPrefix(p, mediaPrefix)
	case strings.HasPrefix(p, snapshotPrefix):
		return "snapshot/" + strings.TrimPrefix(p, snapshotPrefix)
	}
	return p
}
