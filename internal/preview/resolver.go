package preview

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"pdfhistory/internal/domain"
)

// DefaultLargeFileThreshold файлы от этого размера не рендерятся
const DefaultLargeFileThreshold int64 = 100 * 1024 * 1024

// FileStore долговременное хранилище содержимого ревизий
type FileStore interface {
	LoadFile(ctx context.Context, id string) ([]byte, error)
	UpdateThumbnail(ctx context.Context, id, thumbnail string) error
}

type Generator interface {
	Generate(ctx context.Context, data []byte) (string, error)
}

type ResolverOption func(*Resolver)

func WithLargeFileThreshold(threshold int64) ResolverOption {
	return func(r *Resolver) {
		if threshold > 0 {
			r.largeFileThreshold = threshold
		}
	}
}

// Resolver находит превью ревизии. Одновременно генерируется не больше
// одного превью, повторные запросы того же id ждут уже идущую генерацию.
type Resolver struct {
	files              FileStore
	generator          Generator
	largeFileThreshold int64

	inflight singleflight.Group
	slot     chan struct{}
}

func NewResolver(files FileStore, generator Generator, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		files:              files,
		generator:          generator,
		largeFileThreshold: DefaultLargeFileThreshold,
		slot:               make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve возвращает превью или false. Отмена ctx дает false сразу,
// а начатая генерация доводится до конца и сохраняется в хранилище.
func (r *Resolver) Resolve(ctx context.Context, record *domain.FileVersionRecord) (string, bool) {
	if record == nil {
		return "", false
	}
	if record.ThumbnailURL != "" {
		return record.ThumbnailURL, true
	}
	if record.Size >= r.largeFileThreshold {
		log.Debug().
			Str("component", "thumbnail_resolver").
			Str("file_id", record.ID).
			Str("size", humanize.IBytes(uint64(record.Size))).
			Msg("file too large for thumbnail generation")
		return "", false
	}
	if ctx.Err() != nil {
		return "", false
	}

	id := record.ID
	ch := r.inflight.DoChan(id, func() (any, error) {
		return r.generate(context.WithoutCancel(ctx), id)
	})

	select {
	case <-ctx.Done():
		return "", false
	case res := <-ch:
		if res.Err != nil || ctx.Err() != nil {
			return "", false
		}
		return res.Val.(string), true
	}
}

func (r *Resolver) generate(ctx context.Context, id string) (string, error) {
	r.slot <- struct{}{}
	defer func() { <-r.slot }()

	logger := log.With().
		Str("component", "thumbnail_resolver").
		Str("file_id", id).
		Logger()

	data, err := r.files.LoadFile(ctx, id)
	if err == nil && len(data) == 0 {
		err = errors.New("file content is empty")
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load file for thumbnail")
		return "", err
	}

	thumbnail, err := r.generator.Generate(ctx, data)
	if err == nil && thumbnail == "" {
		err = errors.New("generator returned empty thumbnail")
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed to generate thumbnail")
		return "", err
	}

	if err := r.files.UpdateThumbnail(ctx, id, thumbnail); err != nil {
		logger.Warn().Err(err).Msg("failed to persist thumbnail")
	}

	return thumbnail, nil
}
