package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"pdfhistory/internal/domain"
	"pdfhistory/internal/repository"
	"pdfhistory/internal/service/s3"
)

const versionKeyPrefix = "pdf_versions" // pdf_versions/{root}/{id}

// HistoryService связывает метаданные ревизий, их содержимое в S3
// и кеш обработанных файлов
type HistoryService struct {
	repo    *repository.FileVersionRepository
	storage s3.Storage
	cache   *ProcessingCache
	now     func() time.Time
}

func NewHistoryService(
	repo *repository.FileVersionRepository,
	storage s3.Storage,
	cache *ProcessingCache,
) *HistoryService {
	return &HistoryService{
		repo:    repo,
		storage: storage,
		cache:   cache,
		now:     time.Now,
	}
}

func versionKey(rootID, id string) string {
	return fmt.Sprintf("%s/%s/%s", versionKeyPrefix, rootID, id)
}

// RegisterUpload сохраняет новый корневой файл или ревизию от ParentID
func (s *HistoryService) RegisterUpload(ctx context.Context, in domain.UploadInput) (*domain.FileVersionRecord, error) {
	if len(in.Data) == 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "file content is empty")
	}

	mimeType := in.MIMEType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType, _, _ = strings.Cut(mimetype.Detect(in.Data).String(), ";")
	}
	size := int64(len(in.Data))
	now := s.now().UTC()

	var record domain.FileVersionRecord
	if in.ParentID != "" {
		parent, err := s.repo.GetByID(ctx, in.ParentID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get parent version")
		}
		name := in.Name
		if name == "" {
			name = parent.Name
		}
		record = domain.DeriveVersion(*parent, name, size, in.Tool, now)
		record.MIMEType = mimeType
	} else {
		if in.Name == "" {
			return nil, errors.Wrap(domain.ErrInvalidInput, "file name is required")
		}
		record = domain.NewRootVersion(in.Name, mimeType, size, now)
	}
	record.S3Key = versionKey(record.RootID(), record.ID)

	if err := s.storage.UploadBytes(ctx, record.S3Key, mimeType, in.Data); err != nil {
		return nil, errors.Wrap(err, "failed to upload file version")
	}

	if err := s.repo.Create(ctx, &record); err != nil {
		if delErr := s.storage.DeleteObject(ctx, record.S3Key); delErr != nil {
			log.Warn().Err(delErr).
				Str("component", "history").
				Str("key", record.S3Key).
				Msg("failed to clean up uploaded object")
		}
		return nil, err
	}

	log.Info().
		Str("component", "history").
		Str("file_id", record.ID).
		Str("original_id", record.RootID()).
		Int("version", record.VersionNumber).
		Msg("registered file version")

	return &record, nil
}

func (s *HistoryService) GetVersion(ctx context.Context, id string) (*domain.FileVersionRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// LoadFile читает содержимое ревизии из S3
func (s *HistoryService) LoadFile(ctx context.Context, id string) ([]byte, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	obj, err := s.storage.GetObject(ctx, record.S3Key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load content of %s", id)
	}
	defer obj.Close()

	buf := bytes.NewBuffer(make([]byte, 0, max(obj.ContentLength(), 0)))
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, errors.Wrapf(err, "failed to read content of %s", id)
	}
	return buf.Bytes(), nil
}

func (s *HistoryService) UpdateThumbnail(ctx context.Context, id, thumbnail string) error {
	return s.repo.UpdateThumbnail(ctx, id, thumbnail)
}

func (s *HistoryService) snapshot(ctx context.Context) (*LineageIndex, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return NewLineageIndex(records), nil
}

// Branches возвращает ветки, сгруппированные по id листа
func (s *HistoryService) Branches(ctx context.Context) (map[string][]domain.FileVersionRecord, error) {
	idx, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return idx.GroupByBranch(), nil
}

// LatestVersions возвращает последние ревизии каждой ветки, новые первыми
func (s *HistoryService) LatestVersions(ctx context.Context) ([]domain.FileVersionRecord, error) {
	idx, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return idx.Leaves(), nil
}

// History возвращает цепочку от ревизии id до оригинала
func (s *HistoryService) History(ctx context.Context, id string) ([]domain.FileVersionRecord, error) {
	idx, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	lineage := idx.Lineage(id)
	if lineage == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "file version %s", id)
	}
	return lineage, nil
}

func (s *HistoryService) Groups(ctx context.Context) ([]HistoryGroup, error) {
	idx, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return idx.GroupByOriginal(), nil
}

// processedKey: id различает ревизии с одинаковым именем, размером и временем
func processedKey(record *domain.FileVersionRecord) string {
	return record.ID + "/" + CacheKey(record.Name, record.Size, record.CreatedAt)
}

// CacheProcessed кладет результат обработки ревизии в кеш
func (s *HistoryService) CacheProcessed(ctx context.Context, id string, processed *domain.ProcessedFile) error {
	if processed == nil {
		return errors.Wrap(domain.ErrInvalidInput, "processed file is required")
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if processed.ID == "" {
		processed.ID = record.ID
	}
	s.cache.Set(processedKey(record), processed)
	return nil
}

func (s *HistoryService) Processed(ctx context.Context, id string) (*domain.ProcessedFile, bool, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	processed, ok := s.cache.Get(processedKey(record))
	return processed, ok, nil
}

func (s *HistoryService) CacheStats() domain.CacheStats {
	return s.cache.Stats()
}

func (s *HistoryService) ClearCache() {
	s.cache.Clear()
}

// DeleteVersion удаляет ревизию, ее содержимое и запись в кеше.
// Потомки остаются и теряют ссылку на родителя.
func (s *HistoryService) DeleteVersion(ctx context.Context, id string) error {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.storage.DeleteObject(ctx, record.S3Key); err != nil {
		log.Warn().Err(err).
			Str("component", "history").
			Str("key", record.S3Key).
			Msg("failed to delete file content")
	}
	s.cache.Delete(processedKey(record))

	log.Info().
		Str("component", "history").
		Str("file_id", id).
		Msg("deleted file version")
	return nil
}
