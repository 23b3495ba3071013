package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"pdfhistory/internal/domain"
)

type fileVersionRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	MIMEType       string         `db:"mime_type"`
	SizeBytes      int64          `db:"size_bytes"`
	Thumbnail      sql.NullString `db:"thumbnail"`
	ParentFileID   sql.NullString `db:"parent_file_id"`
	OriginalFileID sql.NullString `db:"original_file_id"`
	VersionNumber  int            `db:"version_number"`
	ToolChain      string         `db:"tool_chain"`
	S3Key          string         `db:"s3_key"`
	CreatedAt      time.Time      `db:"created_at"`
}

const fileVersionColumns = `id, name, mime_type, size_bytes, thumbnail, parent_file_id,
        original_file_id, version_number, tool_chain, s3_key, created_at`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (row fileVersionRow) toDomain() (domain.FileVersionRecord, error) {
	record := domain.FileVersionRecord{
		ID:             row.ID,
		Name:           row.Name,
		Size:           row.SizeBytes,
		MIMEType:       row.MIMEType,
		ThumbnailURL:   row.Thumbnail.String,
		ParentFileID:   row.ParentFileID.String,
		OriginalFileID: row.OriginalFileID.String,
		VersionNumber:  row.VersionNumber,
		S3Key:          row.S3Key,
		CreatedAt:      row.CreatedAt,
	}
	if row.ToolChain != "" {
		if err := json.Unmarshal([]byte(row.ToolChain), &record.ToolChain); err != nil {
			return domain.FileVersionRecord{}, errors.Wrapf(err, "invalid tool chain for %s", row.ID)
		}
	}
	return record, nil
}

// FileVersionRepository хранит метаданные ревизий (содержимое лежит в S3)
type FileVersionRepository struct {
	db *sqlx.DB
}

func NewFileVersionRepository(db *sqlx.DB) *FileVersionRepository {
	return &FileVersionRepository{db: db}
}

func (r *FileVersionRepository) Create(ctx context.Context, record *domain.FileVersionRecord) error {
	chain := record.ToolChain
	if chain == nil {
		chain = []domain.ToolOperation{}
	}
	toolChain, err := json.Marshal(chain)
	if err != nil {
		return errors.Wrap(err, "failed to marshal tool chain")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.CreatedAt = record.CreatedAt.UTC()

	query := r.db.Rebind(`
        INSERT INTO file_versions (` + fileVersionColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.Name,
		record.MIMEType,
		record.Size,
		nullString(record.ThumbnailURL),
		nullString(record.ParentFileID),
		nullString(record.OriginalFileID),
		record.VersionNumber,
		string(toolChain),
		record.S3Key,
		record.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create file version")
	}
	return nil
}

func (r *FileVersionRepository) GetByID(ctx context.Context, id string) (*domain.FileVersionRecord, error) {
	var row fileVersionRow
	query := r.db.Rebind(`SELECT ` + fileVersionColumns + ` FROM file_versions WHERE id = ?`)

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "file version %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get file version")
	}

	record, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List возвращает все ревизии в порядке создания
func (r *FileVersionRepository) List(ctx context.Context) ([]domain.FileVersionRecord, error) {
	return r.selectRecords(ctx, `SELECT `+fileVersionColumns+` FROM file_versions ORDER BY created_at, id`)
}

// ListByOriginal возвращает корень и все ревизии, выведенные из него
func (r *FileVersionRepository) ListByOriginal(ctx context.Context, originalID string) ([]domain.FileVersionRecord, error) {
	return r.selectRecords(ctx, `
        SELECT `+fileVersionColumns+` FROM file_versions
        WHERE id = ? OR original_file_id = ?
        ORDER BY version_number, created_at, id`, originalID, originalID)
}

func (r *FileVersionRepository) UpdateThumbnail(ctx context.Context, id, thumbnail string) error {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE file_versions SET thumbnail = ? WHERE id = ?`),
		nullString(thumbnail), id)
	if err != nil {
		return errors.Wrap(err, "failed to update thumbnail")
	}
	return requireAffected(result, id)
}

func (r *FileVersionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM file_versions WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "failed to delete file version")
	}
	return requireAffected(result, id)
}

func (r *FileVersionRepository) selectRecords(ctx context.Context, query string, args ...any) ([]domain.FileVersionRecord, error) {
	var rows []fileVersionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to list file versions")
	}

	records := make([]domain.FileVersionRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func requireAffected(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get affected rows")
	}
	if rowsAffected == 0 {
		return errors.Wrapf(domain.ErrNotFound, "file version %s", id)
	}
	return nil
}
