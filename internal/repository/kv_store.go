package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// KeyValueStore долговременное строковое хранилище ключ/значение
type KeyValueStore interface {
	// GetItem возвращает false, если ключа нет
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// SQLKeyValueStore хранит пары в таблице kv_items (sqlite3 или postgres)
type SQLKeyValueStore struct {
	db *sqlx.DB
}

var _ KeyValueStore = &SQLKeyValueStore{}

func NewSQLKeyValueStore(db *sqlx.DB) *SQLKeyValueStore {
	return &SQLKeyValueStore{db: db}
}

func (s *SQLKeyValueStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		s.db.Rebind(`SELECT item_value FROM kv_items WHERE item_key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "kv store: get item")
	}
	return value, true, nil
}

func (s *SQLKeyValueStore) SetItem(ctx context.Context, key, value string) error {
	query := s.db.Rebind(`
        INSERT INTO kv_items (item_key, item_value, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT (item_key) DO UPDATE SET
            item_value = excluded.item_value,
            updated_at = excluded.updated_at`)

	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "kv store: set item")
	}
	return nil
}

func (s *SQLKeyValueStore) RemoveItem(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM kv_items WHERE item_key = ?`), key)
	if err != nil {
		return errors.Wrap(err, "kv store: remove item")
	}
	return nil
}
