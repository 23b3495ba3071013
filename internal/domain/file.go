package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// PageRecord страница обработанного документа
type PageRecord struct {
	ID         string `json:"id"`
	PageNumber int    `json:"pageNumber"`
	Thumbnail  string `json:"thumbnail,omitempty"` // data URL, основной потребитель памяти
	Rotation   int    `json:"rotation"`
	Selected   bool   `json:"selected"`
}

type ProcessedFileMetadata struct {
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// ProcessedFile результат обработки документа (страницы + превью)
type ProcessedFile struct {
	ID         string                `json:"id"`
	Pages      []PageRecord          `json:"pages"`
	TotalPages int                   `json:"totalPages"`
	Metadata   ProcessedFileMetadata `json:"metadata"`
}

// UploadInput входные данные для регистрации новой ревизии
type UploadInput struct {
	Name     string
	MIMEType string
	Data     []byte
	ParentID string // пусто для нового документа
	Tool     string
}
