package s3

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// ErrObjectNotFound возвращается, если ключа нет в бакете
var ErrObjectNotFound = errors.New("object not found")

// S3Object определяет интерфейс для объектов S3
type S3Object interface {
	io.ReadCloser
	ContentLength() int64
}

type s3Object struct {
	io.ReadCloser
	contentLength int64
}

func (o *s3Object) ContentLength() int64 {
	return o.contentLength
}

// Storage хранилище содержимого ревизий
type Storage interface {
	UploadBytes(ctx context.Context, key, contentType string, data []byte) error
	GetObject(ctx context.Context, key string) (S3Object, error)
	DeleteObject(ctx context.Context, key string) error
}

// CompletedPart представляет загруженную часть файла
type CompletedPart struct {
	PartNumber int
	ETag       string
}
