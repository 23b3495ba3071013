package domain

import (
	"time"

	"github.com/google/uuid"
)

// ToolOperation одна операция над документом (rotate, crop, merge...)
type ToolOperation struct {
	ToolName  string `json:"toolName"`
	Timestamp int64  `json:"timestamp"` // unix ms
}

// FileVersionRecord неизменяемая ревизия файла.
// Пустая строка в ParentFileID/OriginalFileID означает отсутствие ссылки.
type FileVersionRecord struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Size           int64           `json:"size"`
	MIMEType       string          `json:"mimeType,omitempty"`
	ThumbnailURL   string          `json:"thumbnailUrl,omitempty"`
	ParentFileID   string          `json:"parentFileId,omitempty"`
	OriginalFileID string          `json:"originalFileId,omitempty"`
	VersionNumber  int             `json:"versionNumber"`
	ToolChain      []ToolOperation `json:"toolChain,omitempty"`
	S3Key          string          `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// RootID возвращает id корневой ревизии цепочки
func (r FileVersionRecord) RootID() string {
	if r.OriginalFileID != "" {
		return r.OriginalFileID
	}
	return r.ID
}

func (r FileVersionRecord) HasVersionHistory() bool {
	return r.VersionNumber > 0 || r.ParentFileID != ""
}

// NewRootVersion создает запись для только что импортированного файла
func NewRootVersion(name, mimeType string, size int64, at time.Time) FileVersionRecord {
	return FileVersionRecord{
		ID:            uuid.NewString(),
		Name:          name,
		Size:          size,
		MIMEType:      mimeType,
		VersionNumber: 0,
		CreatedAt:     at,
	}
}

// DeriveVersion создает дочернюю ревизию после применения tool к parent.
// Родительская запись не изменяется.
func DeriveVersion(parent FileVersionRecord, name string, size int64, tool string, at time.Time) FileVersionRecord {
	chain := make([]ToolOperation, 0, len(parent.ToolChain)+1)
	chain = append(chain, parent.ToolChain...)
	if tool != "" {
		chain = append(chain, ToolOperation{ToolName: tool, Timestamp: at.UnixMilli()})
	}

	return FileVersionRecord{
		ID:             uuid.NewString(),
		Name:           name,
		Size:           size,
		MIMEType:       parent.MIMEType,
		ParentFileID:   parent.ID,
		OriginalFileID: parent.RootID(),
		VersionNumber:  parent.VersionNumber + 1,
		ToolChain:      chain,
		CreatedAt:      at,
	}
}
