package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"pdfhistory/internal/domain"
)

// RecordSource отдает метаданные ревизии по id
type RecordSource interface {
	GetVersion(ctx context.Context, id string) (*domain.FileVersionRecord, error)
}

type Handler struct {
	resolver *Resolver
	records  RecordSource
}

func NewHandler(resolver *Resolver, records RecordSource) *Handler {
	return &Handler{
		resolver: resolver,
		records:  records,
	}
}

// GetThumbnail отдает превью ревизии картинкой или 404, если его нет
func (h *Handler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.records.GetVersion(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		log.Error().Err(err).Str("file_id", id).Msg("failed to get file info")
		writeError(w, http.StatusInternalServerError, "failed to get file info")
		return
	}

	thumbnail, ok := h.resolver.Resolve(r.Context(), record)
	if !ok {
		writeError(w, http.StatusNotFound, "thumbnail not available")
		return
	}

	mimeType, data, err := DecodeDataURL(thumbnail)
	if err != nil {
		log.Warn().Err(err).Str("file_id", id).Msg("stored thumbnail is not a data URL")
		writeError(w, http.StatusNotFound, "thumbnail not available")
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400") // ревизии неизменяемы
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
