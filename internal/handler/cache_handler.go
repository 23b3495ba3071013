package handler

import (
	"net/http"

	"pdfhistory/internal/service"
)

type CacheHandler struct {
	history *service.HistoryService
}

func NewCacheHandler(history *service.HistoryService) *CacheHandler {
	return &CacheHandler{history: history}
}

func (h *CacheHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.history.CacheStats())
}

func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.history.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}
