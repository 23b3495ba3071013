package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pdfhistory/internal/domain"
	"pdfhistory/internal/service"
)

const (
	maxUploadSize    = 512 << 20 // 512MB
	maxUploadMemory  = 32 << 20
	maxProcessedBody = 256 << 20
)

type FileHandler struct {
	history *service.HistoryService
}

func NewFileHandler(history *service.HistoryService) *FileHandler {
	return &FileHandler{history: history}
}

// UploadFile принимает multipart-поле file и необязательные parent_id, tool, name
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	record, err := h.history.RegisterUpload(r.Context(), domain.UploadInput{
		Name:     name,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
		ParentID: r.FormValue("parent_id"),
		Tool:     r.FormValue("tool"),
	})
	if err != nil {
		respondServiceError(w, r, err, "failed to register upload")
		return
	}

	respondJSON(w, http.StatusCreated, record)
}

// ListLatest отдает последние ревизии всех веток
func (h *FileHandler) ListLatest(w http.ResponseWriter, r *http.Request) {
	records, err := h.history.LatestVersions(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "failed to list files")
		return
	}
	if records == nil {
		records = []domain.FileVersionRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.history.DeleteVersion(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err, "failed to delete file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.history.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "failed to get history")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// ListBranches отдает ветки по id листа
func (h *FileHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.history.Branches(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "failed to group branches")
		return
	}
	respondJSON(w, http.StatusOK, branches)
}

func (h *FileHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.history.Groups(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "failed to group history")
		return
	}
	if groups == nil {
		groups = []service.HistoryGroup{}
	}
	respondJSON(w, http.StatusOK, groups)
}

func (h *FileHandler) PutProcessed(w http.ResponseWriter, r *http.Request) {
	var processed domain.ProcessedFile
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProcessedBody)).Decode(&processed); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.history.CacheProcessed(r.Context(), chi.URLParam(r, "id"), &processed); err != nil {
		respondServiceError(w, r, err, "failed to cache processed file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) GetProcessed(w http.ResponseWriter, r *http.Request) {
	processed, ok, err := h.history.Processed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "failed to get processed file")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "processed file is not cached")
		return
	}
	respondJSON(w, http.StatusOK, processed)
}
