package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pdfhistory/internal/service"
)

const maxParamsBody = 1 << 20

type ParamsHandler struct {
	params    *service.ParamStore
	namespace string
}

func NewParamsHandler(params *service.ParamStore, namespace string) *ParamsHandler {
	if namespace == "" {
		namespace = service.DefaultParamsNamespace
	}
	return &ParamsHandler{params: params, namespace: namespace}
}

func (h *ParamsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.params.Tools(r.Context(), h.namespace))
}

func (h *ParamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := h.params.Load(r.Context(), h.namespace, chi.URLParam(r, "tool"))
	if params == nil {
		respondError(w, http.StatusNotFound, "no saved parameters")
		return
	}
	respondJSON(w, http.StatusOK, params)
}

func (h *ParamsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var params any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxParamsBody)).Decode(&params); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.params.Save(r.Context(), h.namespace, chi.URLParam(r, "tool"), params)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ParamsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.params.Clear(r.Context(), h.namespace, chi.URLParam(r, "tool"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ParamsHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	h.params.ClearAll(r.Context(), h.namespace)
	w.WriteHeader(http.StatusNoContent)
}
