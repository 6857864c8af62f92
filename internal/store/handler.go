package store

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inamate/vecview/internal/document"
)

// maxBodyBytes bounds uploaded document bodies.
const maxBodyBytes = 8 << 20

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type createRequest struct {
	Name     string             `json:"name"`
	Sample   bool               `json:"sample"`
	Document *document.Document `json:"document,omitempty"`
}

// Create stores a new document. The body either carries a full document or
// just a name, in which case an empty (or sample) document is created.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	doc := req.Document
	switch {
	case doc != nil:
		if req.Name != "" {
			doc.Name = req.Name
		}
	case req.Sample:
		doc = document.NewSampleDocument("")
		if req.Name != "" {
			doc.Name = req.Name
		}
	case req.Name == "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	default:
		doc = document.NewEmptyDocument("", req.Name)
	}

	sum, err := h.store.Create(r.Context(), doc)
	if err != nil {
		slog.Error("create document failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	slog.Info("document created", "documentID", sum.ID, "name", sum.Name)
	writeJSON(w, http.StatusCreated, sum)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["documentId"]

	doc, _, err := h.store.Latest(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// Save appends a new snapshot of an existing document.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["documentId"]

	var doc document.Document
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	doc.ID = id

	version, err := h.store.Save(r.Context(), &doc)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "version": version})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.List(r.Context())
	if err != nil {
		slog.Error("list documents failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["documentId"]

	if err := h.store.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, document.ErrUnknownElement):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
