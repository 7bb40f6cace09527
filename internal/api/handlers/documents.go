package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yuelin-song/communitykb/internal/auth"
	"github.com/yuelin-song/communitykb/internal/knowledge"
	"github.com/yuelin-song/communitykb/internal/queue"
	"github.com/yuelin-song/communitykb/pkg/textextract"
)

type DocumentHandler struct {
	store      *knowledge.Store
	queue      *queue.Client
	uploadsDir string
	maxSize    int64
}

func NewDocumentHandler(store *knowledge.Store, qc *queue.Client, uploadsDir string, maxSize int64) *DocumentHandler {
	return &DocumentHandler{store: store, queue: qc, uploadsDir: uploadsDir, maxSize: maxSize}
}

// Upload accepts one multipart file, stages it under the uploads directory,
// and enqueues ingestion. The document becomes queryable once the worker
// has chunked it.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	community := chi.URLParam(r, "community")

	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	if header.Size > h.maxSize {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d bytes", h.maxSize))
		return
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if !textextract.IsSupported(format) {
		writeError(w, http.StatusUnsupportedMediaType,
			"unsupported format, expected one of: "+strings.Join(textextract.SupportedFormats(), ", "))
		return
	}

	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "stage upload: "+err.Error())
		return
	}

	location := filepath.Join(h.uploadsDir, uuid.NewString()+"."+format)
	dst, err := os.Create(location)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stage upload: "+err.Error())
		return
	}
	written, err := io.Copy(dst, file)
	dst.Close()
	if err != nil {
		os.Remove(location)
		writeError(w, http.StatusInternalServerError, "stage upload: "+err.Error())
		return
	}

	payload := queue.DocumentIngestPayload{
		Community:  community,
		Name:       filepath.Base(header.Filename),
		Format:     format,
		SizeBytes:  written,
		Location:   location,
		UploadedBy: auth.UserIDFromContext(r.Context()),
	}
	if err := h.queue.EnqueueDocumentIngest(payload); err != nil {
		os.Remove(location)
		writeError(w, http.StatusInternalServerError, "enqueue ingest: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     "queued",
		"name":       payload.Name,
		"format":     payload.Format,
		"size_bytes": payload.SizeBytes,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	community := chi.URLParam(r, "community")

	docs, err := h.store.ListDocuments(r.Context(), community)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if doc.Community != chi.URLParam(r, "community") {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.store.GetDocument(r.Context(), id)
	if err != nil || doc.Community != chi.URLParam(r, "community") {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	if err := h.store.DeleteDocument(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
