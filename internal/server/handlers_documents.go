package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"siged/internal/api"
	"siged/internal/store"
)

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	if isMultipart(r) {
		s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
			s.createDocumentMultipart(w, r)
		})
		return
	}

	var req api.DocumentCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	doc, err := s.documents.Create(r.Context(), req, nil, "", requestActor(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, doc)
}

func isMultipart(r *http.Request) bool {
	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && contentType == "multipart/form-data"
}

// parseUploadForm applies the upload size limits and parses the multipart
// body, writing the error response itself on failure.
func (s *Server) parseUploadForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Uploads.MaxBytes)
	if err := r.ParseMultipartForm(s.cfg.Uploads.MultipartMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeErrorReq(w, r, http.StatusBadRequest,
				badRequestCode(fmt.Errorf("upload exceeds %d bytes", s.cfg.Uploads.MaxBytes), ErrCodeRequestTooLarge))
			return false
		}
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequest(fmt.Errorf("invalid multipart form: %w", err)))
		return false
	}
	return true
}

// formFilePart opens the optional "file" part. A missing part is not an
// error; the caller decides whether content is required.
func (s *Server) formFilePart(w http.ResponseWriter, r *http.Request) (file multipart.File, filename string, ok bool) {
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		return file, header.Filename, true
	case errors.Is(err, http.ErrMissingFile):
		return nil, "", true
	default:
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequest(fmt.Errorf("read file part: %w", err)))
		return nil, "", false
	}
}

// createDocumentMultipart handles the combined metadata-plus-file form. The
// metadata part is JSON under the "metadata" field; the file part carries
// the scanned content.
func (s *Server) createDocumentMultipart(w http.ResponseWriter, r *http.Request) {
	if !s.parseUploadForm(w, r) {
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	var req api.DocumentCreateRequest
	meta := strings.TrimSpace(r.FormValue("metadata"))
	if meta == "" {
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequestCode(fmt.Errorf("metadata part is required"), ErrCodeInvalidMetadata))
		return
	}
	if err := json.Unmarshal([]byte(meta), &req); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidMetadata))
		return
	}

	file, filename, ok := s.formFilePart(w, r)
	if !ok {
		return
	}
	// Metadata-only registration through the multipart form is fine, so a
	// missing file part just leaves content nil.
	var content io.Reader
	if file != nil {
		defer file.Close()
		content = file
	}

	doc, err := s.documents.Create(r.Context(), req, content, filename, requestActor(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := documentFilterFromQuery(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	docs, err := s.documents.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// A metadata fetch is a consultation. Internal lookups (the edit path,
	// the file handler) go through the service and are not counted here.
	if err := s.store.IncrementQueryCount(r.Context(), doc.ID); err != nil {
		s.log().Debug("increment query count", "document_id", doc.ID, "error", err)
	} else {
		doc.QueryCount++
		now := time.Now().UTC()
		doc.LastQueryAt = &now
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	if isMultipart(r) {
		s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
			s.updateDocumentMultipart(w, r, id)
		})
		return
	}

	var req api.DocumentUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	doc, err := s.documents.Update(r.Context(), id, req, nil, "", requestActor(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// updateDocumentMultipart applies a patch that carries a replacement file.
// The metadata part is optional here: a form with only a file part swaps the
// content and leaves the rest of the document alone.
func (s *Server) updateDocumentMultipart(w http.ResponseWriter, r *http.Request, id string) {
	if !s.parseUploadForm(w, r) {
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	var req api.DocumentUpdateRequest
	if meta := strings.TrimSpace(r.FormValue("metadata")); meta != "" {
		if err := json.Unmarshal([]byte(meta), &req); err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidMetadata))
			return
		}
	}

	file, filename, ok := s.formFilePart(w, r)
	if !ok {
		return
	}
	var content io.Reader
	if file != nil {
		defer file.Close()
		content = file
	}

	doc, err := s.documents.Update(r.Context(), id, req, content, filename, requestActor(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleTrashDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	doc, err := s.documents.Trash(r.Context(), id, requestActor(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRestoreDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	doc, err := s.documents.Restore(r.Context(), id, requestActor(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handlePurgeDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if err := requireConfirm(r); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.documents.Purge(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDocumentFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	inline, err := queryBool(r, "inline")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	if err := s.gateway.Serve(w, r, doc, inline); err != nil {
		s.writeServiceError(w, r, err)
	}
}

func documentFilterFromQuery(r *http.Request) (store.DocumentFilter, error) {
	filter := store.DocumentFilter{
		AreaID:      strings.TrimSpace(r.URL.Query().Get("area_id")),
		TypeID:      strings.TrimSpace(r.URL.Query().Get("type_id")),
		ContainerID: strings.TrimSpace(r.URL.Query().Get("container_id")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("state")); raw != "" {
		state, err := normalizeDocumentState(raw)
		if err != nil {
			return store.DocumentFilter{}, err
		}
		filter.State = string(state)
	}

	// Default to the live registry; trashed=true selects the trash view.
	trashed := false
	if raw := strings.TrimSpace(r.URL.Query().Get("trashed")); raw != "" {
		parsed, err := queryBool(r, "trashed")
		if err != nil {
			return store.DocumentFilter{}, err
		}
		trashed = parsed
	}
	filter.Trashed = &trashed

	limit, err := queryIntDefault(r, "limit", 0)
	if err != nil {
		return store.DocumentFilter{}, err
	}
	filter.Limit = limit

	offset, err := queryIntDefault(r, "offset", 0)
	if err != nil {
		return store.DocumentFilter{}, err
	}
	filter.Offset = offset

	return filter, nil
}

// requestActor identifies who performed a mutation for the audit columns.
// With token auth there is no per-user identity, so the header is advisory.
func requestActor(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Actor"))
}
