package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"siged/internal/api"
	"siged/internal/blobstore"
	"siged/internal/config"
	"siged/internal/models"
	"siged/internal/store"
)

type testEnv struct {
	server  *Server
	handler http.Handler
	store   *store.Store
	blobs   *blobstore.Local
	areaID  string
	typeID  string
}

func newTestEnv(t *testing.T, capacityMax int) *testEnv {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	blobs, err := blobstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("open blobstore: %v", err)
	}

	ctx := context.Background()
	areaID, err := st.UpsertArea(ctx, "Secretaría General")
	if err != nil {
		t.Fatalf("seed area: %v", err)
	}
	typeID, err := st.UpsertDocumentType(ctx, "Oficio")
	if err != nil {
		t.Fatalf("seed type: %v", err)
	}

	cfg := config.Config{
		CapacityMax: capacityMax,
		Uploads: config.UploadConfig{
			MaxBytes:           10 << 20,
			MultipartMaxMemory: 1 << 20,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New("127.0.0.1:0", st, blobs, cfg, logger)

	return &testEnv{
		server:  srv,
		handler: srv.routes(),
		store:   st,
		blobs:   blobs,
		areaID:  areaID,
		typeID:  typeID,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createContainer(t *testing.T, name string) models.Container {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/v1/containers", api.ContainerCreateRequest{
		Name:   name,
		AreaID: e.areaID,
		TypeID: e.typeID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create container: status %d body %s", rec.Code, rec.Body.String())
	}
	var container models.Container
	decodeBody(t, rec, &container)
	return container
}

func (e *testEnv) createDocument(t *testing.T, name string, folios int, containerID string) models.Document {
	t.Helper()

	req := api.DocumentCreateRequest{
		Name:   name,
		Folios: folios,
		AreaID: e.areaID,
		TypeID: e.typeID,
	}
	if containerID != "" {
		req.ContainerID = &containerID
	}
	rec := e.do(t, http.MethodPost, "/v1/documents", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create document: status %d body %s", rec.Code, rec.Body.String())
	}
	var doc models.Document
	decodeBody(t, rec, &doc)
	return doc
}

func (e *testEnv) uploadDocument(t *testing.T, name string, folios int, filename string, content []byte) models.Document {
	t.Helper()

	meta, err := json.Marshal(api.DocumentCreateRequest{
		Name:   name,
		Folios: folios,
		AreaID: e.areaID,
		TypeID: e.typeID,
	})
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("metadata", string(meta)); err != nil {
		t.Fatalf("write metadata part: %v", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload document: status %d body %s", rec.Code, rec.Body.String())
	}

	var doc models.Document
	decodeBody(t, rec, &doc)
	return doc
}

func (e *testEnv) replaceDocumentFile(t *testing.T, id string, meta *api.DocumentUpdateRequest, filename string, content []byte) models.Document {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if meta != nil {
		payload, err := json.Marshal(meta)
		if err != nil {
			t.Fatalf("marshal metadata: %v", err)
		}
		if err := mw.WriteField("metadata", string(payload)); err != nil {
			t.Fatalf("write metadata part: %v", err)
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, "/v1/documents/"+id, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace file: status %d body %s", rec.Code, rec.Body.String())
	}

	var doc models.Document
	decodeBody(t, rec, &doc)
	return doc
}

func bytesReader(s string) io.Reader {
	return strings.NewReader(s)
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	decodeBody(t, rec, &resp)
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 500)

	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("unexpected health body: %s", rec.Body.String())
	}
}

func TestInfoReportsCounts(t *testing.T) {
	env := newTestEnv(t, 500)
	container := env.createContainer(t, "AZ-2024-01")
	env.createDocument(t, "Oficio 001", 3, container.ID)

	rec := env.do(t, http.MethodGet, "/v1/info", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var info api.InfoResponse
	decodeBody(t, rec, &info)
	if info.DocumentCount != 1 {
		t.Fatalf("expected 1 document, got %d", info.DocumentCount)
	}
	if info.ContainerCount != 1 {
		t.Fatalf("expected 1 container, got %d", info.ContainerCount)
	}
	if info.CapacityMax != 500 {
		t.Fatalf("expected capacity max 500, got %d", info.CapacityMax)
	}
}

func TestListenAddrRejectsRemoteHost(t *testing.T) {
	if _, err := ListenAddr("http://127.0.0.1:8080"); err != nil {
		t.Fatalf("loopback should be allowed: %v", err)
	}
	if _, err := ListenAddr("http://0.0.0.0:8080"); err == nil {
		t.Fatal("expected remote host to be rejected")
	}
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t, 500)

	rec := env.do(t, http.MethodGet, "/v1/catalog/areas", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var areas []models.Area
	decodeBody(t, rec, &areas)
	if len(areas) != 1 || areas[0].ID != env.areaID {
		t.Fatalf("unexpected areas: %+v", areas)
	}

	rec = env.do(t, http.MethodGet, "/v1/catalog/types", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
