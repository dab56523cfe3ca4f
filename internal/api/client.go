package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"siged/internal/blobstore"
	"siged/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "SIGED_HTTP_TIMEOUT"
	apiTokenEnvKey     = "SIGED_API_TOKEN"
	adminTokenEnvKey   = "SIGED_ADMIN_TOKEN"
)

// Client is a simple HTTP client for the siged API.
type Client struct {
	baseURL    string
	http       *http.Client
	authToken  string
	adminToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken:  strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		adminToken: strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

// CreateDocument registers a document without file content.
func (c *Client) CreateDocument(ctx context.Context, req DocumentCreateRequest) (models.Document, error) {
	var resp models.Document
	err := c.do(ctx, http.MethodPost, "/v1/documents", nil, req, &resp)
	return resp, err
}

// UploadDocument registers a document together with its scanned file. The
// metadata travels as a JSON part next to the file part.
func (c *Client) UploadDocument(ctx context.Context, req DocumentCreateRequest, filename string, content io.Reader) (models.Document, error) {
	var resp models.Document

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	meta, err := mw.CreateFormField("metadata")
	if err != nil {
		return resp, err
	}
	if err := json.NewEncoder(meta).Encode(req); err != nil {
		return resp, err
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return resp, err
	}
	if err := mw.Close(); err != nil {
		return resp, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/documents", &buf)
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeader(httpReq)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func (c *Client) GetDocument(ctx context.Context, id string) (models.Document, error) {
	var resp models.Document
	err := c.do(ctx, http.MethodGet, "/v1/documents/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) ListDocuments(ctx context.Context, query url.Values) ([]models.Document, error) {
	var resp []models.Document
	err := c.do(ctx, http.MethodGet, "/v1/documents", query, nil, &resp)
	return resp, err
}

func (c *Client) UpdateDocument(ctx context.Context, id string, req DocumentUpdateRequest) (models.Document, error) {
	var resp models.Document
	err := c.do(ctx, http.MethodPatch, "/v1/documents/"+url.PathEscape(id), nil, req, &resp)
	return resp, err
}

// UpdateDocumentWithFile sends the patch together with a replacement file.
// The server swaps the document's blob reference for the new content.
func (c *Client) UpdateDocumentWithFile(ctx context.Context, id string, req DocumentUpdateRequest, filename string, content io.Reader) (models.Document, error) {
	var resp models.Document

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	meta, err := mw.CreateFormField("metadata")
	if err != nil {
		return resp, err
	}
	if err := json.NewEncoder(meta).Encode(req); err != nil {
		return resp, err
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return resp, err
	}
	if err := mw.Close(); err != nil {
		return resp, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/v1/documents/"+url.PathEscape(id), &buf)
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeader(httpReq)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

// TrashDocument moves a document to the trash.
func (c *Client) TrashDocument(ctx context.Context, id string) (models.Document, error) {
	var resp models.Document
	err := c.do(ctx, http.MethodDelete, "/v1/documents/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

// RestoreDocument moves a trashed document back to the registry.
func (c *Client) RestoreDocument(ctx context.Context, id string) (models.Document, error) {
	var resp models.Document
	err := c.do(ctx, http.MethodPost, "/v1/documents/"+url.PathEscape(id)+"/restore", nil, nil, &resp)
	return resp, err
}

// PurgeDocument permanently deletes a document. The confirmation header is
// required by the server.
func (c *Client) PurgeDocument(ctx context.Context, id string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/documents/"+url.PathEscape(id)+"/purge", nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("X-Confirm", "true")
	c.setAuthHeader(httpReq)
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return decodeError(httpResp)
	}
	return nil
}

// Download streams the document file to w and reports the served content type.
// An optional Range header value requests a byte slice of the file.
func (c *Client) Download(ctx context.Context, id, rangeHeader string, w io.Writer) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/documents/"+url.PathEscape(id)+"/file", nil)
	if err != nil {
		return "", err
	}
	if rangeHeader != "" {
		httpReq.Header.Set("Range", rangeHeader)
	}
	c.setAuthHeader(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", decodeError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", err
	}
	return resp.Header.Get("Content-Type"), nil
}

func (c *Client) CreateContainer(ctx context.Context, req ContainerCreateRequest) (models.Container, error) {
	var resp models.Container
	err := c.do(ctx, http.MethodPost, "/v1/containers", nil, req, &resp)
	return resp, err
}

func (c *Client) GetContainer(ctx context.Context, id string) (models.Container, error) {
	var resp models.Container
	err := c.do(ctx, http.MethodGet, "/v1/containers/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) ListContainers(ctx context.Context, query url.Values) ([]models.Container, error) {
	var resp []models.Container
	err := c.do(ctx, http.MethodGet, "/v1/containers", query, nil, &resp)
	return resp, err
}

func (c *Client) UpdateContainer(ctx context.Context, id string, req ContainerUpdateRequest) (models.Container, error) {
	var resp models.Container
	err := c.do(ctx, http.MethodPatch, "/v1/containers/"+url.PathEscape(id), nil, req, &resp)
	return resp, err
}

func (c *Client) ListAreas(ctx context.Context) ([]models.Area, error) {
	var resp []models.Area
	err := c.do(ctx, http.MethodGet, "/v1/catalog/areas", nil, nil, &resp)
	return resp, err
}

func (c *Client) ListDocumentTypes(ctx context.Context) ([]models.DocumentType, error) {
	var resp []models.DocumentType
	err := c.do(ctx, http.MethodGet, "/v1/catalog/types", nil, nil, &resp)
	return resp, err
}

// Export streams the NDJSON registry export to a writer.
func (c *Client) Export(ctx context.Context, w io.Writer, compress bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/export", nil)
	if err != nil {
		return err
	}
	if compress {
		req.Header.Set("Accept-Encoding", "gzip")
	}
	c.setAuthHeader(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// BlobGC runs the orphaned-blob sweep on the server.
func (c *Client) BlobGC(ctx context.Context, req BlobGCRequest, confirm bool) (blobstore.SweepResult, error) {
	var resp blobstore.SweepResult
	payload, err := json.Marshal(req)
	if err != nil {
		return resp, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/admin/gc", bytes.NewReader(payload))
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if confirm {
		httpReq.Header.Set("X-Confirm", "true")
	}
	c.setAuthHeader(httpReq)
	c.setAdminHeader(httpReq)
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		if errResp.Code != "" {
			return fmt.Errorf("%s: %s", errResp.Code, errResp.Error)
		}
		return fmt.Errorf("%s", errResp.Error)
	}
	return fmt.Errorf("api error: %s", resp.Status)
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func (c *Client) setAdminHeader(req *http.Request) {
	if c.adminToken == "" || req == nil {
		return
	}
	req.Header.Set("X-Admin-Token", c.adminToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
