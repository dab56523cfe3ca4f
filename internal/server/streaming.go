package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"siged/internal/blobstore"
	"siged/internal/models"
	"siged/internal/store"
)

const (
	streamCopyBufferSize = 256 << 10 // 256 KiB
	downloadCacheMaxAge  = 3600
	inlineCacheMaxAge    = 1800
	queryCountTimeout    = 5 * time.Second
)

// StreamingGateway serves document blobs with byte-range semantics. Blobs
// are immutable once placed, so reads never coordinate with registry
// writes; the only synchronization is the file handle itself.
type StreamingGateway struct {
	store  *store.Store
	blobs  *blobstore.Local
	logger *slog.Logger
}

func NewStreamingGateway(st *store.Store, blobs *blobstore.Local, logger *slog.Logger) *StreamingGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamingGateway{store: st, blobs: blobs, logger: logger}
}

// byteRange is a resolved, inclusive byte window.
type byteRange struct {
	start int64
	end   int64
}

func (r byteRange) length() int64 {
	return r.end - r.start + 1
}

// Serve streams the document's blob. Inline responses correspond to
// viewing and bump the query counter asynchronously so that counting can
// never delay or fail the transfer.
func (g *StreamingGateway) Serve(w http.ResponseWriter, r *http.Request, doc *models.Document, inline bool) error {
	if !doc.HasBlob() {
		return notFoundCode(fmt.Errorf("document %s has no file content", doc.ID), ErrCodeBlobNotFound)
	}

	// A large blob on a slow client can outlive the server's write timeout;
	// streaming relies on socket-level liveness instead. Writers without
	// deadline support (tests, some proxies) just keep the global timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		g.logger.Debug("clear write deadline", "document_id", doc.ID, "error", err)
	}

	ref := blobstore.Ref{Digest: doc.BlobDigest, Key: doc.BlobKey, Size: doc.BlobSize, ContentType: doc.BlobMime}
	stat, err := g.blobs.Resolve(r.Context(), ref)
	if err != nil {
		return translateDomainError(err)
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentTypeFor(doc))
	w.Header().Set("Content-Disposition", dispositionFor(doc, inline))
	w.Header().Set("ETag", etagFor(stat))
	if inline {
		w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", inlineCacheMaxAge))
	} else {
		w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", downloadCacheMaxAge))
	}

	rng, ok, satisfiable := parseRange(r.Header.Get("Range"), stat.Size)
	if ok && !satisfiable {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", stat.Size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	if inline {
		g.countQueryAsync(doc.ID)
	}

	file, err := g.blobs.Open(r.Context(), ref)
	if err != nil {
		return translateDomainError(err)
	}
	defer file.Close()

	if !ok {
		w.Header().Set("Content-Length", strconv.FormatInt(stat.Size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return nil
		}
		g.copyWindow(w, file, stat.Size, doc.ID)
		return nil
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, stat.Size))
	w.Header().Set("Content-Length", strconv.FormatInt(rng.length(), 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}

	if _, err := file.Seek(rng.start, io.SeekStart); err != nil {
		g.logger.Error("seek blob", "document_id", doc.ID, "offset", rng.start, "error", err)
		return nil
	}
	g.copyWindow(w, file, rng.length(), doc.ID)
	return nil
}

// copyWindow streams up to n bytes with a bounded buffer. A broken copy
// after headers are written can only be logged; the status is already gone.
func (g *StreamingGateway) copyWindow(w io.Writer, file io.Reader, n int64, docID string) {
	buf := make([]byte, streamCopyBufferSize)
	if _, err := io.CopyBuffer(w, io.LimitReader(file, n), buf); err != nil {
		g.logger.Debug("blob stream interrupted", "document_id", docID, "error", err)
	}
}

// countQueryAsync bumps the view counter without holding up the response.
func (g *StreamingGateway) countQueryAsync(docID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), queryCountTimeout)
		defer cancel()
		if err := g.store.IncrementQueryCount(ctx, docID); err != nil {
			g.logger.Debug("increment query count", "document_id", docID, "error", err)
		}
	}()
}

// parseRange parses a single-range header of the form "bytes=start-end"
// with end optional. Multi-range requests collapse to their first pair.
// ok reports whether a well-formed range was present at all; a malformed
// header is ignored so the caller falls back to a full response.
// satisfiable is false when start or end falls outside the blob.
func parseRange(header string, size int64) (rng byteRange, ok, satisfiable bool) {
	header = strings.TrimSpace(header)
	if header == "" || !strings.HasPrefix(header, "bytes=") {
		return byteRange{}, false, false
	}

	spec := strings.TrimPrefix(header, "bytes=")
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	start, end, found := strings.Cut(strings.TrimSpace(spec), "-")
	if !found {
		return byteRange{}, false, false
	}

	startN, err := strconv.ParseInt(strings.TrimSpace(start), 10, 64)
	if err != nil || startN < 0 {
		return byteRange{}, false, false
	}

	endN := size - 1
	if trimmed := strings.TrimSpace(end); trimmed != "" {
		endN, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil || endN < startN {
			return byteRange{}, false, false
		}
	}

	if startN >= size || endN >= size {
		return byteRange{}, true, false
	}
	return byteRange{start: startN, end: endN}, true, true
}

func etagFor(stat blobstore.Stat) string {
	return fmt.Sprintf(`"%x-%x"`, stat.ModTime.UnixNano(), stat.Size)
}

func contentTypeFor(doc *models.Document) string {
	if doc.BlobMime != "" {
		return doc.BlobMime
	}
	return "application/octet-stream"
}

func dispositionFor(doc *models.Document, inline bool) string {
	kind := "attachment"
	if inline {
		kind = "inline"
	}
	return mime.FormatMediaType(kind, map[string]string{"filename": doc.Name})
}
