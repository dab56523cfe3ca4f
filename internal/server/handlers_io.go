package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"

	"siged/internal/models"
	"siged/internal/store"
)

const exportPageSize = 500

// exportRecord is one NDJSON line: a kind tag plus exactly one payload.
type exportRecord struct {
	Kind      string            `json:"kind"`
	Container *models.Container `json:"container,omitempty"`
	Document  *models.Document  `json:"document,omitempty"`
}

// handleExport streams the full registry, containers first so an import
// can re-create assignments in order. Trashed records are included; the
// export is a backup, not a report.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.exportLimiter, "export", func() {
		s.exportNDJSON(w, r)
	})
}

func (s *Server) exportNDJSON(w http.ResponseWriter, r *http.Request) {
	// Fetch the container preamble before committing to the stream so a
	// store failure can still produce a proper error response.
	containers, err := s.store.ListContainers(r.Context(), "", true)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")

	var out io.Writer = w
	if acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer func() {
			if err := gz.Close(); err != nil {
				s.log().Error("close gzip export", "error", err)
			}
		}()
		out = gz
	}

	enc := json.NewEncoder(out)
	flusher, _ := w.(http.Flusher)
	for i := range containers {
		if err := enc.Encode(exportRecord{Kind: "container", Container: &containers[i]}); err != nil {
			s.log().Error("export container", "error", err)
			return
		}
	}

	offset := 0
	for {
		docs, err := s.store.ListDocuments(r.Context(), store.DocumentFilter{Limit: exportPageSize, Offset: offset})
		if err != nil {
			s.log().Error("export documents", "offset", offset, "error", err)
			return
		}
		for i := range docs {
			if err := enc.Encode(exportRecord{Kind: "document", Document: &docs[i]}); err != nil {
				s.log().Error("export document", "error", err)
				return
			}
		}
		if flusher != nil {
			flusher.Flush()
		}
		if len(docs) < exportPageSize {
			return
		}
		offset += exportPageSize
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(strings.SplitN(enc, ";", 2)[0]) == "gzip" {
			return true
		}
	}
	return false
}
