package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Documents collection.
	mux.HandleFunc("POST /v1/documents", s.handleCreateDocument)
	mux.HandleFunc("GET /v1/documents", s.handleListDocuments)

	// Single document and its lifecycle.
	mux.HandleFunc("GET /v1/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("PATCH /v1/documents/{id}", s.handleUpdateDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", s.handleTrashDocument)
	mux.HandleFunc("POST /v1/documents/{id}/restore", s.handleRestoreDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}/purge", s.handlePurgeDocument)

	// Document file content.
	mux.HandleFunc("GET /v1/documents/{id}/file", s.handleDocumentFile)
	mux.HandleFunc("HEAD /v1/documents/{id}/file", s.handleDocumentFile)

	// Containers.
	mux.HandleFunc("POST /v1/containers", s.handleCreateContainer)
	mux.HandleFunc("GET /v1/containers", s.handleListContainers)
	mux.HandleFunc("GET /v1/containers/{id}", s.handleGetContainer)
	mux.HandleFunc("PATCH /v1/containers/{id}", s.handleUpdateContainer)

	// Catalogs.
	mux.HandleFunc("GET /v1/catalog/areas", s.handleListAreas)
	mux.HandleFunc("GET /v1/catalog/types", s.handleListDocumentTypes)

	// Export.
	mux.HandleFunc("GET /v1/export", s.handleExport)

	// Admin.
	mux.HandleFunc("POST /v1/admin/gc", s.handleBlobGC)

	return s.withRequestLogging(s.withAuth(mux))
}
