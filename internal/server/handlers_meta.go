package server

import (
	"net/http"

	"siged/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.StoreInfo(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.InfoResponse{
		SchemaVersion:    info.SchemaVersion,
		DocumentCount:    info.DocumentCount,
		TrashedDocuments: info.TrashedDocuments,
		ContainerCount:   info.ContainerCount,
		CapacityMax:      s.cfg.CapacityMax,
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := s.store.ListAreas(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, areas)
}

func (s *Server) handleListDocumentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.store.ListDocumentTypes(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, types)
}
