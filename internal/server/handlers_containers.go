package server

import (
	"net/http"
	"strings"

	"siged/internal/api"
)

func (s *Server) handleCreateContainer(w http.ResponseWriter, r *http.Request) {
	var req api.ContainerCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	container, err := s.containers.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, container)
}

func (s *Server) handleListContainers(w http.ResponseWriter, r *http.Request) {
	areaID := strings.TrimSpace(r.URL.Query().Get("area_id"))
	includeTrashed, err := queryBool(r, "include_trashed")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	containers, err := s.containers.List(r.Context(), areaID, includeTrashed)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, containers)
}

func (s *Server) handleGetContainer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	container, err := s.containers.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, container)
}

func (s *Server) handleUpdateContainer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	var req api.ContainerUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	container, err := s.containers.Update(r.Context(), id, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, container)
}
