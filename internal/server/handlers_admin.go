package server

import (
	"net/http"

	"siged/internal/api"
)

// handleBlobGC sweeps blobs no document references. A dry run only counts;
// applying the sweep additionally requires the confirmation header.
func (s *Server) handleBlobGC(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var req api.BlobGCRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.Apply {
		if err := requireConfirm(r); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}

	s.withLimiter(w, r, s.gcLimiter, "gc", func() {
		result, err := s.blobs.Sweep(r.Context(), func(digest string) (bool, error) {
			return s.store.DigestReferenced(r.Context(), digest)
		}, req.Apply)
		if err != nil {
			s.writeErrorReq(w, r, http.StatusInternalServerError, storageFailure(err))
			return
		}
		s.log().Info("blob sweep complete",
			"candidates", result.CandidateCount,
			"deleted", result.DeletedCount,
			"failed", result.FailedCount,
			"reclaimed_bytes", result.ReclaimedBytes,
			"dry_run", result.DryRun,
		)
		s.writeJSON(w, http.StatusOK, result)
	})
}
