package server

import (
	"fmt"
	"net/http"
	"strings"

	"siged/internal/auth"
)

// withAuth enforces the bearer token on every route except the health
// check. When no API token is configured the instance runs open, which is
// the single-user local default.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		presented := bearerToken(r)
		if presented == "" || !auth.VerifyToken(s.apiToken, presented) {
			s.writeErrorReq(w, r, http.StatusUnauthorized, apiError{
				status:  http.StatusUnauthorized,
				code:    "unauthorized",
				errCode: ErrCodeUnauthorized,
				err:     fmt.Errorf("missing or invalid bearer token"),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAdmin gates destructive admin endpoints behind a second token.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.adminToken == "" {
		s.writeErrorReq(w, r, http.StatusForbidden, apiError{
			status:  http.StatusForbidden,
			code:    "forbidden",
			errCode: ErrCodeForbidden,
			err:     fmt.Errorf("admin endpoints require %s", adminTokenEnvKey),
		})
		return false
	}

	presented := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
	if presented == "" || !auth.VerifyToken(s.adminToken, presented) {
		s.writeErrorReq(w, r, http.StatusForbidden, apiError{
			status:  http.StatusForbidden,
			code:    "forbidden",
			errCode: ErrCodeForbidden,
			err:     fmt.Errorf("missing or invalid admin token"),
		})
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
