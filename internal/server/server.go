package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"siged/internal/blobstore"
	"siged/internal/config"
	"siged/internal/store"
)

const (
	apiTokenEnvKey         = "SIGED_API_TOKEN"
	adminTokenEnvKey       = "SIGED_ADMIN_TOKEN"
	allowRemoteEnvKey      = "SIGED_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	// writeTimeout bounds the JSON API only; the file gateway clears its
	// write deadline per request so long downloads are never cut off.
	writeTimeout           = 5 * time.Minute
	idleTimeout            = 60 * time.Second
	exportConcurrencyLimit = 2
	gcConcurrencyLimit     = 1
	uploadConcurrencyLimit = 4
)

// Server wraps HTTP handlers for the siged API.
type Server struct {
	addr       string
	store      *store.Store
	blobs      *blobstore.Local
	documents  *DocumentService
	containers *ContainerService
	gateway    *StreamingGateway
	cfg        config.Config
	logger     *slog.Logger
	apiToken   string
	adminToken string

	exportLimiter chan struct{}
	gcLimiter     chan struct{}
	uploadLimiter chan struct{}
}

// New creates a new server instance.
func New(addr string, st *store.Store, blobs *blobstore.Local, cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:          addr,
		store:         st,
		blobs:         blobs,
		cfg:           cfg,
		logger:        logger,
		apiToken:      strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		adminToken:    strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
		exportLimiter: make(chan struct{}, exportConcurrencyLimit),
		gcLimiter:     make(chan struct{}, gcConcurrencyLimit),
		uploadLimiter: make(chan struct{}, uploadConcurrencyLimit),
	}
	s.documents = NewDocumentService(st, blobs, cfg.CapacityMax)
	s.containers = NewContainerService(st)
	s.gateway = NewStreamingGateway(st, blobs, logger)
	return s
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
