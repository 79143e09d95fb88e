// Package httpapi exposes the registry over HTTP/JSON. All endpoints sit
// behind bearer-token auth; request and response bodies are JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/custodia-project/custodia/internal/logging"
	"github.com/custodia-project/custodia/internal/server/config"
	"github.com/custodia-project/custodia/internal/server/services"
)

type Server struct {
	addr         string
	secretKey    []byte
	maxBodyBytes int64
	logger       logging.Logger

	evidence *services.EvidenceService
	manifest *services.ManifestService
	replay   *services.ReplayService
}

func NewServer(cfg *config.Config, logger logging.Logger,
	evidence *services.EvidenceService, manifest *services.ManifestService, replay *services.ReplayService) *Server {
	return &Server{
		addr:         cfg.EndpointAddrHTTP,
		secretKey:    []byte(cfg.SecretKey),
		maxBodyBytes: cfg.MaxUploadSizeBytes,
		logger:       logger,
		evidence:     evidence,
		manifest:     manifest,
		replay:       replay,
	}
}

// Handler builds the route table. Method and path matching is delegated to
// the stdlib mux patterns; auth and request logging wrap every route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/evidence/init", s.handleInitUpload)
	mux.HandleFunc("POST /api/evidence/{id}/complete", s.handleCompleteUpload)
	mux.HandleFunc("GET /api/cases/{id}/evidence", s.handleListEvidence)
	mux.HandleFunc("POST /api/cases/{id}/manifest/export", s.handleExportManifest)
	mux.HandleFunc("POST /api/manifest/verify", s.handleVerifyManifest)
	mux.HandleFunc("POST /api/cases/{id}/replay", s.handleReplay)

	return s.withLogging(s.withAuth(mux))
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info(ctx, "http server listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
