package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bastiangx/sentserve/internal/logger"
	"github.com/bastiangx/sentserve/pkg/config"
	"github.com/bastiangx/sentserve/pkg/suggest"
	"github.com/bastiangx/sentserve/pkg/trie"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/net/netutil"
)

// AutocompleteResponse is the body of a successful /autocomplete call.
type AutocompleteResponse struct {
	Completions []string `json:"Completions"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// HTTPServer serves sentence completions over HTTP.
type HTTPServer struct {
	completer suggest.ICompleter
	limits    *limitSet
	srv       *http.Server
	maxConns  int
	log       *log.Logger
}

// NewHTTPServer creates a server for completer using the given config.
func NewHTTPServer(completer suggest.ICompleter, cfg config.ServerConfig) *HTTPServer {
	s := &HTTPServer{
		completer: completer,
		limits:    newLimitSet(LimitsFromConfig(cfg)),
		maxConns:  cfg.MaxConns,
		log:       logger.New("http"),
	}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler, wrapped with request IDs and timing logs.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/autocomplete", s.handleAutocomplete)
	mux.HandleFunc("/health", s.handleHealth)
	return s.withRequestID(mux)
}

// ApplyConfig swaps the request limits without restarting.
func (s *HTTPServer) ApplyConfig(cfg *config.Config) {
	l := LimitsFromConfig(cfg.Server)
	s.limits.store(l)
	s.log.Info("Applied new limits", "max_limit", l.MaxLimit, "default_limit", l.DefaultLimit,
		"min_prefix", l.MinPrefix, "max_prefix", l.MaxPrefix)
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *HTTPServer) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. Concurrent connections are capped at max_conns.
func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}
	s.log.Info("Serving completions", "addr", ln.Addr().String(), "max_conns", s.maxConns)

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("Server stopped")
	return nil
}

func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("Request", "id", id, "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	prefix := query.Get("q")
	if prefix == "" {
		s.sendError(w, "Missing 'q' parameter", http.StatusBadRequest)
		return
	}

	requested := -1
	if raw := query.Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.sendError(w, ErrBadLimit.Error(), http.StatusBadRequest)
			return
		}
		requested = n
	}

	limit, err := s.limits.load().resolve(prefix, requested)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.completer.Complete(r.Context(), prefix, limit)
	if err != nil {
		s.sendError(w, err.Error(), statusFor(err))
		return
	}
	completions := res.Completions
	if completions == nil {
		completions = []string{}
	}
	s.sendJSON(w, http.StatusOK, AutocompleteResponse{Completions: completions})
}

// statusFor maps completion errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, trie.ErrEmptySequence),
		errors.Is(err, trie.ErrSequenceTooLong),
		errors.Is(err, trie.ErrInvalidEncoding),
		errors.Is(err, suggest.ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sendJSON writes v followed by a newline.
func (s *HTTPServer) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorf("Writing response: %v", err)
	}
}

func (s *HTTPServer) sendError(w http.ResponseWriter, message string, code int) {
	s.log.Debug("Request failed", "status", code, "error", message)
	s.sendJSON(w, code, ErrorResponse{Error: message, Status: code})
}
