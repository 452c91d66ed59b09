// Package web exposes a backend over HTTP and talks to such a backend.
//
// Server wraps any port.Port (in practice the SQLite store) in a JSON API,
// with a Server-Sent Events feed announcing saves, deletions and dossier
// reloads. Client implements port.Port against that API, so an editor can
// work on a remote dossier exactly as on a local one.
//
// SECURITY WARNING: This server has no authentication and should only be
// bound to localhost (127.0.0.1). Do not expose it to untrusted networks.
package web

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Eudes8/Compta/loader"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
	"github.com/Eudes8/Compta/telemetry"
)

// Server serves a port.Port as a JSON API.
type Server struct {
	Host     string
	Port     int
	ReadOnly bool

	backend port.Port
	cfg     *piece.Config
	logger  *zap.Logger
	slow    time.Duration

	// dossierFile, when set, is imported into target at start and again
	// whenever it or one of its includes changes on disk.
	dossierFile string
	target      loader.Target
	loader      *loader.Loader

	mu      sync.RWMutex
	watched []string // absolute paths of the dossier root and its includes

	// SSE clients for broadcasting change events
	sseClients map[chan string]struct{}
	sseMu      sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithAddress sets the listen address.
func WithAddress(host string, port int) Option {
	return func(s *Server) {
		s.Host = host
		s.Port = port
	}
}

// WithReadOnly rejects saves and deletions.
func WithReadOnly(readOnly bool) Option {
	return func(s *Server) {
		s.ReadOnly = readOnly
	}
}

// WithLogger sets the logger for requests, watcher events and imports.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPieceConfig sets the rules used by the validate endpoint.
func WithPieceConfig(cfg *piece.Config) Option {
	return func(s *Server) {
		s.cfg = cfg
	}
}

// WithSlowThreshold sets the duration from which requests are logged as slow.
func WithSlowThreshold(d time.Duration) Option {
	return func(s *Server) {
		s.slow = d
	}
}

// WithDossier imports file into target when the server starts and watches
// it, with its includes, for changes.
func WithDossier(file string, target loader.Target, ldr *loader.Loader) Option {
	return func(s *Server) {
		s.dossierFile = file
		s.target = target
		s.loader = ldr
	}
}

// New creates a server for backend.
func New(backend port.Port, opts ...Option) *Server {
	s := &Server{
		Host:       "127.0.0.1",
		Port:       8080,
		backend:    backend,
		cfg:        piece.NewConfig(),
		logger:     zap.NewNop(),
		slow:       telemetry.DefaultSlowThreshold,
		sseClients: make(map[chan string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loader == nil {
		s.loader = loader.New(loader.WithFollowIncludes())
	}
	return s
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Start imports the dossier if one is configured, then serves until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	collector := telemetry.FromContext(ctx)
	timer := collector.Start(fmt.Sprintf("web.start %s", s.Addr()))

	if s.dossierFile != "" {
		importTimer := timer.Child("web.import_dossier")
		err := s.reloadDossier(ctx)
		importTimer.End()
		if err != nil {
			timer.End()
			return fmt.Errorf("failed to import dossier: %w", err)
		}
		if err := s.startWatcher(ctx); err != nil {
			timer.End()
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
	}

	setupTimer := timer.Child("web.setup_router")
	handler := s.Handler()
	setupTimer.End()
	timer.End()

	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("listening", zap.String("addr", s.Addr()), zap.Bool("read_only", s.ReadOnly))
	if err := srv.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the API with request logging.
func (s *Server) Handler() http.Handler {
	return s.instrument(s.setupRouter())
}

func (s *Server) setupRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/journals", s.handleListJournals)
	mux.HandleFunc("GET /api/journals/{code}", s.handleGetJournal)
	mux.HandleFunc("GET /api/journals/{code}/next-number", s.handleNextNumber)
	mux.HandleFunc("GET /api/journals/{code}/adjacent", s.handleAdjacent)
	mux.HandleFunc("GET /api/accounts", s.handleSearchAccounts)
	mux.HandleFunc("GET /api/counterparties", s.handleSearchCounterparties)
	mux.HandleFunc("GET /api/documents", s.handleSearchDocuments)
	mux.HandleFunc("POST /api/documents", s.requireWritable(s.handleSaveDocument))
	mux.HandleFunc("POST /api/documents/validate", s.handleValidateDocument)
	mux.HandleFunc("GET /api/documents/{number}", s.handleGetDocument)
	mux.HandleFunc("DELETE /api/documents/{number}", s.requireWritable(s.handleDeleteDocument))
	mux.HandleFunc("GET /api/events", s.handleSSE)

	return mux
}

// instrument times every request with a collector that logs through zap.
// The event stream is left alone; it lives as long as its client.
func (s *Server) instrument(next http.Handler) http.Handler {
	collector := telemetry.NewLogCollector(s.logger, s.slow)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/events" {
			next.ServeHTTP(w, r)
			return
		}
		timer := collector.Start(r.Method + " " + r.URL.Path)
		defer timer.End()
		next.ServeHTTP(w, r.WithContext(telemetry.WithCollector(r.Context(), collector)))
	})
}

// requireWritable is middleware that rejects write requests in read-only mode.
func (s *Server) requireWritable(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.ReadOnly {
			writeProblem(w, http.StatusForbidden, ProblemJSON{
				Kind:    "rejected",
				Op:      r.Method + " " + r.URL.Path,
				Message: "le serveur est en lecture seule",
			})
			return
		}
		next(w, r)
	}
}

// reloadDossier loads the dossier and imports it into the target.
// Caller must NOT hold the mutex - this method acquires it internally.
func (s *Server) reloadDossier(ctx context.Context) error {
	d, err := s.loader.Load(ctx, s.dossierFile)
	if err != nil {
		return err
	}

	result, err := loader.Import(ctx, s.target, d)
	if err != nil {
		return err
	}
	for _, rejected := range result.Rejected {
		s.logger.Warn("dossier piece rejected", zap.Error(rejected))
	}
	s.logger.Info("dossier imported",
		zap.String("file", d.Root),
		zap.Int("journals", result.Journals),
		zap.Int("accounts", result.Accounts),
		zap.Int("counterparties", result.Counterparties),
		zap.Int("pieces", result.Pieces),
		zap.Int("rejected", len(result.Rejected)))

	s.mu.Lock()
	s.watched = append([]string{d.Root}, d.Includes...)
	s.mu.Unlock()

	return nil
}

// startWatcher watches the dossier files and re-imports them when they change.
func (s *Server) startWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	s.mu.RLock()
	filesToWatch := append([]string(nil), s.watched...)
	s.mu.RUnlock()

	for _, file := range filesToWatch {
		if err := watcher.Add(file); err != nil {
			s.logger.Warn("failed to watch file", zap.String("file", file), zap.Error(err))
		}
	}

	go s.runWatcher(ctx, watcher)

	return nil
}

// runWatcher processes file system events with debouncing.
func (s *Server) runWatcher(ctx context.Context, watcher *fsnotify.Watcher) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	// Editors often write files in multiple steps
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// Remove/Rename are common in atomic saves
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				s.handleFileChange(ctx, watcher)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("file watcher error", zap.Error(err))
		}
	}
}

// handleFileChange re-imports the dossier and updates the watch list.
func (s *Server) handleFileChange(ctx context.Context, watcher *fsnotify.Watcher) {
	s.mu.RLock()
	old := make(map[string]bool, len(s.watched))
	for _, f := range s.watched {
		old[f] = true
	}
	s.mu.RUnlock()

	if err := s.reloadDossier(ctx); err != nil {
		s.logger.Error("failed to reload dossier", zap.Error(err))
		return
	}

	s.mu.RLock()
	current := make(map[string]bool, len(s.watched))
	for _, f := range s.watched {
		current[f] = true
	}
	s.mu.RUnlock()

	for file := range old {
		if !current[file] {
			_ = watcher.Remove(file)
		}
	}
	// Re-add everything to catch re-created files
	for file := range current {
		if err := watcher.Add(file); err != nil {
			s.logger.Warn("failed to watch file", zap.String("file", file), zap.Error(err))
		}
	}

	s.broadcast("reload")
}

// handleSSE handles Server-Sent Events connections for change notifications.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	clientChan := make(chan string, 10)

	s.sseMu.Lock()
	s.sseClients[clientChan] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseClients, clientChan)
		s.sseMu.Unlock()
	}()

	_, _ = fmt.Fprintf(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-clientChan:
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

// broadcast sends an event to all connected SSE clients. Clients whose
// buffer is full miss the event.
func (s *Server) broadcast(event string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()

	for clientChan := range s.sseClients {
		select {
		case clientChan <- event:
		default:
		}
	}
}
