// Package server is the web front of chatpane. Each page load gets its own
// session controller; user actions arrive over a small JSON API and page
// updates are pushed back over a websocket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/shawkym/chatpane/pkg/export"
	"github.com/shawkym/chatpane/pkg/log"
	"github.com/shawkym/chatpane/pkg/metrics"
	"github.com/shawkym/chatpane/pkg/widget"
)

// Options configures a Server.
type Options struct {
	Addr        string
	Title       string
	Welcome     string
	Bridge      widget.Bridge
	Sanitizer   widget.Sanitizer
	Metrics     *metrics.Metrics
	SessionTTL  time.Duration
	EventBuffer int
}

// Server serves the chat page, its API and its event streams.
type Server struct {
	store  *Store
	router *mux.Router
	http   *http.Server
	ttl    time.Duration

	mu      sync.RWMutex
	title   string
	welcome string
}

// New creates a server. It does not start listening.
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	s := &Server{
		store:   NewStore(opts.Bridge, opts.Sanitizer, opts.Metrics, opts.SessionTTL, opts.EventBuffer),
		ttl:     opts.SessionTTL,
		title:   opts.Title,
		welcome: opts.Welcome,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/ws/{sid}", s.handleWS).Methods("GET")

	api := r.PathPrefix("/api/{sid}").Subrouter()
	api.HandleFunc("/send", s.withSession(s.handleSend)).Methods("POST")
	api.HandleFunc("/input", s.withSession(s.handleInput)).Methods("POST")
	api.HandleFunc("/sidebar", s.withSession(s.handleSidebar)).Methods("POST")
	api.HandleFunc("/panels/{pid}/toggle", s.withSession(s.handleToggle)).Methods("POST")
	api.HandleFunc("/export", s.withSession(s.handleExport)).Methods("GET")
	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store exposes the session store.
func (s *Server) Store() *Store {
	return s.store
}

// SetBranding replaces the title and welcome text for future page loads.
func (s *Server) SetBranding(title, welcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
	s.welcome = welcome
}

func (s *Server) branding() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title, s.welcome
}

// Start listens and serves until Shutdown. It also runs the session sweeper.
func (s *Server) Start(ctx context.Context) error {
	if s.ttl > 0 {
		interval := s.ttl / 2
		if interval < time.Second {
			interval = time.Second
		}
		go s.store.RunSweeper(ctx, interval)
	}

	log.WithField("addr", s.http.Addr).Info("starting chat server")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("chat server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for pending chat calls.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("chat server shutdown failed: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.store.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Info("chat server stopped")
	return nil
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *Session)

func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.store.Get(mux.Vars(r)["sid"])
		if !ok {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Create()
	page := sess.Controller.Snapshot()

	transcript, err := widget.RenderTranscript(page.Transcript)
	if err != nil {
		s.store.Remove(sess.ID)
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	sidebar, err := widget.RenderNotifications(page.Notifications)
	if err != nil {
		s.store.Remove(sess.ID)
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	title, welcome := s.branding()
	data := pageData{
		Title:      title,
		Welcome:    welcome,
		SessionID:  sess.ID,
		Started:    page.View.Started,
		MicHidden:  !page.Buttons.MicVisible,
		SendHidden: !page.Buttons.SendVisible,
		Transcript: template.HTML(transcript),
		Sidebar:    template.HTML(sidebar),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, data); err != nil {
		log.WithError(err).WithField("session_id", sess.ID).Error("failed to render page")
	}
}

type textRequest struct {
	Text string `json:"text"`
}

func decodeText(r *http.Request) (string, error) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", fmt.Errorf("failed to decode request: %w", err)
	}
	return req.Text, nil
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request, sess *Session) {
	text, err := decodeText(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	accepted := sess.Controller.Send(r.Context(), text)
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": accepted})
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request, sess *Session) {
	text, err := decodeText(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	sess.Controller.SetInput(text)
	writeJSON(w, http.StatusOK, encodeButtons(sess.Controller.Snapshot().Buttons))
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request, sess *Session) {
	panels := sess.Controller.OpenSidebar(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"panels": len(panels)})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request, sess *Session) {
	panel, ok := sess.Controller.TogglePanel(mux.Vars(r)["pid"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown panel")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"visible": panel.BodyVisible, "open": panel.Open})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *Session) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	title, _ := s.branding()
	exporter := export.NewExporter(export.ExportOptions{
		Format:         format,
		IncludeSummary: true,
		Title:          title,
	})

	w.Header().Set("Content-Type", format.ContentType())
	if err := exporter.Export(sess.Controller.Snapshot().Transcript, w); err != nil {
		log.WithError(err).WithField("session_id", sess.ID).Error("failed to export transcript")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"service":  "chatpane",
		"sessions": s.store.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
