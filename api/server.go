package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	cfg "github.com/maastricht-university/datecoach-analytics/config"
	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/orchestrator"
)

// Server exposes the session registry over HTTP and a WebSocket feed.
type Server struct {
	router   *mux.Router
	server   *http.Server
	registry *Registry
	upgrader websocket.Upgrader
	log      *logrus.Entry
	started  time.Time
}

func NewServer(c cfg.Server, reg *Registry, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		router:   mux.NewRouter(),
		registry: reg,
		log:      log,
		started:  time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()

	origins := c.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cr := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	s.server = &http.Server{
		Addr:         c.Addr,
		Handler:      cr.Handler(s.router),
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", s.createSessionHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.listSessionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/facial", s.sampleHandler(emotion.Facial)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/vocal", s.sampleHandler(emotion.Vocal)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/transcript", s.transcriptHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/end", s.endHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/report", s.reportHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/history", s.historyHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/segments", s.segmentsHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/moments", s.momentsHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/stream", s.streamHandler).Methods(http.MethodGet)
}

// Handler is the full handler chain, CORS included.
func (s *Server) Handler() http.Handler { return s.server.Handler }

func (s *Server) Start() error {
	s.log.WithField("addr", s.server.Addr).Info("starting HTTP API server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("stopping HTTP API server")
	return s.server.Shutdown(ctx)
}

// --- middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack keeps WebSocket upgrades working through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start),
			"remote":   r.RemoteAddr,
		}).Debug("request")
	})
}

// --- payloads ---

type sampleReq struct {
	ParticipantID string               `json:"participantId"`
	Emotions      emotion.Distribution `json:"emotions"`
}

type transcriptReq struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type errorResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResp{Error: err.Error()})
}

// statusOf maps engine errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownParticipant):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrSessionEnded),
		errors.Is(err, orchestrator.ErrOutOfOrder),
		errors.Is(err, orchestrator.ErrNotStarted),
		errors.Is(err, orchestrator.ErrAlreadyStarted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*orchestrator.Session, bool) {
	id := mux.Vars(r)["id"]
	sess, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
	}
	return sess, ok
}

func (s *Server) rejected(w http.ResponseWriter, sess *orchestrator.Session, err error) {
	s.log.WithError(err).WithField("session_id", sess.ID()).Warn("event rejected")
	writeError(w, statusOf(err), err)
}

// --- handlers ---

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"uptime":   time.Since(s.started).Seconds(),
		"sessions": s.registry.Len(),
	})
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID()})
}

func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.registry.IDs()})
}

func (s *Server) sampleHandler(m emotion.Modality) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		var req sampleReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode %s sample: %w", m, err))
			return
		}
		push := sess.PushFacial
		if m == emotion.Vocal {
			push = sess.PushVocal
		}
		if err := push(req.ParticipantID, req.Emotions); err != nil {
			s.rejected(w, sess, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req transcriptReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode transcript: %w", err))
		return
	}
	if err := sess.PushTranscript(req.Speaker, req.Text); err != nil {
		s.rejected(w, sess, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) endHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rep, err := sess.End(s.registry.clock())
	if err != nil {
		s.rejected(w, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, sess.GenerateReport())
	}
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, sess.History())
	}
}

func (s *Server) segmentsHandler(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, sess.Segments())
	}
}

func (s *Server) momentsHandler(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, sess.KeyMoments())
	}
}
