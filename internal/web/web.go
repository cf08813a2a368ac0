package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bridgecal/internal/assistant"
	"bridgecal/internal/calendar"
	"bridgecal/internal/config"
	"bridgecal/internal/log"
	"bridgecal/internal/refresh"
)

// actorHeader names the member performing a roster change.
const actorHeader = "X-Member-ID"

const maxBodyBytes = 64 << 10

// StatusSource reports provider refresh outcomes.
type StatusSource interface {
	Statuses() []refresh.Status
}

// Options wires a Server.
type Options struct {
	Board       *calendar.Board
	Parser      *assistant.Parser
	Submissions *assistant.Submissions
	// Sources may be nil when no feeds are configured.
	Sources StatusSource

	WeekStart time.Weekday
	// Now is the clock used for "today". Nil means time.Now.
	Now func() time.Time

	BasicAuth *config.BasicAuthConfig
}

// Server exposes the group calendar as a JSON API.
type Server struct {
	board   *calendar.Board
	parser  *assistant.Parser
	subs    *assistant.Submissions
	sources StatusSource

	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time

	auth *config.BasicAuthConfig
}

func NewServer(opts Options) *Server {
	s := &Server{
		board:     opts.Board,
		parser:    opts.Parser,
		subs:      opts.Submissions,
		sources:   opts.Sources,
		weekStart: opts.WeekStart,
		now:       opts.Now,
		auth:      opts.BasicAuth,
	}
	// Grid days and index buckets must agree on the calendar day.
	s.loc = s.board.Location()
	if s.now == nil {
		s.now = time.Now
	}
	if s.subs == nil {
		s.subs = assistant.NewSubmissions()
	}
	return s
}

// today returns the current moment in the display location.
func (s *Server) today() time.Time {
	return s.now().In(s.loc)
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if s.basicAuthEnabled() {
		log.Info("HTTP basic auth enabled")
		r.Use(s.basicAuthMiddleware)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/group", s.handleGroup)
		r.Get("/grid", s.handleGrid)
		r.Get("/events", s.handleEvents)
		r.Get("/events/{id}", s.handleEvent)
		r.Get("/days", s.handleDays)
		r.Post("/events/{id}/share", s.handleToggleShare)
		r.Get("/calendar.ics", s.handleExport)
		r.Get("/sources", s.handleSources)

		r.Post("/assistant", s.handleAssistant)
		r.Get("/assistant/{memberID}", s.handleAssistantStatus)
		r.Delete("/assistant/{memberID}", s.handleAssistantCancel)

		r.Get("/illustrations", s.handleIllustrations)
		r.Get("/members", s.handleMembers)
		r.Post("/members", s.handleInvite)
		r.Delete("/members/{id}", s.handleRemoveMember)
		r.Put("/members/{id}/avatar", s.handleSetAvatar)
	})
	return r
}

func (s *Server) basicAuthEnabled() bool {
	return s.auth != nil && s.auth.Username != "" && s.auth.Password != ""
}

// basicAuthMiddleware guards every route except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username, password := s.auth.Username, s.auth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Bridge", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start).Round(time.Microsecond),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleGroup(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Group())
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	statuses := []refresh.Status{}
	if s.sources != nil {
		statuses = s.sources.Statuses()
	}
	writeJSON(w, http.StatusOK, statuses)
}

// notModified tags the response with the board version plus extra and
// reports whether the client already holds that version.
func (s *Server) notModified(w http.ResponseWriter, r *http.Request, extra string) bool {
	tag := `"` + strconv.FormatUint(s.board.Version(), 10) + extra + `"`
	w.Header().Set("ETag", tag)
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeBoardError maps calendar errors to HTTP statuses.
func writeBoardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, calendar.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, calendar.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("board operation failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
