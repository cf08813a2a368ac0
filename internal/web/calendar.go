package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bridgecal/internal/grid"
	"bridgecal/internal/ics"
	"bridgecal/internal/index"
	"bridgecal/internal/model"
)

const dayLayout = "2006-01-02"

type cellView struct {
	Date     string                `json:"date"`
	InPeriod bool                  `json:"in_period"`
	IsToday  bool                  `json:"is_today"`
	Events   []model.CalendarEvent `json:"events"`
}

type gridView struct {
	Mode     grid.Mode    `json:"mode"`
	Filter   model.Filter `json:"filter"`
	Date     string       `json:"date"`
	Today    string       `json:"today"`
	Title    string       `json:"title"`
	Prev     string       `json:"prev"`
	Next     string       `json:"next"`
	Weekdays []string     `json:"weekdays"`
	Cells    []cellView   `json:"cells"`
}

// handleGrid renders one month or week with its events.
//
// Query: date=YYYY-MM-DD (default today), mode=month|week, filter=all|shared|private.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode, err := grid.ParseMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, ok := model.ParseFilter(q.Get("filter"))
	if !ok {
		writeError(w, http.StatusBadRequest, "filter must be all, shared or private")
		return
	}

	today := s.today()
	ref := today
	if d := q.Get("date"); d != "" {
		k, err := index.ParseDayKey(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		ref = k.Time(s.loc)
	}

	// is_today and the default date move at midnight even if the board does not.
	if s.notModified(w, r, "-"+today.Format("20060102")) {
		return
	}

	idx := s.board.Index(filter)
	cells := grid.Build(ref, mode, s.weekStart)
	views := make([]cellView, len(cells))
	for i, c := range cells {
		views[i] = cellView{
			Date:     c.Date.Format(dayLayout),
			InPeriod: c.InPeriod,
			IsToday:  grid.IsToday(c.Date, today),
			Events:   idx.Lookup(c.Date),
		}
	}

	weekdays := grid.Weekdays(s.weekStart)
	names := make([]string, len(weekdays))
	for i, wd := range weekdays {
		names[i] = wd.String()[:3]
	}

	writeJSON(w, http.StatusOK, gridView{
		Mode:     mode,
		Filter:   filter,
		Date:     ref.Format(dayLayout),
		Today:    today.Format(dayLayout),
		Title:    grid.Title(ref),
		Prev:     grid.Step(ref, mode, -1).Format(dayLayout),
		Next:     grid.Step(ref, mode, 1).Format(dayLayout),
		Weekdays: names,
		Cells:    views,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	filter, ok := model.ParseFilter(r.URL.Query().Get("filter"))
	if !ok {
		writeError(w, http.StatusBadRequest, "filter must be all, shared or private")
		return
	}
	if s.notModified(w, r, "") {
		return
	}
	writeJSON(w, http.StatusOK, s.board.Events(filter))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.board.Event(chi.URLParam(r, "id"))
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type dayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// handleDays lists the days that have events, for busy-day markers in the
// month and year picker.
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	filter, ok := model.ParseFilter(r.URL.Query().Get("filter"))
	if !ok {
		writeError(w, http.StatusBadRequest, "filter must be all, shared or private")
		return
	}
	if s.notModified(w, r, "") {
		return
	}
	idx := s.board.Index(filter)
	keys := idx.Keys()
	out := make([]dayCount, len(keys))
	for i, k := range keys {
		out[i] = dayCount{Date: k.String(), Count: idx.Count(k)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleToggleShare(w http.ResponseWriter, r *http.Request) {
	e, err := s.board.ToggleShare(chi.URLParam(r, "id"))
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleExport serves the calendar as text/calendar for subscription.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, ok := model.ParseFilter(r.URL.Query().Get("filter"))
	if !ok {
		writeError(w, http.StatusBadRequest, "filter must be all, shared or private")
		return
	}
	body := ics.Export(s.board.Group(), s.board.Events(filter), s.now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="bridge.ics"`)
	w.Header().Set("Last-Modified", s.now().UTC().Format(time.RFC1123))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
