// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mockbackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/lpbme/club-validator/lib/clock"
	"github.com/lpbme/club-validator/lib/netutil"
	"github.com/lpbme/club-validator/lib/service"
)

// Rejection reasons, as the real backend words them.
const (
	ReasonUnknown  = "QR no válido"
	ReasonUsed     = "QR ya usado hoy"
	ReasonExpired  = "QR caducado"
	reasonNotFound = "Recurso no encontrado"
)

const (
	defaultDays = 7
	maxDays     = 31
	recentLimit = 10
)

// Config configures a Server.
type Config struct {
	Fixtures Fixtures

	// LegacyKeys selects the historical metric field spellings.
	LegacyKeys bool

	// Location decides day boundaries. Defaults to time.Local.
	Location *time.Location

	Clock  clock.Clock
	Logger *slog.Logger
}

// scan is one recorded submission, valid or not.
type scan struct {
	at         time.Time
	resourceID int64
	villageID  string
	valid      bool
	adults     int
	minors     int
}

// Server is the in-memory backend. Safe for concurrent use.
type Server struct {
	legacy   bool
	location *time.Location
	clock    clock.Clock
	logger   *slog.Logger

	villages  map[string]Village
	resources map[int64]Resource
	passes    map[string]Pass

	mu sync.Mutex
	// usedOn maps a token to the day it last validated.
	usedOn map[string]string
	scans  []scan
}

// New creates a Server over validated fixtures.
func New(config Config) (*Server, error) {
	if err := config.Fixtures.Validate(); err != nil {
		return nil, fmt.Errorf("mockbackend: %w", err)
	}
	location := config.Location
	if location == nil {
		location = time.Local
	}
	c := config.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		legacy:    config.LegacyKeys,
		location:  location,
		clock:     c,
		logger:    logger,
		villages:  make(map[string]Village),
		resources: make(map[int64]Resource),
		passes:    make(map[string]Pass),
		usedOn:    make(map[string]string),
	}
	for _, village := range config.Fixtures.Villages {
		s.villages[village.ID] = village
	}
	for _, resource := range config.Fixtures.Resources {
		s.resources[resource.ID] = resource
	}
	for _, pass := range config.Fixtures.Passes {
		s.passes[pass.Token] = pass
	}
	return s, nil
}

// Handler returns the routes of the Club API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /scan", s.handleScan)
	mux.HandleFunc("GET /validator/metrics", s.handleResourceMetrics)
	mux.HandleFunc("GET /validator/metrics-by-village", s.handleVillageMetrics)
	return mux
}

// Scans returns how many submissions have been recorded.
func (s *Server) Scans() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scans)
}

// Reset forgets every recorded scan and use.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usedOn = make(map[string]string)
	s.scans = nil
}

type scanRequest struct {
	QRToken       string `json:"qrToken"`
	RecursoID     int64  `json:"recursoId"`
	AdultosUsados int    `json:"adultosUsados"`
	MenoresUsados int    `json:"menoresUsados"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var request scanRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, netutil.MaxResponseSize))
	if err := decoder.Decode(&request); err != nil {
		service.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	if request.AdultosUsados < 1 || request.AdultosUsados > 2 ||
		request.MenoresUsados < 0 || request.MenoresUsados > 5 {
		service.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error": "adultosUsados must be 1 or 2 and menoresUsados 0 to 5",
		})
		return
	}
	resource, ok := s.resources[request.RecursoID]
	if !ok {
		service.WriteJSON(w, http.StatusNotFound, map[string]any{"error": reasonNotFound})
		return
	}

	pass, known := s.passes[request.QRToken]
	if known && pass.ForceStatus != 0 {
		s.logger.Info("forced status", "status", pass.ForceStatus)
		service.WriteJSON(w, pass.ForceStatus, map[string]any{"error": http.StatusText(pass.ForceStatus)})
		return
	}

	now := s.clock.Now().In(s.location)
	today := now.Format(dateLayout)

	s.mu.Lock()
	reason := ""
	switch {
	case !known:
		reason = ReasonUnknown
	case pass.Expires != "" && today > pass.Expires:
		reason = ReasonExpired
	case s.usedOn[pass.Token] == today:
		reason = ReasonUsed
	default:
		s.usedOn[pass.Token] = today
	}
	s.scans = append(s.scans, scan{
		at:         now,
		resourceID: resource.ID,
		villageID:  resource.VillageID,
		valid:      reason == "",
		adults:     request.AdultosUsados,
		minors:     request.MenoresUsados,
	})
	s.mu.Unlock()

	village := s.villages[resource.VillageID]
	if reason != "" {
		service.WriteJSON(w, http.StatusOK, map[string]any{
			"valido":        false,
			"motivo":        reason,
			"puebloId":      village.ID,
			"puebloNombre":  village.Name,
			"recursoNombre": resource.Name,
		})
		return
	}
	service.WriteJSON(w, http.StatusOK, map[string]any{
		"valido":              true,
		"puebloId":            village.ID,
		"puebloNombre":        village.Name,
		"recursoNombre":       resource.Name,
		"adultosAplicados":    request.AdultosUsados,
		"menoresAplicados":    request.MenoresUsados,
		"descuentoPorcentaje": resource.Discount,
		"titular":             pass.Holder,
	})
}

func (s *Server) handleResourceMetrics(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("recursoId"), 10, 64)
	if err != nil {
		service.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "recursoId must be an integer"})
		return
	}
	if _, ok := s.resources[id]; !ok {
		service.WriteJSON(w, http.StatusNotFound, map[string]any{"error": reasonNotFound})
		return
	}
	days, err := parseDays(r)
	if err != nil {
		service.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	s.writeMetrics(w, days, func(sc scan) bool { return sc.resourceID == id })
}

func (s *Server) handleVillageMetrics(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("puebloId")
	if _, ok := s.villages[id]; !ok {
		service.WriteJSON(w, http.StatusNotFound, map[string]any{"error": "Pueblo no encontrado"})
		return
	}
	days, err := parseDays(r)
	if err != nil {
		service.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	s.writeMetrics(w, days, func(sc scan) bool { return sc.villageID == id })
}

func parseDays(r *http.Request) (int, error) {
	text := r.URL.Query().Get("days")
	if text == "" {
		return defaultDays, nil
	}
	days, err := strconv.Atoi(text)
	if err != nil || days < 1 || days > maxDays {
		return 0, errors.New("days must be between 1 and 31")
	}
	return days, nil
}

type tally struct {
	total, ok, adults, minors int
}

func (t *tally) add(sc scan) {
	t.total++
	if sc.valid {
		t.ok++
		t.adults += sc.adults
		t.minors += sc.minors
	}
}

// writeMetrics aggregates the scans matching include. Companion counts
// only include valid scans; a rejected pass grants no entry.
func (s *Server) writeMetrics(w http.ResponseWriter, days int, include func(scan) bool) {
	now := s.clock.Now().In(s.location)
	today := now.Format(dateLayout)

	dates := make([]string, days)
	byDate := make(map[string]*tally, days)
	for i := range days {
		date := now.AddDate(0, 0, i-days+1).Format(dateLayout)
		dates[i] = date
		byDate[date] = &tally{}
	}

	s.mu.Lock()
	var recent []scan
	for i := len(s.scans) - 1; i >= 0; i-- {
		sc := s.scans[i]
		if !include(sc) {
			continue
		}
		if t := byDate[sc.at.In(s.location).Format(dateLayout)]; t != nil {
			t.add(sc)
		}
		if len(recent) < recentLimit {
			recent = append(recent, sc)
		}
	}
	s.mu.Unlock()

	service.WriteJSON(w, http.StatusOK, s.metricsBody(dates, byDate, byDate[today], recent))
}

func (s *Server) metricsBody(dates []string, byDate map[string]*tally, today *tally, recent []scan) map[string]any {
	okKey, daysKey, recentKey := "ok", "ultimosDias", "ultimosEscaneos"
	if s.legacy {
		okKey, daysKey, recentKey = "validas", "ultimos7Dias", "escaneos"
	}

	todayBody := map[string]any{
		"total":   today.total,
		okKey:     today.ok,
		"adultos": today.adults,
		"menores": today.minors,
	}
	if s.legacy {
		todayBody["invalidas"] = today.total - today.ok
	} else {
		todayBody["noOk"] = today.total - today.ok
	}

	dayList := make([]map[string]any, 0, len(dates))
	for _, date := range dates {
		t := byDate[date]
		dayList = append(dayList, map[string]any{
			"fecha":   date,
			"total":   t.total,
			okKey:     t.ok,
			"adultos": t.adults,
			"menores": t.minors,
		})
	}

	recentList := make([]map[string]any, 0, len(recent))
	for _, sc := range recent {
		item := map[string]any{
			"fecha":   sc.at.Format(time.RFC3339),
			"adultos": sc.adults,
			"menores": sc.minors,
		}
		if s.legacy {
			item["valido"] = sc.valid
		} else if sc.valid {
			item["resultado"] = "VALIDO"
		} else {
			item["resultado"] = "NO VALIDO"
		}
		recentList = append(recentList, item)
	}

	return map[string]any{
		"hoy":     todayBody,
		daysKey:   dayList,
		recentKey: recentList,
	}
}
