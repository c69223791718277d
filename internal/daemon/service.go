// Package daemon provides the long-running background session monitor service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/theirongolddev/clawmon/internal/cost"
	"github.com/theirongolddev/clawmon/internal/health"
	"github.com/theirongolddev/clawmon/internal/pricing"
)

// Config controls the daemon runtime behavior.
type Config struct {
	SessionsDir  string
	CostsDir     string
	PricingFile  string
	Interval     time.Duration
	Addr         string
	EventsBuffer int
}

// Snapshot is a compact monitor state for status/event payloads.
type Snapshot struct {
	At            time.Time `json:"at"`
	Sessions      int       `json:"sessions"`
	Healthy       int       `json:"healthy"`
	Warning       int       `json:"warning"`
	Critical      int       `json:"critical"`
	TodayRequests int       `json:"today_requests"`
	TodayCostUSD  float64   `json:"today_cost_usd"`
}

// Event is emitted on the first poll and whenever a session changes status.
type Event struct {
	ID             int64         `json:"id"`
	Type           string        `json:"type"`
	Timestamp      time.Time     `json:"timestamp"`
	SessionID      string        `json:"session_id,omitempty"`
	From           health.Status `json:"from,omitempty"`
	To             health.Status `json:"to,omitempty"`
	Recommendation string        `json:"recommendation,omitempty"`
	Snapshot       Snapshot      `json:"snapshot"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	SessionsDir     string    `json:"sessions_dir"`
	Summary         Snapshot  `json:"summary"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API. It owns the growth
// history for the whole process lifetime, which is what makes growth-rate
// detection work at all: one-shot CLI scans never see two samples.
type Service struct {
	cfg       Config
	monitor   *health.Monitor
	estimator *cost.Estimator

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	snapshot    Snapshot
	sessions    []health.Health
	lastStatus  map[string]health.Status
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 15 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8791"
	}

	return &Service{
		cfg:        cfg,
		monitor:    health.NewMonitor(cfg.SessionsDir),
		estimator:  cost.NewEstimator(pricing.NewTable(cfg.PricingFile), cfg.CostsDir),
		startedAt:  time.Now(),
		lastStatus: make(map[string]health.Status),
		subs:       make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/sessions", s.handleSessions)
	mux.HandleFunc("/v1/alerts", s.handleAlerts)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce()
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce() {
	now := time.Now()
	sessions := s.monitor.Sessions()
	summary := s.estimator.TodaySummary()

	snap := Snapshot{
		At:            now,
		Sessions:      len(sessions),
		TodayRequests: summary.Requests,
		TodayCostUSD:  summary.TotalCost,
	}
	for _, h := range sessions {
		switch h.Status {
		case health.StatusCritical:
			snap.Critical++
		case health.StatusWarning:
			snap.Warning++
		default:
			snap.Healthy++
		}
	}

	var pending []Event

	s.mu.Lock()
	firstPoll := s.pollCount == 0
	s.snapshot = snap
	s.sessions = sessions
	s.lastPollAt = now
	s.pollCount++

	if firstPoll {
		s.nextEventID++
		pending = append(pending, Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Timestamp: now,
			Snapshot:  snap,
		})
	}

	seen := make(map[string]bool, len(sessions))
	for _, h := range sessions {
		seen[h.SessionID] = true
		prev, known := s.lastStatus[h.SessionID]
		if known && prev == h.Status {
			continue
		}
		s.lastStatus[h.SessionID] = h.Status
		// New sessions only produce an event when they arrive unhealthy.
		if !known && h.Status == health.StatusHealthy {
			continue
		}
		s.nextEventID++
		pending = append(pending, Event{
			ID:             s.nextEventID,
			Type:           "status_change",
			Timestamp:      now,
			SessionID:      h.SessionID,
			From:           prev,
			To:             h.Status,
			Recommendation: h.Recommendation,
			Snapshot:       snap,
		})
	}
	for id := range s.lastStatus {
		if !seen[id] {
			delete(s.lastStatus, id)
		}
	}
	s.mu.Unlock()

	for _, ev := range pending {
		s.publishEvent(ev)
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		SessionsDir:     s.cfg.SessionsDir,
		Summary:         s.snapshot,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleSessions(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	sessions := make([]health.Health, len(s.sessions))
	copy(sessions, s.sessions)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sessions)
}

func (s *Service) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	alerts := make([]health.Health, 0)
	for _, h := range s.sessions {
		if h.Status != health.StatusHealthy {
			alerts = append(alerts, h)
		}
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alerts)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
