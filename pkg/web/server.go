// Package web serves the analysis reports as JSON plus SSE status streams.
// Dashboards and visualization clients consume this surface; the server
// itself renders nothing.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/ritzau/dag-analyzer/pkg/graph"
	"github.com/ritzau/dag-analyzer/pkg/logging"
	"github.com/ritzau/dag-analyzer/pkg/model"
	"github.com/ritzau/dag-analyzer/pkg/pubsub"
)

// GraphDocument is the JSON shape of the analyzed graph
type GraphDocument struct {
	Nodes    []string    `json:"nodes"`
	Edges    [][2]string `json:"edges"`
	Exposure string      `json:"exposure"`
	Outcome  string      `json:"outcome"`
}

// Server represents the report server
type Server struct {
	router    *mux.Router
	publisher pubsub.Publisher

	mu     sync.RWMutex
	report *model.AnalysisReport
	graph  *graph.Graph
}

// NewServer creates a new report server
func NewServer() *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// analysis_status: replay only the current state to new subscribers
	ssePublisher.ConfigureTopic("analysis_status", pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})
	ssePublisher.ConfigureTopic("analysis_report", pubsub.TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
	}
	s.setupRoutes()
	return s
}

// Publisher returns the publisher the analysis runner should publish to
func (s *Server) Publisher() pubsub.Publisher {
	return s.publisher
}

// SetReport stores the latest analysis report and the graph it describes
func (s *Server) SetReport(report *model.AnalysisReport, g *graph.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = report
	s.graph = g
}

// Start runs the HTTP server on the given port, blocking until it stops
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("report server listening", "addr", addr)
	return http.ListenAndServe(addr, logging.RequestIDMiddleware(s.router))
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/subscribe/analysis_status", s.handleSubscribe("analysis_status")).Methods("GET")
	s.router.HandleFunc("/api/subscribe/analysis_report", s.handleSubscribe("analysis_report")).Methods("GET")

	s.router.HandleFunc("/api/report", s.handleReport).Methods("GET")
	s.router.HandleFunc("/api/report/roles", s.handleSection(func(r *model.AnalysisReport) any { return r.Roles })).Methods("GET")
	s.router.HandleFunc("/api/report/cycles", s.handleSection(func(r *model.AnalysisReport) any { return r.Cycles })).Methods("GET")
	s.router.HandleFunc("/api/report/bias", s.handleBias).Methods("GET")
	s.router.HandleFunc("/api/report/confounders", s.handleSection(func(r *model.AnalysisReport) any { return r.Confounders })).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
}

// handleSubscribe streams a topic's events over SSE
func (s *Server) handleSubscribe(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		// Initial comment establishes the connection (Safari compatibility)
		fmt.Fprintf(w, ": connected\n\n")
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		sub, err := s.publisher.Subscribe(r.Context(), topic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer sub.Close()

		for event := range sub.Events() {
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing SSE event", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	report := s.report
	s.mu.RUnlock()

	if report == nil {
		http.Error(w, "no analysis has completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, report)
}

func (s *Server) handleSection(pick func(*model.AnalysisReport) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		report := s.report
		s.mu.RUnlock()

		if report == nil {
			http.Error(w, "no analysis has completed yet", http.StatusNotFound)
			return
		}
		section := pick(report)
		writeJSON(w, section)
	}
}

func (s *Server) handleBias(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	report := s.report
	s.mu.RUnlock()

	if report == nil {
		http.Error(w, "no analysis has completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"butterfly": report.Butterfly,
		"mbias":     report.MBias,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	if g == nil {
		http.Error(w, "no graph loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, GraphDocument{
		Nodes:    g.Nodes(),
		Edges:    g.Edges(),
		Exposure: g.Exposure(),
		Outcome:  g.Outcome(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("error encoding response", "error", err)
	}
}
