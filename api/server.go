package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gregtusar/ctdbasis/pkg/hedger"
	"github.com/sirupsen/logrus"
)

type Server struct {
	hedger *hedger.Hedger
	logger *logrus.Logger
	port   string
}

func NewServer(hedger *hedger.Hedger, logger *logrus.Logger, port string) *Server {
	return &Server{
		hedger: hedger,
		logger: logger,
		port:   port,
	}
}

func (s *Server) Start() error {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/ctd", s.handleCTDResults)
	mux.HandleFunc("/api/hedges", s.handleHedges)
	mux.HandleFunc("/api/candidates", s.handleCandidates)
	mux.HandleFunc("/api/order", s.handleOrder)
	mux.HandleFunc("/api/run", s.handleRun)

	// Enable CORS for dashboard frontends
	handler := corsMiddleware(mux)

	s.logger.Infof("Starting API server on port %s", s.port)
	return http.ListenAndServe(":"+s.port, handler)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}
	if last := s.hedger.LastRun(); last != nil {
		response["last_run_at"] = last.RunAt
	}

	s.writeJSON(w, http.StatusOK, response)
}

// lastRun fetches the most recent result or answers 404 before the
// first completed run.
func (s *Server) lastRun(w http.ResponseWriter, r *http.Request) *hedger.Result {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil
	}
	last := s.hedger.LastRun()
	if last == nil {
		http.Error(w, "No completed run", http.StatusNotFound)
		return nil
	}
	return last
}

func (s *Server) handleCTDResults(w http.ResponseWriter, r *http.Request) {
	if last := s.lastRun(w, r); last != nil {
		s.writeJSON(w, http.StatusOK, last.CTDResults)
	}
}

func (s *Server) handleHedges(w http.ResponseWriter, r *http.Request) {
	if last := s.lastRun(w, r); last != nil {
		s.writeJSON(w, http.StatusOK, last.RankedPairs)
	}
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	if last := s.lastRun(w, r); last != nil {
		s.writeJSON(w, http.StatusOK, last.Candidates)
	}
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	last := s.lastRun(w, r)
	if last == nil {
		return
	}
	if last.Order == nil {
		http.Error(w, "Run produced no executable order", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, last.Order)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.hedger.Run(r.Context(), time.Now())
	if err != nil {
		s.logger.WithError(err).Error("On-demand run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}
