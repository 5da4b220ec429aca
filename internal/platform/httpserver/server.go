package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	electionledger "tally/contexts/governance/election-ledger"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "tally/internal/platform/httpserver/docs"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	election electionledger.Module
}

func New(election electionledger.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		election: election,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/election/v1/voters", s.handleRegisterVoter)
	s.mux.HandleFunc("POST /api/election/v1/candidates", s.handleRegisterCandidate)
	s.mux.HandleFunc("POST /api/election/v1/voting/open", s.handleOpenVoting)
	s.mux.HandleFunc("POST /api/election/v1/votes", s.handleCastVote)
	s.mux.HandleFunc("POST /api/election/v1/winner/declare", s.handleDeclareWinner)

	s.mux.HandleFunc("GET /api/election/v1/voters/{voter_id}", s.handleVoterStatus)
	s.mux.HandleFunc("GET /api/election/v1/candidates/{candidate_id}", s.handleCandidateStatus)
	s.mux.HandleFunc("GET /api/election/v1/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/election/v1/winner", s.handleWinner)
	s.mux.HandleFunc("GET /api/election/v1/results", s.handleResults)
	s.mux.HandleFunc("GET /api/election/v1/audit", s.handleAudit)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// resolveCallerID reads the verified caller identity. The upstream gateway
// authenticates and injects the header; this layer only relays it.
func resolveCallerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}
