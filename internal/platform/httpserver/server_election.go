package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	electionerrors "tally/contexts/governance/election-ledger/domain/errors"
	electionhttp "tally/contexts/governance/election-ledger/transport/http"
)

func writeElectionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, electionhttp.ErrorResponse{Code: code, Message: message})
}

func writeElectionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, electionerrors.ErrNotOwner):
		writeElectionError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, electionerrors.ErrZeroIdentifier):
		writeElectionError(w, http.StatusUnprocessableEntity, "zero_identifier", err.Error())
	case errors.Is(err, electionerrors.ErrDurationTooShort):
		writeElectionError(w, http.StatusUnprocessableEntity, "duration_too_short", err.Error())
	case errors.Is(err, electionerrors.ErrDurationTooLong):
		writeElectionError(w, http.StatusUnprocessableEntity, "duration_too_long", err.Error())
	case errors.Is(err, electionerrors.ErrAlreadyRegistered):
		writeElectionError(w, http.StatusConflict, "already_registered", err.Error())
	case errors.Is(err, electionerrors.ErrAlreadyVoted):
		writeElectionError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, electionerrors.ErrRegistrationClosed):
		writeElectionError(w, http.StatusConflict, "registration_closed", err.Error())
	case errors.Is(err, electionerrors.ErrVotingNotOpen):
		writeElectionError(w, http.StatusConflict, "voting_not_open", err.Error())
	case errors.Is(err, electionerrors.ErrElectionEnded):
		writeElectionError(w, http.StatusConflict, "election_ended", err.Error())
	case errors.Is(err, electionerrors.ErrElectionNotEnded):
		writeElectionError(w, http.StatusConflict, "election_not_ended", err.Error())
	case errors.Is(err, electionerrors.ErrVoterNotRegistered):
		writeElectionError(w, http.StatusNotFound, "voter_not_registered", err.Error())
	case errors.Is(err, electionerrors.ErrCandidateNotRegistered):
		writeElectionError(w, http.StatusNotFound, "candidate_not_registered", err.Error())
	default:
		writeElectionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireElectionCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	callerID := resolveCallerID(r)
	if callerID == "" {
		writeElectionError(w, http.StatusUnauthorized, "missing_caller", "X-User-Id header is required")
		return "", false
	}
	return callerID, true
}

func (s *Server) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireElectionCaller(w, r)
	if !ok {
		return
	}
	var req electionhttp.RegisterVoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	resp, err := s.election.Handler.RegisterVoterHandler(r.Context(), callerID, req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRegisterCandidate(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireElectionCaller(w, r)
	if !ok {
		return
	}
	var req electionhttp.RegisterCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	resp, err := s.election.Handler.RegisterCandidateHandler(r.Context(), callerID, req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleOpenVoting(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireElectionCaller(w, r)
	if !ok {
		return
	}
	var req electionhttp.OpenVotingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_ends_at", "ends_at must be RFC3339")
		return
	}
	resp, err := s.election.Handler.OpenVotingHandler(r.Context(), callerID, endsAt)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireElectionCaller(w, r)
	if !ok {
		return
	}
	var req electionhttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	resp, err := s.election.Handler.CastVoteHandler(r.Context(), callerID, req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeclareWinner(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireElectionCaller(w, r)
	if !ok {
		return
	}
	resp, err := s.election.Handler.DeclareWinnerHandler(r.Context(), callerID)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoterStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.VoterStatusHandler(r.Context(), r.PathValue("voter_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCandidateStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.CandidateStatusHandler(r.Context(), r.PathValue("candidate_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.StatusHandler(r.Context())
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWinner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.WinnerHandler(r.Context())
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.ResultsHandler(r.Context())
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed < 0 {
			writeElectionError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	resp, err := s.election.Handler.AuditHandler(r.Context(), limit)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
