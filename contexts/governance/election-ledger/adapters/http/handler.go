package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"tally/contexts/governance/election-ledger/application/commands"
	"tally/contexts/governance/election-ledger/application/queries"
	"tally/contexts/governance/election-ledger/domain/entities"
	domainerrors "tally/contexts/governance/election-ledger/domain/errors"
	httptransport "tally/contexts/governance/election-ledger/transport/http"
)

// Handler maps transport DTOs to use-case commands and queries. The caller id
// arrives from the platform layer already verified; the use case still
// enforces ownership itself.
type Handler struct {
	Commands *commands.ElectionUseCase
	Queries  queries.StatusUseCase
	Logger   *slog.Logger
}

func (h Handler) RegisterVoterHandler(
	ctx context.Context,
	callerID string,
	req httptransport.RegisterVoterRequest,
) (httptransport.RegisterResponse, error) {
	err := h.Commands.RegisterVoter(ctx, commands.RegisterVoterCommand{
		CallerID: entities.Principal(callerID),
		VoterID:  entities.Principal(req.VoterID),
	})
	if err != nil {
		return httptransport.RegisterResponse{}, err
	}
	return httptransport.RegisterResponse{
		PrincipalID: req.VoterID,
		Role:        "voter",
	}, nil
}

func (h Handler) RegisterCandidateHandler(
	ctx context.Context,
	callerID string,
	req httptransport.RegisterCandidateRequest,
) (httptransport.RegisterResponse, error) {
	err := h.Commands.RegisterCandidate(ctx, commands.RegisterCandidateCommand{
		CallerID:    entities.Principal(callerID),
		CandidateID: entities.Principal(req.CandidateID),
	})
	if err != nil {
		return httptransport.RegisterResponse{}, err
	}
	return httptransport.RegisterResponse{
		PrincipalID: req.CandidateID,
		Role:        "candidate",
	}, nil
}

// OpenVotingHandler receives the end timestamp already parsed; the platform
// layer owns rejecting malformed RFC3339 input.
func (h Handler) OpenVotingHandler(
	ctx context.Context,
	callerID string,
	endsAt time.Time,
) (httptransport.OpenVotingResponse, error) {
	if err := h.Commands.OpenVoting(ctx, commands.OpenVotingCommand{
		CallerID: entities.Principal(callerID),
		EndsAt:   endsAt,
	}); err != nil {
		return httptransport.OpenVotingResponse{}, err
	}
	return httptransport.OpenVotingResponse{
		Phase:  string(entities.PhaseVoting),
		EndsAt: endsAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	callerID string,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	result, err := h.Commands.CastVote(ctx, commands.CastVoteCommand{
		CallerID:    entities.Principal(callerID),
		CandidateID: entities.Principal(req.CandidateID),
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		CandidateID:   string(result.Candidate),
		Votes:         result.Votes,
		LeaderChanged: result.LeaderChanged,
	}, nil
}

func (h Handler) DeclareWinnerHandler(ctx context.Context, callerID string) (httptransport.WinnerResponse, error) {
	result, err := h.Commands.DeclareWinner(ctx, commands.DeclareWinnerCommand{
		CallerID: entities.Principal(callerID),
	})
	if err != nil {
		return httptransport.WinnerResponse{}, err
	}
	return httptransport.WinnerResponse{
		WinnerID: string(result.Winner),
		Votes:    result.Votes,
		Declared: result.Declared,
	}, nil
}

func (h Handler) VoterStatusHandler(ctx context.Context, voterID string) (httptransport.VoterStatusResponse, error) {
	if entities.Principal(voterID).IsZero() {
		return httptransport.VoterStatusResponse{}, domainerrors.ErrZeroIdentifier
	}
	status, err := h.Queries.VoterStatus(ctx, entities.Principal(voterID))
	if err != nil {
		return httptransport.VoterStatusResponse{}, err
	}
	return httptransport.VoterStatusResponse{
		VoterID:    voterID,
		Registered: status.Registered,
		HasVoted:   status.HasVoted,
	}, nil
}

func (h Handler) CandidateStatusHandler(ctx context.Context, candidateID string) (httptransport.CandidateStatusResponse, error) {
	if entities.Principal(candidateID).IsZero() {
		return httptransport.CandidateStatusResponse{}, domainerrors.ErrZeroIdentifier
	}
	status, err := h.Queries.CandidateStatus(ctx, entities.Principal(candidateID))
	if err != nil {
		return httptransport.CandidateStatusResponse{}, err
	}
	return httptransport.CandidateStatusResponse{
		CandidateID: candidateID,
		Registered:  status.Registered,
		Votes:       status.Votes,
	}, nil
}

func (h Handler) StatusHandler(ctx context.Context) (httptransport.StatusResponse, error) {
	state, err := h.Queries.Status(ctx)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	resp := httptransport.StatusResponse{
		Phase: string(state.Phase),
	}
	if state.VotingEndsAt != nil {
		resp.EndsAt = state.VotingEndsAt.UTC().Format(time.RFC3339)
	}
	if leader, votes, ok := state.Leader(); ok {
		resp.LeaderID = string(leader)
		resp.LeaderVotes = votes
		resp.LeaderExists = true
	}
	return resp, nil
}

func (h Handler) WinnerHandler(ctx context.Context) (httptransport.WinnerResponse, error) {
	winner, votes, declared, err := h.Queries.Winner(ctx)
	if err != nil {
		return httptransport.WinnerResponse{}, err
	}
	return httptransport.WinnerResponse{
		WinnerID: string(winner),
		Votes:    votes,
		Declared: declared,
	}, nil
}

func (h Handler) ResultsHandler(ctx context.Context) (httptransport.ResultsResponse, error) {
	tallies, err := h.Queries.Results(ctx)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	items := make([]httptransport.ResultItem, 0, len(tallies))
	for i, tally := range tallies {
		items = append(items, httptransport.ResultItem{
			CandidateID: string(tally.Principal),
			Votes:       tally.Votes,
			Rank:        i + 1,
		})
	}
	return httptransport.ResultsResponse{Items: items}, nil
}

func (h Handler) AuditHandler(ctx context.Context, limit int) (httptransport.AuditResponse, error) {
	records, err := h.Queries.AuditTrail(ctx, limit)
	if err != nil {
		return httptransport.AuditResponse{}, err
	}
	items := make([]httptransport.AuditItem, 0, len(records))
	for _, record := range records {
		items = append(items, httptransport.AuditItem{
			EventID:    record.EventID,
			EventType:  record.EventType,
			SubjectID:  string(record.Subject),
			RecordedAt: record.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	return httptransport.AuditResponse{Items: items}, nil
}
