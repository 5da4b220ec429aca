package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	application "tally/contexts/governance/election-ledger/application"
	"tally/contexts/governance/election-ledger/domain/entities"
	domainerrors "tally/contexts/governance/election-ledger/domain/errors"
	"tally/contexts/governance/election-ledger/ports"
)

// RegisterVoterCommand enrolls one voter during the registration phase.
type RegisterVoterCommand struct {
	CallerID entities.Principal
	VoterID  entities.Principal
}

// RegisterCandidateCommand enrolls one candidate during the registration phase.
type RegisterCandidateCommand struct {
	CallerID    entities.Principal
	CandidateID entities.Principal
}

// OpenVotingCommand closes registration and opens the voting window.
type OpenVotingCommand struct {
	CallerID entities.Principal
	EndsAt   time.Time
}

// CastVoteCommand records the caller's single vote for a candidate.
type CastVoteCommand struct {
	CallerID    entities.Principal
	CandidateID entities.Principal
}

// DeclareWinnerCommand seals the election after the voting window elapsed.
type DeclareWinnerCommand struct {
	CallerID entities.Principal
}

// CastVoteResult returns the post-vote tally and leader view.
type CastVoteResult struct {
	Candidate     entities.Principal
	Votes         uint64
	LeaderChanged bool
}

// DeclareWinnerResult carries the sealed outcome. Declared is false when no
// vote was ever accepted; Winner is then the reserved zero principal.
type DeclareWinnerResult struct {
	Winner   entities.Principal
	Votes    uint64
	Declared bool
}

// ElectionUseCase orchestrates all ledger writes. Invariants it enforces:
// strictly forward phase transitions, owner-gated administration, at most one
// vote per voter, and first-to-count leader tracking.
//
// Operations run one at a time behind the instance mutex; every operation
// validates all preconditions before its first write, so a rejected call
// leaves the ledger untouched.
type ElectionUseCase struct {
	mu sync.Mutex

	Repo   ports.ElectionRepository
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger

	// Owner is the verified principal allowed to administer the election,
	// fixed at construction by the composition root.
	Owner entities.Principal

	// Voting window bounds for OpenVoting. Zero values fall back to the
	// protocol defaults.
	MinVotingWindow time.Duration
	MaxVotingWindow time.Duration
}

// RegisterVoter adds a voter to the registry. Owner-only, registration phase
// only, duplicate and zero identifiers rejected.
func (uc *ElectionUseCase) RegisterVoter(ctx context.Context, cmd RegisterVoterCommand) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	logger := application.ResolveLogger(uc.Logger)
	logger.Info("voter registration started",
		"event", "election_register_voter_started",
		"module", "governance/election-ledger",
		"layer", "application",
		"caller_id", string(cmd.CallerID),
		"voter_id", string(cmd.VoterID),
	)

	if cmd.CallerID != uc.Owner || uc.Owner.IsZero() {
		logger.Warn("voter registration rejected: caller is not owner",
			"event", "election_register_voter_not_owner",
			"module", "governance/election-ledger",
			"layer", "application",
			"caller_id", string(cmd.CallerID),
		)
		return fmt.Errorf("%w: %s", domainerrors.ErrNotOwner, cmd.CallerID)
	}

	state, err := uc.Repo.GetState(ctx)
	if err != nil {
		return err
	}
	if state.Phase != entities.PhaseRegistration {
		logger.Warn("voter registration rejected: registration closed",
			"event", "election_register_voter_phase_rejected",
			"module", "governance/election-ledger",
			"layer", "application",
			"phase", string(state.Phase),
			"voter_id", string(cmd.VoterID),
		)
		return domainerrors.ErrRegistrationClosed
	}
	if cmd.VoterID.IsZero() {
		return domainerrors.ErrZeroIdentifier
	}
	if _, found, err := uc.Repo.GetVoter(ctx, cmd.VoterID); err != nil {
		return err
	} else if found {
		logger.Warn("voter registration rejected: duplicate",
			"event", "election_register_voter_duplicate",
			"module", "governance/election-ledger",
			"layer", "application",
			"voter_id", string(cmd.VoterID),
		)
		return fmt.Errorf("%w: %s", domainerrors.ErrAlreadyRegistered, cmd.VoterID)
	}

	now := uc.now()
	if err := uc.Repo.SaveVoter(ctx, entities.VoterRecord{
		Principal:    cmd.VoterID,
		HasVoted:     false,
		RegisteredAt: now,
	}); err != nil {
		return err
	}
	if err := uc.appendLedgerEvent(ctx, EventVoterRegistered, cmd.VoterID, now, map[string]any{
		"voter_id": string(cmd.VoterID),
	}); err != nil {
		return err
	}

	logger.Info("voter registered",
		"event", "election_voter_registered",
		"module", "governance/election-ledger",
		"layer", "application",
		"voter_id", string(cmd.VoterID),
	)
	return nil
}

// RegisterCandidate adds a candidate with a zero tally. Same gating as
// RegisterVoter; the same principal may hold both roles.
func (uc *ElectionUseCase) RegisterCandidate(ctx context.Context, cmd RegisterCandidateCommand) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	logger := application.ResolveLogger(uc.Logger)
	logger.Info("candidate registration started",
		"event", "election_register_candidate_started",
		"module", "governance/election-ledger",
		"layer", "application",
		"caller_id", string(cmd.CallerID),
		"candidate_id", string(cmd.CandidateID),
	)

	if cmd.CallerID != uc.Owner || uc.Owner.IsZero() {
		logger.Warn("candidate registration rejected: caller is not owner",
			"event", "election_register_candidate_not_owner",
			"module", "governance/election-ledger",
			"layer", "application",
			"caller_id", string(cmd.CallerID),
		)
		return fmt.Errorf("%w: %s", domainerrors.ErrNotOwner, cmd.CallerID)
	}

	state, err := uc.Repo.GetState(ctx)
	if err != nil {
		return err
	}
	if state.Phase != entities.PhaseRegistration {
		logger.Warn("candidate registration rejected: registration closed",
			"event", "election_register_candidate_phase_rejected",
			"module", "governance/election-ledger",
			"layer", "application",
			"phase", string(state.Phase),
			"candidate_id", string(cmd.CandidateID),
		)
		return domainerrors.ErrRegistrationClosed
	}
	if cmd.CandidateID.IsZero() {
		return domainerrors.ErrZeroIdentifier
	}
	if _, found, err := uc.Repo.GetCandidate(ctx, cmd.CandidateID); err != nil {
		return err
	} else if found {
		logger.Warn("candidate registration rejected: duplicate",
			"event", "election_register_candidate_duplicate",
			"module", "governance/election-ledger",
			"layer", "application",
			"candidate_id", string(cmd.CandidateID),
		)
		return fmt.Errorf("%w: %s", domainerrors.ErrAlreadyRegistered, cmd.CandidateID)
	}

	now := uc.now()
	if err := uc.Repo.SaveCandidate(ctx, entities.CandidateTally{
		Principal:    cmd.CandidateID,
		Votes:        0,
		RegisteredAt: now,
		UpdatedAt:    now,
	}); err != nil {
		return err
	}
	if err := uc.appendLedgerEvent(ctx, EventCandidateRegistered, cmd.CandidateID, now, map[string]any{
		"candidate_id": string(cmd.CandidateID),
	}); err != nil {
		return err
	}

	logger.Info("candidate registered",
		"event", "election_candidate_registered",
		"module", "governance/election-ledger",
		"layer", "application",
		"candidate_id", string(cmd.CandidateID),
	)
	return nil
}

// OpenVoting sets the election end timestamp and advances the phase to
// voting. The end must land inside [now+min, now+max]; the bounds stop an
// owner from locking registration forever or opening a window voters cannot
// react to.
func (uc *ElectionUseCase) OpenVoting(ctx context.Context, cmd OpenVotingCommand) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	logger := application.ResolveLogger(uc.Logger)
	logger.Info("open voting started",
		"event", "election_open_voting_started",
		"module", "governance/election-ledger",
		"layer", "application",
		"caller_id", string(cmd.CallerID),
		"ends_at", cmd.EndsAt.UTC().Format(time.RFC3339),
	)

	if cmd.CallerID != uc.Owner || uc.Owner.IsZero() {
		return fmt.Errorf("%w: %s", domainerrors.ErrNotOwner, cmd.CallerID)
	}

	state, err := uc.Repo.GetState(ctx)
	if err != nil {
		return err
	}
	if state.Phase != entities.PhaseRegistration {
		logger.Warn("open voting rejected: registration closed",
			"event", "election_open_voting_phase_rejected",
			"module", "governance/election-ledger",
			"layer", "application",
			"phase", string(state.Phase),
		)
		return domainerrors.ErrRegistrationClosed
	}

	now := uc.now()
	endsAt := cmd.EndsAt.UTC()
	if endsAt.Before(now.Add(uc.minVotingWindow())) {
		logger.Warn("open voting rejected: window too short",
			"event", "election_open_voting_too_short",
			"module", "governance/election-ledger",
			"layer", "application",
			"ends_at", endsAt.Format(time.RFC3339),
		)
		return fmt.Errorf("%w: %s", domainerrors.ErrDurationTooShort, endsAt.Format(time.RFC3339))
	}
	if endsAt.After(now.Add(uc.maxVotingWindow())) {
		logger.Warn("open voting rejected: window too long",
			"event", "election_open_voting_too_long",
			"module", "governance/election-ledger",
			"layer", "application",
			"ends_at", endsAt.Format(time.RFC3339),
		)
		return fmt.Errorf("%w: %s", domainerrors.ErrDurationTooLong, endsAt.Format(time.RFC3339))
	}

	state.Phase = entities.PhaseVoting
	state.VotingEndsAt = &endsAt
	state.UpdatedAt = now
	if err := uc.Repo.SaveState(ctx, state); err != nil {
		return err
	}
	if err := uc.appendLedgerEvent(ctx, EventVotingOpened, cmd.CallerID, now, map[string]any{
		"ends_at": endsAt.Format(time.RFC3339),
	}); err != nil {
		return err
	}

	logger.Info("voting opened",
		"event", "election_voting_opened",
		"module", "governance/election-ledger",
		"layer", "application",
		"ends_at", endsAt.Format(time.RFC3339),
	)
	return nil
}

// CastVote records the caller's vote. Guards run in a fixed order so the most
// specific violation surfaces first: phase, candidate registration, voter
// registration, has-voted, then the end-time check. All guards pass before
// any write, and the repository applies the vote effect atomically; this is
// the only path that mutates tallies or the has-voted flag, and nothing rolls
// an accepted vote back.
func (uc *ElectionUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	logger := application.ResolveLogger(uc.Logger)
	logger.Info("vote cast started",
		"event", "election_cast_vote_started",
		"module", "governance/election-ledger",
		"layer", "application",
		"caller_id", string(cmd.CallerID),
		"candidate_id", string(cmd.CandidateID),
	)

	state, err := uc.Repo.GetState(ctx)
	if err != nil {
		return CastVoteResult{}, err
	}
	if state.Phase != entities.PhaseVoting {
		logger.Warn("vote cast rejected: voting not open",
			"event", "election_cast_vote_phase_rejected",
			"module", "governance/election-ledger",
			"layer", "application",
			"phase", string(state.Phase),
			"caller_id", string(cmd.CallerID),
		)
		return CastVoteResult{}, domainerrors.ErrVotingNotOpen
	}

	candidate, found, err := uc.Repo.GetCandidate(ctx, cmd.CandidateID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if !found {
		logger.Warn("vote cast rejected: unknown candidate",
			"event", "election_cast_vote_unknown_candidate",
			"module", "governance/election-ledger",
			"layer", "application",
			"candidate_id", string(cmd.CandidateID),
		)
		return CastVoteResult{}, fmt.Errorf("%w: %s", domainerrors.ErrCandidateNotRegistered, cmd.CandidateID)
	}

	voter, found, err := uc.Repo.GetVoter(ctx, cmd.CallerID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if !found {
		logger.Warn("vote cast rejected: unknown voter",
			"event", "election_cast_vote_unknown_voter",
			"module", "governance/election-ledger",
			"layer", "application",
			"caller_id", string(cmd.CallerID),
		)
		return CastVoteResult{}, fmt.Errorf("%w: %s", domainerrors.ErrVoterNotRegistered, cmd.CallerID)
	}
	if voter.HasVoted {
		logger.Warn("vote cast rejected: already voted",
			"event", "election_cast_vote_already_voted",
			"module", "governance/election-ledger",
			"layer", "application",
			"caller_id", string(cmd.CallerID),
		)
		return CastVoteResult{}, fmt.Errorf("%w: %s", domainerrors.ErrAlreadyVoted, cmd.CallerID)
	}

	now := uc.now()
	if state.VotingEndsAt == nil || !now.Before(state.VotingEndsAt.UTC()) {
		logger.Warn("vote cast rejected: voting window elapsed",
			"event", "election_cast_vote_window_elapsed",
			"module", "governance/election-ledger",
			"layer", "application",
			"caller_id", string(cmd.CallerID),
		)
		return CastVoteResult{}, domainerrors.ErrElectionEnded
	}

	votedAt := now
	voter.HasVoted = true
	voter.VotedAt = &votedAt
	candidate.Votes++
	candidate.UpdatedAt = now
	leaderChanged := state.ChallengeLeader(candidate.Principal, candidate.Votes)
	state.UpdatedAt = now

	if err := uc.Repo.ApplyVote(ctx, voter, candidate, state); err != nil {
		return CastVoteResult{}, err
	}
	if err := uc.appendLedgerEvent(ctx, EventVoteCast, cmd.CandidateID, now, map[string]any{
		"voter_id":       string(cmd.CallerID),
		"candidate_id":   string(cmd.CandidateID),
		"votes":          candidate.Votes,
		"leader_changed": leaderChanged,
	}); err != nil {
		return CastVoteResult{}, err
	}

	logger.Info("vote cast",
		"event", "election_vote_cast",
		"module", "governance/election-ledger",
		"layer", "application",
		"voter_id", string(cmd.CallerID),
		"candidate_id", string(cmd.CandidateID),
		"votes", candidate.Votes,
		"leader_changed", leaderChanged,
	)
	return CastVoteResult{
		Candidate:     candidate.Principal,
		Votes:         candidate.Votes,
		LeaderChanged: leaderChanged,
	}, nil
}

// DeclareWinner seals the election once the voting window elapsed and returns
// the tracked leader. Owner-only for consistency with the other write paths.
// With zero accepted votes the result carries Declared=false and the reserved
// zero principal.
func (uc *ElectionUseCase) DeclareWinner(ctx context.Context, cmd DeclareWinnerCommand) (DeclareWinnerResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	logger := application.ResolveLogger(uc.Logger)
	logger.Info("declare winner started",
		"event", "election_declare_winner_started",
		"module", "governance/election-ledger",
		"layer", "application",
		"caller_id", string(cmd.CallerID),
	)

	if cmd.CallerID != uc.Owner || uc.Owner.IsZero() {
		return DeclareWinnerResult{}, fmt.Errorf("%w: %s", domainerrors.ErrNotOwner, cmd.CallerID)
	}

	state, err := uc.Repo.GetState(ctx)
	if err != nil {
		return DeclareWinnerResult{}, err
	}
	switch state.Phase {
	case entities.PhaseVoting:
	case entities.PhaseEnded:
		return DeclareWinnerResult{}, domainerrors.ErrElectionEnded
	default:
		return DeclareWinnerResult{}, domainerrors.ErrVotingNotOpen
	}

	now := uc.now()
	if state.VotingEndsAt == nil || now.Before(state.VotingEndsAt.UTC()) {
		logger.Warn("declare winner rejected: election not ended",
			"event", "election_declare_winner_not_ended",
			"module", "governance/election-ledger",
			"layer", "application",
			"caller_id", string(cmd.CallerID),
		)
		return DeclareWinnerResult{}, domainerrors.ErrElectionNotEnded
	}

	winner, votes, declared := state.Leader()
	state.Phase = entities.PhaseEnded
	state.UpdatedAt = now
	if err := uc.Repo.SaveState(ctx, state); err != nil {
		return DeclareWinnerResult{}, err
	}
	if err := uc.appendLedgerEvent(ctx, EventWinnerDeclared, winner, now, map[string]any{
		"winner_id": string(winner),
		"votes":     votes,
		"declared":  declared,
	}); err != nil {
		return DeclareWinnerResult{}, err
	}

	logger.Info("winner declared",
		"event", "election_winner_declared",
		"module", "governance/election-ledger",
		"layer", "application",
		"winner_id", string(winner),
		"votes", votes,
		"declared", declared,
	)
	return DeclareWinnerResult{Winner: winner, Votes: votes, Declared: declared}, nil
}

func (uc *ElectionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc *ElectionUseCase) minVotingWindow() time.Duration {
	if uc.MinVotingWindow <= 0 {
		return entities.DefaultMinVotingWindow
	}
	return uc.MinVotingWindow
}

func (uc *ElectionUseCase) maxVotingWindow() time.Duration {
	if uc.MaxVotingWindow <= 0 {
		return entities.DefaultMaxVotingWindow
	}
	return uc.MaxVotingWindow
}

func (uc *ElectionUseCase) appendLedgerEvent(
	ctx context.Context,
	eventType string,
	subject entities.Principal,
	occurredAt time.Time,
	data map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.newEventID(ctx)
	if err != nil {
		return err
	}
	envelope, err := NewLedgerEnvelope(eventID, eventType, subject, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc *ElectionUseCase) newEventID(ctx context.Context) (string, error) {
	if uc.IDGen == nil {
		return "", fmt.Errorf("id generator is not wired")
	}
	return uc.IDGen.NewID(ctx)
}
