package queries

import (
	"context"

	"tally/contexts/governance/election-ledger/domain/entities"
	domainerrors "tally/contexts/governance/election-ledger/domain/errors"
	"tally/contexts/governance/election-ledger/ports"
)

// StatusUseCase is the read surface over the ledger. Queries never mutate
// state and have no preconditions beyond well-formed input.
type StatusUseCase struct {
	Repo  ports.ElectionRepository
	Audit ports.AuditRepository
}

// VoterStatus reports registration and has-voted flags. Unregistered
// principals report false/false rather than an error.
type VoterStatus struct {
	Registered bool
	HasVoted   bool
}

func (uc StatusUseCase) VoterStatus(ctx context.Context, principal entities.Principal) (VoterStatus, error) {
	voter, found, err := uc.Repo.GetVoter(ctx, principal)
	if err != nil {
		return VoterStatus{}, err
	}
	if !found {
		return VoterStatus{}, nil
	}
	return VoterStatus{Registered: true, HasVoted: voter.HasVoted}, nil
}

// CandidateStatus reports registration and the current tally.
type CandidateStatus struct {
	Registered bool
	Votes      uint64
}

func (uc StatusUseCase) CandidateStatus(ctx context.Context, principal entities.Principal) (CandidateStatus, error) {
	candidate, found, err := uc.Repo.GetCandidate(ctx, principal)
	if err != nil {
		return CandidateStatus{}, err
	}
	if !found {
		return CandidateStatus{}, nil
	}
	return CandidateStatus{Registered: true, Votes: candidate.Votes}, nil
}

// Status returns the lifecycle view: phase, end timestamp, leader so far.
func (uc StatusUseCase) Status(ctx context.Context) (entities.ElectionState, error) {
	return uc.Repo.GetState(ctx)
}

// Winner returns the sealed outcome. It fails with ErrElectionNotEnded until
// DeclareWinner advanced the phase. declared is false when no vote was ever
// accepted; the winner is then the reserved zero principal.
func (uc StatusUseCase) Winner(ctx context.Context) (winner entities.Principal, votes uint64, declared bool, err error) {
	state, err := uc.Repo.GetState(ctx)
	if err != nil {
		return entities.NoPrincipal, 0, false, err
	}
	if state.Phase != entities.PhaseEnded {
		return entities.NoPrincipal, 0, false, domainerrors.ErrElectionNotEnded
	}
	winner, votes, declared = state.Leader()
	return winner, votes, declared, nil
}

// Results lists all candidate tallies, votes descending with earliest
// registration first on equal counts. The listing is derived for auditors;
// winner determination always uses the incremental leader tracker.
func (uc StatusUseCase) Results(ctx context.Context) ([]entities.CandidateTally, error) {
	items, err := uc.Repo.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}
	entities.SortTallies(items)
	return items, nil
}

// AuditTrail lists consumed ledger events, oldest first.
func (uc StatusUseCase) AuditTrail(ctx context.Context, limit int) ([]entities.AuditRecord, error) {
	if uc.Audit == nil {
		return nil, nil
	}
	return uc.Audit.ListAudit(ctx, limit)
}
