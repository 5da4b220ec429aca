package workers

import (
	"context"
	"log/slog"
	"time"

	application "tally/contexts/governance/election-ledger/application"
	"tally/contexts/governance/election-ledger/application/commands"
	"tally/contexts/governance/election-ledger/domain/entities"
	"tally/contexts/governance/election-ledger/ports"
)

// DeadlineWatcher emits election.voting_deadline_passed once the voting
// window elapses while the winner is still undeclared. Observability only:
// the watcher never advances the phase, declaring the winner stays an
// explicit owner operation.
type DeadlineWatcher struct {
	Repo   ports.ElectionRepository
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	Logger *slog.Logger

	notified bool
}

// RunOnce checks the window and appends the deadline event at most once per
// process. The event id is derived from the end timestamp, so a restarted
// watcher appending again hits the outbox id-dedup instead of duplicating.
func (w *DeadlineWatcher) RunOnce(ctx context.Context) error {
	if w.notified {
		return nil
	}
	logger := application.ResolveLogger(w.Logger)

	state, err := w.Repo.GetState(ctx)
	if err != nil {
		return err
	}
	if state.Phase != entities.PhaseVoting || state.VotingEndsAt == nil {
		return nil
	}

	now := time.Now().UTC()
	if w.Clock != nil {
		now = w.Clock.Now().UTC()
	}
	endsAt := state.VotingEndsAt.UTC()
	if now.Before(endsAt) {
		return nil
	}

	envelope, err := commands.NewLedgerEnvelope(
		"deadline-"+endsAt.Format(time.RFC3339),
		commands.EventVotingDeadlinePassed,
		entities.NoPrincipal,
		endsAt,
		map[string]any{
			"ends_at": endsAt.Format(time.RFC3339),
		},
	)
	if err != nil {
		return err
	}
	if err := w.Outbox.AppendOutbox(ctx, envelope); err != nil {
		logger.Error("ledger deadline event append failed",
			"event", "election_deadline_append_failed",
			"module", "governance/election-ledger",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	w.notified = true

	logger.Info("voting deadline passed",
		"event", "election_voting_deadline_passed",
		"module", "governance/election-ledger",
		"layer", "worker",
		"ends_at", endsAt.Format(time.RFC3339),
	)
	return nil
}
