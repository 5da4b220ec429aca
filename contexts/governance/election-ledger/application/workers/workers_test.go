package workers_test

import (
	"context"
	"testing"
	"time"

	"tally/contexts/governance/election-ledger/adapters/memory"
	"tally/contexts/governance/election-ledger/application/commands"
	"tally/contexts/governance/election-ledger/application/workers"
	"tally/contexts/governance/election-ledger/domain/entities"
	"tally/contexts/governance/election-ledger/ports"
)

type capturingPublisher struct {
	published []ports.EventEnvelope
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event ports.EventEnvelope) error {
	p.published = append(p.published, event)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func appendEvent(t *testing.T, store *memory.Store, eventID, eventType string) ports.EventEnvelope {
	t.Helper()
	envelope, err := commands.NewLedgerEnvelope(eventID, eventType, "voter-1",
		time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), map[string]any{"voter_id": "voter-1"})
	if err != nil {
		t.Fatalf("build envelope failed: %v", err)
	}
	if err := store.AppendOutbox(context.Background(), envelope); err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}
	return envelope
}

func TestOutboxRelayPublishesAndMarks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	publisher := &capturingPublisher{}
	appendEvent(t, store, "evt-1", commands.EventVoterRegistered)
	appendEvent(t, store, "evt-2", commands.EventCandidateRegistered)

	relay := workers.OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
		Clock:     fixedClock{now: time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC)},
		BatchSize: 10,
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.published))
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows after relay, got %d", len(pending))
	}

	// A second cycle is a no-op.
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("second relay run failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("published rows must not be re-relayed, got %d", len(publisher.published))
	}
}

func TestAuditConsumerDeduplicatesRedeliveries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	consumer := workers.AuditConsumer{
		Audit:    store,
		Dedup:    store,
		Clock:    fixedClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		IDGen:    store,
		DedupTTL: time.Hour,
	}

	event, err := commands.NewLedgerEnvelope("evt-1", commands.EventVoteCast, "candidate-1",
		time.Date(2025, 3, 1, 11, 59, 0, 0, time.UTC), map[string]any{"candidate_id": "candidate-1"})
	if err != nil {
		t.Fatalf("build envelope failed: %v", err)
	}

	if err := consumer.Handle(ctx, event); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := consumer.Handle(ctx, event); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}

	records, err := store.ListAudit(ctx, 10)
	if err != nil {
		t.Fatalf("list audit failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected a single audit row after redelivery, got %d", len(records))
	}
	if records[0].EventID != "evt-1" || records[0].EventType != commands.EventVoteCast {
		t.Fatalf("unexpected audit record %+v", records[0])
	}
	if records[0].Subject != "candidate-1" {
		t.Fatalf("expected subject from partition key, got %s", records[0].Subject)
	}
}

func TestDeadlineWatcherFiresOnceAfterWindowElapses(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	endsAt := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	state, _ := store.GetState(ctx)
	state.Phase = entities.PhaseVoting
	state.VotingEndsAt = &endsAt
	if err := store.SaveState(ctx, state); err != nil {
		t.Fatalf("save state failed: %v", err)
	}

	watcher := &workers.DeadlineWatcher{
		Repo:   store,
		Outbox: store,
		Clock:  fixedClock{now: endsAt.Add(-time.Minute)},
	}
	if err := watcher.RunOnce(ctx); err != nil {
		t.Fatalf("run before deadline failed: %v", err)
	}
	if pending, _ := store.ListPendingOutbox(ctx, 10); len(pending) != 0 {
		t.Fatalf("watcher must stay silent before the deadline, got %d rows", len(pending))
	}

	watcher.Clock = fixedClock{now: endsAt.Add(time.Minute)}
	if err := watcher.RunOnce(ctx); err != nil {
		t.Fatalf("run after deadline failed: %v", err)
	}
	if err := watcher.RunOnce(ctx); err != nil {
		t.Fatalf("repeat run failed: %v", err)
	}

	pending, _ := store.ListPendingOutbox(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("expected exactly one deadline event, got %d", len(pending))
	}
	if pending[0].EventType != commands.EventVotingDeadlinePassed {
		t.Fatalf("unexpected event type %s", pending[0].EventType)
	}

	// A restarted watcher appending again hits the outbox id-dedup.
	restarted := &workers.DeadlineWatcher{
		Repo:   store,
		Outbox: store,
		Clock:  fixedClock{now: endsAt.Add(2 * time.Minute)},
	}
	if err := restarted.RunOnce(ctx); err != nil {
		t.Fatalf("restarted run failed: %v", err)
	}
	if pending, _ := store.ListPendingOutbox(ctx, 10); len(pending) != 1 {
		t.Fatalf("restart must not duplicate the deadline event, got %d rows", len(pending))
	}
}
