package memory

import (
	"context"
	"testing"
	"time"

	"tally/contexts/governance/election-ledger/domain/entities"
	"tally/contexts/governance/election-ledger/ports"
)

func TestApplyVoteWritesAllThreeRecordsTogether(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	votedAt := now.Add(time.Minute)

	if err := store.SaveVoter(ctx, entities.VoterRecord{Principal: "voter-1", RegisteredAt: now}); err != nil {
		t.Fatalf("save voter failed: %v", err)
	}
	if err := store.SaveCandidate(ctx, entities.CandidateTally{Principal: "c1", RegisteredAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("save candidate failed: %v", err)
	}

	state, _ := store.GetState(ctx)
	state.Phase = entities.PhaseVoting
	state.LeaderCandidate = "c1"
	state.LeaderVotes = 1
	err := store.ApplyVote(ctx,
		entities.VoterRecord{Principal: "voter-1", HasVoted: true, RegisteredAt: now, VotedAt: &votedAt},
		entities.CandidateTally{Principal: "c1", Votes: 1, RegisteredAt: now, UpdatedAt: votedAt},
		state,
	)
	if err != nil {
		t.Fatalf("apply vote failed: %v", err)
	}

	voter, _, _ := store.GetVoter(ctx, "voter-1")
	if !voter.HasVoted || voter.VotedAt == nil {
		t.Fatalf("voter flag not applied: %+v", voter)
	}
	candidate, _, _ := store.GetCandidate(ctx, "c1")
	if candidate.Votes != 1 {
		t.Fatalf("tally not applied: %+v", candidate)
	}
	got, _ := store.GetState(ctx)
	if leader, votes, ok := got.Leader(); !ok || leader != "c1" || votes != 1 {
		t.Fatalf("leader not applied: %s/%d (ok=%v)", leader, votes, ok)
	}
}

func TestAppendOutboxDeduplicatesByEventID(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	envelope := ports.EventEnvelope{
		EventID:    "evt-1",
		EventType:  "election.vote_cast",
		OccurredAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:       []byte(`{"candidate_id":"c1"}`),
	}

	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("identical re-append must be absorbed: %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one row after duplicate append, got %d", len(pending))
	}

	envelope.Data = []byte(`{"candidate_id":"c2"}`)
	if err := store.AppendOutbox(ctx, envelope); err == nil {
		t.Fatalf("same id with a different payload must conflict")
	}
}

func TestReserveEventReportsReplays(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	expires := time.Now().UTC().Add(time.Hour)

	replayed, err := store.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	if err != nil || replayed {
		t.Fatalf("first reservation must succeed fresh, got replayed=%v err=%v", replayed, err)
	}
	replayed, err = store.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	if err != nil || !replayed {
		t.Fatalf("same id and hash must report a replay, got replayed=%v err=%v", replayed, err)
	}
	if _, err := store.ReserveEvent(ctx, "evt-1", "hash-b", expires); err == nil {
		t.Fatalf("same id with a different hash must conflict")
	}
}
