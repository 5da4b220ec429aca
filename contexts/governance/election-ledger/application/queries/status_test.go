package queries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/contexts/governance/election-ledger/adapters/memory"
	"tally/contexts/governance/election-ledger/application/queries"
	"tally/contexts/governance/election-ledger/domain/entities"
	domainerrors "tally/contexts/governance/election-ledger/domain/errors"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	store := memory.NewStore()
	if err := store.SaveVoter(ctx, entities.VoterRecord{
		Principal:    "voter-1",
		HasVoted:     true,
		RegisteredAt: now,
	}); err != nil {
		t.Fatalf("seed voter failed: %v", err)
	}
	for i, tally := range []entities.CandidateTally{
		{Principal: "c-low", Votes: 1},
		{Principal: "c-high", Votes: 4},
		{Principal: "c-tied", Votes: 4},
	} {
		tally.RegisteredAt = now.Add(time.Duration(i) * time.Minute)
		tally.UpdatedAt = tally.RegisteredAt
		if err := store.SaveCandidate(ctx, tally); err != nil {
			t.Fatalf("seed candidate failed: %v", err)
		}
	}
	return store
}

func TestVoterStatusUnregisteredIsNotAnError(t *testing.T) {
	store := seededStore(t)
	uc := queries.StatusUseCase{Repo: store}

	status, err := uc.VoterStatus(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Registered || status.HasVoted {
		t.Fatalf("unregistered voter must report false/false, got %+v", status)
	}

	status, err = uc.VoterStatus(context.Background(), "voter-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Registered || !status.HasVoted {
		t.Fatalf("expected registered voter with a recorded vote, got %+v", status)
	}
}

func TestCandidateStatusReportsTally(t *testing.T) {
	store := seededStore(t)
	uc := queries.StatusUseCase{Repo: store}

	status, err := uc.CandidateStatus(context.Background(), "c-high")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Registered || status.Votes != 4 {
		t.Fatalf("expected registered candidate with 4 votes, got %+v", status)
	}

	status, err = uc.CandidateStatus(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Registered || status.Votes != 0 {
		t.Fatalf("unregistered candidate must report false/0, got %+v", status)
	}
}

func TestWinnerRequiresEndedPhase(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	uc := queries.StatusUseCase{Repo: store}

	if _, _, _, err := uc.Winner(ctx); !errors.Is(err, domainerrors.ErrElectionNotEnded) {
		t.Fatalf("expected ErrElectionNotEnded before sealing, got %v", err)
	}

	state, _ := store.GetState(ctx)
	state.Phase = entities.PhaseEnded
	state.LeaderCandidate = "c-high"
	state.LeaderVotes = 4
	if err := store.SaveState(ctx, state); err != nil {
		t.Fatalf("save state failed: %v", err)
	}

	winner, votes, declared, err := uc.Winner(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner != "c-high" || votes != 4 || !declared {
		t.Fatalf("expected c-high with 4 votes, got %s/%d/%v", winner, votes, declared)
	}
}

func TestResultsSortedByVotesThenRegistration(t *testing.T) {
	store := seededStore(t)
	uc := queries.StatusUseCase{Repo: store}

	items, err := uc.Results(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []entities.Principal{"c-high", "c-tied", "c-low"}
	if len(items) != len(want) {
		t.Fatalf("expected %d tallies, got %d", len(want), len(items))
	}
	for i, principal := range want {
		if items[i].Principal != principal {
			t.Fatalf("position %d: expected %s, got %s", i, principal, items[i].Principal)
		}
	}
}

func TestAuditTrailWithoutRepositoryIsEmpty(t *testing.T) {
	uc := queries.StatusUseCase{Repo: memory.NewStore()}
	records, err := uc.AuditTrail(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}
