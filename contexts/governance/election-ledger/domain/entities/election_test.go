package entities

import (
	"testing"
	"time"
)

func TestPhaseTransitionsAreStrictlyForward(t *testing.T) {
	cases := []struct {
		from Phase
		to   Phase
		want bool
	}{
		{PhaseRegistration, PhaseVoting, true},
		{PhaseVoting, PhaseEnded, true},
		{PhaseRegistration, PhaseEnded, false},
		{PhaseVoting, PhaseRegistration, false},
		{PhaseEnded, PhaseVoting, false},
		{PhaseEnded, PhaseEnded, false},
		{Phase("bogus"), PhaseVoting, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestChallengeLeaderKeepsEarlierOnTie(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewElectionState(now)

	if _, _, ok := state.Leader(); ok {
		t.Fatalf("fresh state must have no leader")
	}
	if !state.ChallengeLeader("c1", 1) {
		t.Fatalf("first vote must take the lead")
	}
	if state.ChallengeLeader("c2", 1) {
		t.Fatalf("a tie must not displace the earlier leader")
	}
	if !state.ChallengeLeader("c2", 2) {
		t.Fatalf("a strictly greater count must take the lead")
	}

	leader, votes, ok := state.Leader()
	if !ok || leader != "c2" || votes != 2 {
		t.Fatalf("expected c2 at 2, got %s at %d (ok=%v)", leader, votes, ok)
	}
}

func TestVotingOpenIsStrictlyBeforeEnd(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	endsAt := now.Add(24 * time.Hour)
	state := NewElectionState(now)

	if state.VotingOpen(now) {
		t.Fatalf("registration phase must not accept votes")
	}

	state.Phase = PhaseVoting
	state.VotingEndsAt = &endsAt
	if !state.VotingOpen(endsAt.Add(-time.Second)) {
		t.Fatalf("expected voting open just before the end")
	}
	if state.VotingOpen(endsAt) {
		t.Fatalf("the end instant itself must be closed")
	}
}

func TestSortTalliesOrdersVotesThenRegistration(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []CandidateTally{
		{Principal: "late-tied", Votes: 2, RegisteredAt: base.Add(2 * time.Minute)},
		{Principal: "trailing", Votes: 1, RegisteredAt: base},
		{Principal: "early-tied", Votes: 2, RegisteredAt: base.Add(time.Minute)},
		{Principal: "leading", Votes: 5, RegisteredAt: base.Add(3 * time.Minute)},
	}

	SortTallies(items)

	want := []Principal{"leading", "early-tied", "late-tied", "trailing"}
	for i, principal := range want {
		if items[i].Principal != principal {
			t.Fatalf("position %d: expected %s, got %s", i, principal, items[i].Principal)
		}
	}
}
