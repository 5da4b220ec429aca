package entities

import (
	"sort"
	"time"
)

// Principal identifies a voter, candidate, or the owner. The zero value is
// reserved and never a valid participant.
type Principal string

// NoPrincipal is the reserved zero identifier. Reads that report "no winner"
// return it alongside an explicit declared/undeclared marker so callers never
// have to compare against the sentinel to detect the empty case.
const NoPrincipal Principal = ""

func (p Principal) IsZero() bool {
	return p == NoPrincipal
}

type Phase string

const (
	PhaseRegistration Phase = "registration"
	PhaseVoting       Phase = "voting"
	PhaseEnded        Phase = "ended"
)

// rank orders phases for monotonicity checks. Transitions never move to an
// equal or lower rank.
func (p Phase) rank() int {
	switch p {
	case PhaseRegistration:
		return 0
	case PhaseVoting:
		return 1
	case PhaseEnded:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo permits only the strict forward steps
// registration -> voting -> ended.
func (p Phase) CanTransitionTo(next Phase) bool {
	return p.rank() >= 0 && next.rank() == p.rank()+1
}

// Voting window bounds applied to open-voting end timestamps. Both are
// overridable through platform config; the defaults are the protocol values.
const (
	DefaultMinVotingWindow = 24 * time.Hour
	DefaultMaxVotingWindow = 365 * 24 * time.Hour
)

type VoterRecord struct {
	Principal    Principal
	HasVoted     bool
	RegisteredAt time.Time
	VotedAt      *time.Time
}

type CandidateTally struct {
	Principal    Principal
	Votes        uint64
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

// ElectionState is the single-row election lifecycle record: current phase,
// the voting end timestamp once set, and the incrementally tracked leader.
type ElectionState struct {
	Phase           Phase
	VotingEndsAt    *time.Time
	LeaderCandidate Principal
	LeaderVotes     uint64
	UpdatedAt       time.Time
}

// NewElectionState is the construction-time state: registration phase, no
// end timestamp, no leader.
func NewElectionState(now time.Time) ElectionState {
	return ElectionState{
		Phase:     PhaseRegistration,
		UpdatedAt: now.UTC(),
	}
}

// Leader reports the tracked leader. ok is false while no vote has ever been
// accepted.
func (s ElectionState) Leader() (Principal, uint64, bool) {
	if s.LeaderCandidate.IsZero() {
		return NoPrincipal, 0, false
	}
	return s.LeaderCandidate, s.LeaderVotes, true
}

// ChallengeLeader installs candidate as leader iff votes strictly exceeds the
// current leading count. Ties keep the earlier leader: the first candidate to
// reach a count is never displaced by a later arrival at the same count.
func (s *ElectionState) ChallengeLeader(candidate Principal, votes uint64) bool {
	if votes <= s.LeaderVotes {
		return false
	}
	s.LeaderCandidate = candidate
	s.LeaderVotes = votes
	return true
}

// VotingOpen reports whether votes are currently accepted: voting phase and
// strictly before the end timestamp.
func (s ElectionState) VotingOpen(now time.Time) bool {
	return s.Phase == PhaseVoting && s.VotingEndsAt != nil && now.UTC().Before(s.VotingEndsAt.UTC())
}

// SortTallies orders candidate tallies for result listings: votes descending,
// then earliest registration first so the order is stable across reads.
func SortTallies(items []CandidateTally) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Votes == items[j].Votes {
			return items[i].RegisteredAt.Before(items[j].RegisteredAt)
		}
		return items[i].Votes > items[j].Votes
	})
}

// AuditRecord is one consumed ledger event retained for auditors.
type AuditRecord struct {
	AuditID    string
	EventID    string
	EventType  string
	Subject    Principal
	Payload    []byte
	RecordedAt time.Time
}
