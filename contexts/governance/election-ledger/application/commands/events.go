package commands

import (
	"encoding/json"
	"time"

	"tally/contexts/governance/election-ledger/domain/entities"
	"tally/contexts/governance/election-ledger/ports"
)

// Ledger event types. Observability-only: consumers never feed control flow
// back into the engine.
const (
	EventVoterRegistered      = "election.voter_registered"
	EventCandidateRegistered  = "election.candidate_registered"
	EventVotingOpened         = "election.voting_opened"
	EventVoteCast             = "election.vote_cast"
	EventWinnerDeclared       = "election.winner_declared"
	EventVotingDeadlinePassed = "election.voting_deadline_passed"
)

// NewLedgerEnvelope builds the canonical event shape for ledger events.
// Events are partitioned by subject principal for stable per-participant
// ordering on downstream consumers.
func NewLedgerEnvelope(
	eventID string,
	eventType string,
	subject entities.Principal,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "election-ledger",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "subject_id",
		PartitionKey:     string(subject),
		Data:             payload,
	}, nil
}
