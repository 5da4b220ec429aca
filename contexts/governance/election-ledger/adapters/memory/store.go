package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"tally/contexts/governance/election-ledger/domain/entities"
	"tally/contexts/governance/election-ledger/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store is the in-memory ledger used by tests and local wiring. It implements
// every port of the module behind one mutex so each call observes a fully
// consistent state.
type Store struct {
	mu sync.RWMutex

	state      entities.ElectionState
	voters     map[entities.Principal]entities.VoterRecord
	candidates map[entities.Principal]entities.CandidateTally

	outbox     map[string]outboxRecord
	eventDedup map[string]dedupRecord
	audit      []entities.AuditRecord
}

func NewStore() *Store {
	return &Store{
		state:      entities.NewElectionState(time.Now().UTC()),
		voters:     make(map[entities.Principal]entities.VoterRecord),
		candidates: make(map[entities.Principal]entities.CandidateTally),
		outbox:     make(map[string]outboxRecord),
		eventDedup: make(map[string]dedupRecord),
	}
}

func (s *Store) GetState(_ context.Context) (entities.ElectionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

func (s *Store) SaveState(_ context.Context, state entities.ElectionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

func (s *Store) GetVoter(_ context.Context, principal entities.Principal) (entities.VoterRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voter, ok := s.voters[principal]
	return voter, ok, nil
}

func (s *Store) SaveVoter(_ context.Context, voter entities.VoterRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voters[voter.Principal] = voter
	return nil
}

func (s *Store) CountVoters(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.voters), nil
}

func (s *Store) GetCandidate(_ context.Context, principal entities.Principal) (entities.CandidateTally, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidate, ok := s.candidates[principal]
	return candidate, ok, nil
}

func (s *Store) SaveCandidate(_ context.Context, candidate entities.CandidateTally) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[candidate.Principal] = candidate
	return nil
}

func (s *Store) ListCandidates(_ context.Context) ([]entities.CandidateTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.CandidateTally, 0, len(s.candidates))
	for _, candidate := range s.candidates {
		items = append(items, candidate)
	}
	entities.SortTallies(items)
	return items, nil
}

func (s *Store) ApplyVote(
	_ context.Context,
	voter entities.VoterRecord,
	candidate entities.CandidateTally,
	state entities.ElectionState,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voters[voter.Principal] = voter
	s.candidates[candidate.Principal] = candidate
	s.state = state
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := envelope.EventID
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return fmt.Errorf("outbox payload conflict for event %s", outboxID)
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[outboxID]
	if !ok {
		return fmt.Errorf("unknown outbox row %s", outboxID)
	}
	row.published = true
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.eventDedup[eventID]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, eventID)
		} else {
			if existing.payloadHash != payloadHash {
				return false, fmt.Errorf("dedup payload conflict for event %s", eventID)
			}
			return true, nil
		}
	}

	s.eventDedup[eventID] = dedupRecord{
		payloadHash: payloadHash,
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) AppendAudit(_ context.Context, record entities.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, record)
	return nil
}

func (s *Store) ListAudit(_ context.Context, limit int) ([]entities.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.AuditRecord, 0, len(s.audit))
	items = append(items, s.audit...)
	sort.Slice(items, func(i, j int) bool {
		return items[i].RecordedAt.Before(items[j].RecordedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
