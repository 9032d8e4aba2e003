package subscription

import (
	"context"
	"sync"
	"time"
)

// MemoryAccountStore is an in-memory AccountStore for tests and local
// development. It enforces the same version compare-and-swap semantics as
// the SQL-backed store.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]AccountSubscription
}

// NewMemoryAccountStore creates an empty in-memory account store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]AccountSubscription)}
}

// Get implements AccountStore.
func (s *MemoryAccountStore) Get(ctx context.Context, accountID string) (AccountSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return AccountSubscription{}, ErrAccountNotFound
	}
	return acct, nil
}

// GetByCustomerID implements AccountStore.
func (s *MemoryAccountStore) GetByCustomerID(ctx context.Context, customerID string) (AccountSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if customerID != "" {
		for _, acct := range s.accounts {
			if acct.BillingCustomerID == customerID {
				return acct, nil
			}
		}
	}
	return AccountSubscription{}, ErrAccountNotFound
}

// Create implements AccountStore.
func (s *MemoryAccountStore) Create(ctx context.Context, acct AccountSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.AccountID]; ok {
		return ErrAccountExists
	}
	s.accounts[acct.AccountID] = acct
	return nil
}

// Save implements AccountStore with compare-and-swap on Version.
func (s *MemoryAccountStore) Save(ctx context.Context, acct AccountSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[acct.AccountID]
	if !ok {
		return ErrAccountNotFound
	}
	if current.Version != acct.Version {
		return ErrVersionConflict
	}

	acct.Version++
	s.accounts[acct.AccountID] = acct
	return nil
}

// MemoryEventLedger is an in-memory EventLedger for tests and local
// development.
type MemoryEventLedger struct {
	mu     sync.Mutex
	events map[string]WebhookEventRecord
}

// NewMemoryEventLedger creates an empty in-memory event ledger.
func NewMemoryEventLedger() *MemoryEventLedger {
	return &MemoryEventLedger{events: make(map[string]WebhookEventRecord)}
}

// InsertIfAbsent implements EventLedger.
func (l *MemoryEventLedger) InsertIfAbsent(ctx context.Context, eventID, eventType string, now time.Time) (InsertOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.events[eventID]; ok {
		switch rec.Status {
		case ProcessingStatusProcessing:
			return OutcomeAlreadyProcessing, nil
		case ProcessingStatusCompleted, ProcessingStatusIgnored:
			return OutcomeAlreadyCompleted, nil
		case ProcessingStatusFailed:
			// A failed record is reclaimed by the retry delivery.
			rec.Status = ProcessingStatusProcessing
			rec.ReceivedAt = now
			rec.CompletedAt = nil
			rec.ErrorMessage = ""
			l.events[eventID] = rec
			return OutcomeInserted, nil
		}
	}

	l.events[eventID] = WebhookEventRecord{
		EventID:    eventID,
		EventType:  eventType,
		Status:     ProcessingStatusProcessing,
		ReceivedAt: now,
	}
	return OutcomeInserted, nil
}

// MarkCompleted implements EventLedger.
func (l *MemoryEventLedger) MarkCompleted(ctx context.Context, eventID string, now time.Time) error {
	return l.finish(eventID, ProcessingStatusCompleted, "", now)
}

// MarkFailed implements EventLedger.
func (l *MemoryEventLedger) MarkFailed(ctx context.Context, eventID, errorMessage string, now time.Time) error {
	return l.finish(eventID, ProcessingStatusFailed, errorMessage, now)
}

// MarkIgnored implements EventLedger.
func (l *MemoryEventLedger) MarkIgnored(ctx context.Context, eventID string, now time.Time) error {
	return l.finish(eventID, ProcessingStatusIgnored, "", now)
}

func (l *MemoryEventLedger) finish(eventID string, status ProcessingStatus, errorMessage string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.events[eventID]
	if !ok {
		return ErrEventNotFound
	}

	rec.Status = status
	rec.ErrorMessage = errorMessage
	rec.CompletedAt = &now
	l.events[eventID] = rec
	return nil
}

// Get implements EventLedger.
func (l *MemoryEventLedger) Get(ctx context.Context, eventID string) (WebhookEventRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.events[eventID]
	if !ok {
		return WebhookEventRecord{}, ErrEventNotFound
	}
	return rec, nil
}

// ReopenStale implements EventLedger.
func (l *MemoryEventLedger) ReopenStale(ctx context.Context, cutoff time.Time, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var reopened int64
	for id, rec := range l.events {
		if rec.Status == ProcessingStatusProcessing && rec.ReceivedAt.Before(cutoff) {
			rec.Status = ProcessingStatusFailed
			rec.ErrorMessage = "processing timed out"
			rec.CompletedAt = &now
			l.events[id] = rec
			reopened++
		}
	}
	return reopened, nil
}

// MemoryTransitionLog is an in-memory TransitionRecorder keeping a bounded
// per-account history, newest first.
type MemoryTransitionLog struct {
	mu      sync.Mutex
	limit   int
	history map[string][]TransitionRecord
}

// NewMemoryTransitionLog creates a transition log keeping up to limit
// records per account.
func NewMemoryTransitionLog(limit int) *MemoryTransitionLog {
	if limit <= 0 {
		limit = 50
	}
	return &MemoryTransitionLog{
		limit:   limit,
		history: make(map[string][]TransitionRecord),
	}
}

// RecordTransition implements TransitionRecorder.
func (m *MemoryTransitionLog) RecordTransition(ctx context.Context, accountID string, from, to Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := append([]TransitionRecord{{From: from, To: to, At: at}}, m.history[accountID]...)
	if len(records) > m.limit {
		records = records[:m.limit]
	}
	m.history[accountID] = records
	return nil
}

// RecentTransitions implements TransitionRecorder.
func (m *MemoryTransitionLog) RecentTransitions(ctx context.Context, accountID string, limit int) ([]TransitionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.history[accountID]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	out := make([]TransitionRecord, len(records))
	copy(out, records)
	return out, nil
}
