package subscription

import (
	"context"
	"errors"
)

// recentTransitionLimit bounds the history fetched per assessment; the
// scorer's rolling window never needs more than this.
const recentTransitionLimit = 50

// FingerprintIndex resolves how many accounts share a device fingerprint.
// Implementations also record the link so later enrollments from the same
// device see the accumulated count.
type FingerprintIndex interface {
	Link(ctx context.Context, fingerprint, accountID string) error
	AccountCount(ctx context.Context, fingerprint string) (int, error)
}

// StoredSignalSource assembles risk signals from the transition log and the
// fingerprint index. It links the enrolling account to its fingerprint as a
// side effect, so the count it reports includes the current attempt's device.
type StoredSignalSource struct {
	transitions  TransitionRecorder
	fingerprints FingerprintIndex
}

func NewStoredSignalSource(transitions TransitionRecorder, fingerprints FingerprintIndex) *StoredSignalSource {
	if transitions == nil {
		panic("subscription: transition recorder is required")
	}
	if fingerprints == nil {
		panic("subscription: fingerprint index is required")
	}
	return &StoredSignalSource{transitions: transitions, fingerprints: fingerprints}
}

// SignalsFor implements RiskSignalSource.
func (s *StoredSignalSource) SignalsFor(ctx context.Context, accountID, deviceFingerprint string) (RiskSignals, error) {
	var errs []error

	history, err := s.transitions.RecentTransitions(ctx, accountID, recentTransitionLimit)
	if err != nil {
		errs = append(errs, err)
	}

	var shared int
	if deviceFingerprint != "" {
		if err := s.fingerprints.Link(ctx, deviceFingerprint, accountID); err != nil {
			errs = append(errs, err)
		}
		shared, err = s.fingerprints.AccountCount(ctx, deviceFingerprint)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return RiskSignals{
		Transitions:         history,
		FingerprintAccounts: shared,
	}, errors.Join(errs...)
}

var _ RiskSignalSource = (*StoredSignalSource)(nil)
