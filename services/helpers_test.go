package services

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creatorpulse/creatorpulse/domain"
)

// memCredRepo is an in-memory CredentialRepository for lifecycle tests.
// forcedGetErr simulates a stored payload that fails decryption.
type memCredRepo struct {
	mu           sync.Mutex
	creds        map[string]*domain.Credential
	forcedGetErr map[string]error
	getCalls     int
	upsertCalls  int
	deleteCalls  int
}

func newMemCredRepo() *memCredRepo {
	return &memCredRepo{
		creds:        make(map[string]*domain.Credential),
		forcedGetErr: make(map[string]error),
	}
}

func credKey(userID, platform string) string {
	return userID + "|" + platform
}

func (r *memCredRepo) Upsert(_ context.Context, cred *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	clone := *cred
	r.creds[credKey(cred.UserID, cred.Platform)] = &clone
	return nil
}

func (r *memCredRepo) Get(_ context.Context, userID, platform string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	key := credKey(userID, platform)
	if err := r.forcedGetErr[key]; err != nil {
		return nil, err
	}
	cred, ok := r.creds[key]
	if !ok {
		return nil, nil
	}
	clone := *cred
	return &clone, nil
}

func (r *memCredRepo) Delete(_ context.Context, userID, platform string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	key := credKey(userID, platform)
	delete(r.creds, key)
	delete(r.forcedGetErr, key)
	return nil
}

func (r *memCredRepo) ListRefs(_ context.Context) ([]domain.CredentialRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var refs []domain.CredentialRef
	for _, cred := range r.creds {
		refs = append(refs, domain.CredentialRef{
			UserID:    cred.UserID,
			Platform:  cred.Platform,
			ExpiresAt: cred.ExpiresAt,
		})
	}
	return refs, nil
}

func (r *memCredRepo) stored(userID, platform string) *domain.Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creds[credKey(userID, platform)]
}

// fakeProvider is a scriptable Provider counting its upstream calls.
type fakeProvider struct {
	name         string
	refreshCalls atomic.Int32
	fetchCalls   atomic.Int32
	refreshFn    func(refreshToken string) (*domain.TokenGrant, error)
	fetchFn      func(identifier string, cred *domain.Credential) (*domain.PlatformSnapshot, error)
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Refresh(_ context.Context, refreshToken string) (*domain.TokenGrant, error) {
	p.refreshCalls.Add(1)
	return p.refreshFn(refreshToken)
}

func (p *fakeProvider) FetchStats(_ context.Context, identifier string, cred *domain.Credential) (*domain.PlatformSnapshot, error) {
	p.fetchCalls.Add(1)
	return p.fetchFn(identifier, cred)
}

// fakeHistory is an in-memory MetricHistoryRepository.
type fakeHistory struct {
	mu        sync.Mutex
	samples   []domain.MetricSample
	appendErr error
	windowErr error
}

func (h *fakeHistory) Append(_ context.Context, sample *domain.MetricSample) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.appendErr != nil {
		return h.appendErr
	}
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now().UTC()
	}
	h.samples = append(h.samples, *sample)
	return nil
}

func (h *fakeHistory) Window(_ context.Context, key domain.MetricKey, since time.Time) ([]domain.MetricSample, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.windowErr != nil {
		return nil, h.windowErr
	}
	var out []domain.MetricSample
	for _, s := range h.samples {
		if s.UserID == key.UserID && s.Platform == key.Platform &&
			s.Identifier == key.Identifier && s.Metric == key.Metric &&
			!s.RecordedAt.Before(since) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (h *fakeHistory) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var kept []domain.MetricSample
	var deleted int64
	for _, s := range h.samples {
		if s.RecordedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	h.samples = kept
	return deleted, nil
}

func (h *fakeHistory) recorded(metric string) []domain.MetricSample {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.MetricSample
	for _, s := range h.samples {
		if s.Metric == metric {
			out = append(out, s)
		}
	}
	return out
}
