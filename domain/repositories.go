package domain

import (
	"context"
	"time"
)

// CredentialRepository persists one credential record per (user, platform)
// pair, encrypted at rest. Get returns (nil, nil) when no record exists; a
// record whose stored payload cannot be decrypted yields a validation error
// so the caller can evict it.
type CredentialRepository interface {
	Upsert(ctx context.Context, cred *Credential) error
	Get(ctx context.Context, userID, platform string) (*Credential, error)
	// Delete is idempotent: deleting an absent record is not an error.
	Delete(ctx context.Context, userID, platform string) error
	// ListRefs enumerates stored records without decrypting secrets.
	ListRefs(ctx context.Context) ([]CredentialRef, error)
}

// MetricHistoryRepository is the append-only metric time series. Append is
// an upsert on the full (user, platform, identifier, metric, recordedAt)
// tuple, which makes explicit-timestamp backfill idempotent.
type MetricHistoryRepository interface {
	Append(ctx context.Context, sample *MetricSample) error
	// Window returns samples for key with recordedAt >= since, oldest first.
	Window(ctx context.Context, key MetricKey, since time.Time) ([]MetricSample, error)
	// DeleteOlderThan removes samples recorded before cutoff, returning the
	// number removed. Used by the retention sweep.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
