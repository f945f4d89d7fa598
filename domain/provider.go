package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownPlatform is returned by the registry when no provider has been
// registered under the requested platform name.
var ErrUnknownPlatform = errors.New("unknown platform")

// Provider is one third-party platform integration. Refresh implements the
// provider's token refresh protocol; FetchStats retrieves the current
// metrics for one account. FetchStats may be called with a nil credential
// for platforms that support public lookups.
type Provider interface {
	Name() string
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)
	FetchStats(ctx context.Context, identifier string, cred *Credential) (*PlatformSnapshot, error)
}

// ProviderRegistry maps platform names to their Provider implementation.
// Adding a platform is a registration at bootstrap, not a new switch branch.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[string]Provider)}
}

// Register adds or replaces the provider for its platform name.
func (r *ProviderRegistry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider registered under platform.
func (r *ProviderRegistry) Get(platform string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return p, nil
}

// Names returns the registered platform names, unordered.
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
