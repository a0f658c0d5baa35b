// Package publish hands finished content to platform-specific publishers and
// records every attempt. Failures trigger refunds through the balance ledger:
// a lead publish failure refunds the whole charge, a cross-post failure
// refunds only that target's share.
package publish

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/pressroom/internal/types"
)

// Request is the platform-independent publishable artifact.
type Request struct {
	Title  string
	Body   string
	Images []types.GeneratedImage
}

// PostInfo identifies a successfully created post.
type PostInfo struct {
	ID  string
	URL string
}

// Publisher is implemented once per target platform.
type Publisher interface {
	// ValidateConnection checks credentials without creating content.
	ValidateConnection(ctx context.Context) error
	// Publish creates the post and returns its identity.
	Publish(ctx context.Context, req *Request) (*PostInfo, error)
	// DeletePost removes a post by its platform-side id.
	DeletePost(ctx context.Context, id string) error
}

// Error is a publish failure on a specific platform.
type Error struct {
	Platform types.PlatformType
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("publish to %s failed: %v", e.Platform, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Registry maps platform types to their publisher implementations.
type Registry struct {
	mu         sync.RWMutex
	publishers map[types.PlatformType]Publisher
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{publishers: make(map[types.PlatformType]Publisher)}
}

// Register installs a publisher for a platform, replacing any existing one.
func (r *Registry) Register(platform types.PlatformType, pub Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[platform] = pub
}

// Get returns the publisher for a platform.
func (r *Registry) Get(platform types.PlatformType) (Publisher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pub, ok := r.publishers[platform]
	return pub, ok
}
