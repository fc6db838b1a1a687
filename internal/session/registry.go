// Package session tracks the live protocol clients of this process, one
// per account.
package session

import (
	"context"
	"sync"

	"github.com/cuongbtq/unoapi-commander/internal/domain"
)

// Client is a live protocol session
type Client interface {
	Info() any
	Status() string
	Disconnect(ctx context.Context) error
}

// Registry maps account ids to live clients
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register stores client under accountID, replacing any previous one
func (r *Registry) Register(accountID string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[accountID] = client
}

// Get returns the client of accountID or ErrSessionNotFound
func (r *Registry) Get(accountID string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[accountID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return client, nil
}

// Has reports whether accountID has a live client
func (r *Registry) Has(accountID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[accountID]
	return ok
}

// Remove drops accountID and returns the client it held
func (r *Registry) Remove(accountID string) (Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[accountID]
	delete(r.clients, accountID)
	return client, ok
}

// Len returns the number of live clients
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
