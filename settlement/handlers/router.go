package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/davidjwilkins/declarative-settlements/errors"
	"github.com/davidjwilkins/declarative-settlements/settlement"
	"github.com/davidjwilkins/declarative-settlements/settlement/resolver"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Router dispatches lookups to the lookup registered for the request's payment method.
type Router struct {
	lock    sync.RWMutex
	lookups map[string]settlement.StatusLookup
}

func NewRouter() *Router {
	return &Router{lookups: make(map[string]settlement.StatusLookup)}
}

func (r *Router) Register(methodID string, lookup settlement.StatusLookup) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.lookups[methodID] = lookup
}

func (r *Router) Methods() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	methods := make([]string, 0, len(r.lookups))
	for id := range r.lookups {
		methods = append(methods, id)
	}
	sort.Strings(methods)
	return methods
}

func (r *Router) Lookup(ctx context.Context, req resolver.LookupRequest) (resolver.StatusReport, error) {
	r.lock.RLock()
	lookup, ok := r.lookups[req.MethodID]
	r.lock.RUnlock()
	if !ok {
		return resolver.StatusReport{}, fmt.Errorf("%w: %q", errors.ErrUnknownMethod, req.MethodID)
	}
	return lookup.Lookup(ctx, req)
}

// Ping pings every registered lookup that supports it and returns the first failure.
func (r *Router) Ping(ctx context.Context) error {
	for _, id := range r.Methods() {
		r.lock.RLock()
		p, ok := r.lookups[id].(pinger)
		r.lock.RUnlock()
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("payment method %s: %w", id, err)
		}
	}
	return nil
}
