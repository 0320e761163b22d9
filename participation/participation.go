// Package participation tracks, per agent, which channels an agent has
// joined and which servers it subscribes to. Writes are idempotent; reads
// of an agent with no record return the zero value (false / not present).
package participation

import "sync"

// Record holds one agent's channel memberships and server subscriptions.
type Record struct {
	Channels map[string]struct{}
	Servers  map[string]struct{}
}

func newRecord() *Record {
	return &Record{
		Channels: make(map[string]struct{}),
		Servers:  make(map[string]struct{}),
	}
}

// Registry is a mutex-protected map of agent id to participation Record,
// grounded on the teacher's Dispatcher.leases/leasesMutex pattern: a plain
// map guarded by its own lock, with small idempotent helper methods.
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

func (r *Registry) getOrCreate(agent string) *Record {
	rec, ok := r.records[agent]
	if !ok {
		rec = newRecord()
		r.records[agent] = rec
	}
	return rec
}

// AddChannel marks agent as a member of channel. Idempotent.
func (r *Registry) AddChannel(agent, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getOrCreate(agent).Channels[channel] = struct{}{}
}

// RemoveChannel removes agent's membership in channel. Idempotent.
func (r *Registry) RemoveChannel(agent, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[agent]; ok {
		delete(rec.Channels, channel)
	}
}

// AddServer subscribes agent to server. Idempotent.
func (r *Registry) AddServer(agent, server string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getOrCreate(agent).Servers[server] = struct{}{}
}

// RemoveServer unsubscribes agent from server. Idempotent.
func (r *Registry) RemoveServer(agent, server string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[agent]; ok {
		delete(rec.Servers, server)
	}
}

// IsInChannel reports whether agent is a member of channel.
func (r *Registry) IsInChannel(agent, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[agent]
	if !ok {
		return false
	}
	_, ok = rec.Channels[channel]
	return ok
}

// IsSubscribed reports whether agent is subscribed to server.
func (r *Registry) IsSubscribed(agent, server string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[agent]
	if !ok {
		return false
	}
	_, ok = rec.Servers[server]
	return ok
}

// Servers returns the set of servers agent subscribes to, or nil if none.
func (r *Registry) Servers(agent string) map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[agent]
	if !ok {
		return nil
	}
	out := make(map[string]struct{}, len(rec.Servers))
	for s := range rec.Servers {
		out[s] = struct{}{}
	}
	return out
}
