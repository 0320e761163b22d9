// Package comms implements the per-agent endpoint (AgentComms): the
// owner of a set of named channels, the participation registry, and the
// global handler/validator defaults propagated to every channel it
// creates.
//
// Grounded on the teacher's Dispatcher as the per-process coordinator
// owning a map of named queues plus a leases map (pkg/dispatch/dispatcher.go),
// generalized from one dispatcher per orchestrator process to one
// endpoint per agent.
package comms

import (
	"sync"

	"agentfabric/channel"
	"agentfabric/ids"
	"agentfabric/internal/fabconfig"
	"agentfabric/internal/logx"
	"agentfabric/internal/metrics"
	"agentfabric/message"
	"agentfabric/participation"
	"agentfabric/validate"
)

// Endpoint is a single agent's communication surface: a named set of
// channels, a participation registry, and global handler/validator
// defaults for new channels.
type Endpoint struct {
	opts     fabconfig.Options
	recorder *metrics.Recorder
	logger   *logx.Logger

	ownerMu sync.Mutex
	owner   string

	channelsMu sync.Mutex
	channels   map[string]*channel.Channel

	participation *participation.Registry

	globalMu        sync.Mutex
	globalHandler   channel.Handler
	globalValidator validate.Rule

	startedMu sync.Mutex
	started   bool
}

// New creates a stopped Endpoint owned by owner. opts supplies the queue
// capacity, handler panic policy, and default validator for channels this
// endpoint creates; recorder and logger may be nil.
func New(owner string, opts fabconfig.Options, recorder *metrics.Recorder, logger *logx.Logger) *Endpoint {
	return &Endpoint{
		opts:          opts,
		recorder:      recorder,
		logger:        logger,
		owner:         owner,
		channels:      make(map[string]*channel.Channel),
		participation: participation.NewRegistry(),
	}
}

// SetOwner replaces the endpoint's owning agent id. Last write wins.
func (e *Endpoint) SetOwner(owner string) {
	e.ownerMu.Lock()
	defer e.ownerMu.Unlock()
	e.owner = owner
}

// Owner returns the endpoint's current owning agent id.
func (e *Endpoint) Owner() string {
	e.ownerMu.Lock()
	defer e.ownerMu.Unlock()
	return e.owner
}

// CreateChannel returns the channel named id, creating it if absent. A
// new channel inherits the current global handler/validator (or the
// endpoint's default validator if none has been set) and, if the
// endpoint is running, is started before CreateChannel returns. server,
// when non-empty, is recorded for the owner's subscription bookkeeping.
func (e *Endpoint) CreateChannel(id string, server string) *channel.Channel {
	e.channelsMu.Lock()
	ch, ok := e.channels[id]
	if !ok {
		ch = channel.New(id, e.Owner(), e.opts.QueueCapacity, e.opts.HandlerPanicPolicy, e.recorder, e.logger)

		e.globalMu.Lock()
		handler := e.globalHandler
		validator := e.globalValidator
		e.globalMu.Unlock()
		if validator == nil {
			validator = e.opts.DefaultValidator
		}
		ch.SetHandler(handler)
		ch.SetValidator(validator)

		e.channels[id] = ch
	}
	e.channelsMu.Unlock()

	if server != "" {
		e.participation.AddServer(e.Owner(), server)
	}

	e.startedMu.Lock()
	running := e.started
	e.startedMu.Unlock()
	if running {
		ch.Start()
	}

	return ch
}

// GetChannel returns the channel named id, or nil if it does not exist.
func (e *Endpoint) GetChannel(id string) *channel.Channel {
	e.channelsMu.Lock()
	defer e.channelsMu.Unlock()
	return e.channels[id]
}

// RemoveChannel stops and drops the channel named id. A no-op if it does
// not exist.
func (e *Endpoint) RemoveChannel(id string) {
	e.channelsMu.Lock()
	ch, ok := e.channels[id]
	if ok {
		delete(e.channels, id)
	}
	e.channelsMu.Unlock()

	if ok {
		ch.Stop()
	}
}

// Send validates msg once at the endpoint (activeAgent = owner) when
// validate is true, then delegates to the named channel with its own
// structural pre-enqueue check skipped (already validated here). Returns
// false if the channel is unknown or validation rejects.
func (e *Endpoint) Send(channelID string, msg message.Message, validate bool) bool {
	ch := e.GetChannel(channelID)
	if ch == nil {
		e.observeSend(channelID, "unknown_channel")
		return false
	}

	if validate {
		if res := e.validatorFor(ch)(msg, e.Owner()); !res.Accept {
			if e.recorder != nil {
				e.recorder.ObserveRejection(channelID, res.Reason)
			}
			if e.logger != nil {
				e.logger.Warn("endpoint rejected send of %s on channel %s: %s", msg.ID, channelID, res.Reason)
			}
			e.observeSend(channelID, "rejected")
			return false
		}
	}

	return ch.Send(msg, false)
}

// Broadcast validates msg once at the endpoint (activeAgent = owner)
// when validate is true, then fans out to every channel with the channel's
// structural pre-enqueue check skipped. Each channel's worker still runs
// its own pre-deliver check before calling the handler.
func (e *Endpoint) Broadcast(msg message.Message, validate bool) {
	if validate {
		if res := e.broadcastValidation(msg); !res.Accept {
			if e.logger != nil {
				e.logger.Warn("endpoint rejected broadcast of %s: %s", msg.ID, res.Reason)
			}
			return
		}
	}

	e.channelsMu.Lock()
	targets := make([]*channel.Channel, 0, len(e.channels))
	for _, ch := range e.channels {
		targets = append(targets, ch)
	}
	e.channelsMu.Unlock()

	for _, ch := range targets {
		ch.Send(msg, false)
	}
}

// broadcastValidation runs the endpoint-level validator once for
// Broadcast, using the global validator (or the endpoint's default if
// none is set) — broadcast validates once before fan-out, never per
// channel.
func (e *Endpoint) broadcastValidation(msg message.Message) validate.Result {
	e.globalMu.Lock()
	v := e.globalValidator
	e.globalMu.Unlock()
	if v == nil {
		v = e.opts.DefaultValidator
	}
	if v == nil {
		return validate.Accept
	}
	return v(msg, e.Owner())
}

func (e *Endpoint) validatorFor(ch *channel.Channel) validate.Rule {
	e.globalMu.Lock()
	v := e.globalValidator
	e.globalMu.Unlock()
	if v != nil {
		return v
	}
	if e.opts.DefaultValidator != nil {
		return e.opts.DefaultValidator
	}
	return func(message.Message, string) validate.Result { return validate.Accept }
}

func (e *Endpoint) observeSend(channelID, result string) {
	if e.recorder != nil {
		e.recorder.ObserveSend(channelID, result)
	}
}

// AddChannelParticipant adds agent to channel's participant set and
// records the membership in the participation registry. Returns false if
// the channel is unknown.
func (e *Endpoint) AddChannelParticipant(channelID, agent string) bool {
	ch := e.GetChannel(channelID)
	if ch == nil {
		return false
	}
	ch.AddParticipant(agent)
	e.participation.AddChannel(agent, channelID)
	return true
}

// RemoveChannelParticipant removes agent from channel's participant set
// and the participation registry. Returns false if the channel is
// unknown.
func (e *Endpoint) RemoveChannelParticipant(channelID, agent string) bool {
	ch := e.GetChannel(channelID)
	if ch == nil {
		return false
	}
	ch.RemoveParticipant(agent)
	e.participation.RemoveChannel(agent, channelID)
	return true
}

// IsChannelParticipant reports whether agent participates in channelID.
// Implements validate.ParticipantChecker.
func (e *Endpoint) IsChannelParticipant(channelID, agent string) bool {
	ch := e.GetChannel(channelID)
	if ch == nil {
		return false
	}
	return ch.IsParticipant(agent)
}

// SubscribeToServer subscribes agent (default: owner) to server.
func (e *Endpoint) SubscribeToServer(server string, agent ...string) {
	e.participation.AddServer(e.resolveAgent(agent), server)
}

// UnsubscribeFromServer unsubscribes agent (default: owner) from server.
func (e *Endpoint) UnsubscribeFromServer(server string, agent ...string) {
	e.participation.RemoveServer(e.resolveAgent(agent), server)
}

// IsSubscribedToServer reports whether agent (default: owner) subscribes
// to server.
func (e *Endpoint) IsSubscribedToServer(server string, agent ...string) bool {
	return e.participation.IsSubscribed(e.resolveAgent(agent), server)
}

// IsSubscribed implements validate.SubscriptionChecker with the
// (agent, server) argument order the validator package expects.
func (e *Endpoint) IsSubscribed(agent, server string) bool {
	return e.participation.IsSubscribed(agent, server)
}

func (e *Endpoint) resolveAgent(agent []string) string {
	if len(agent) > 0 && agent[0] != "" {
		return agent[0]
	}
	return e.Owner()
}

// SetGlobalHandler stores handler as the default for new channels and
// propagates it to every existing channel.
func (e *Endpoint) SetGlobalHandler(handler channel.Handler) {
	e.globalMu.Lock()
	e.globalHandler = handler
	e.globalMu.Unlock()

	e.channelsMu.Lock()
	defer e.channelsMu.Unlock()
	for _, ch := range e.channels {
		ch.SetHandler(handler)
	}
}

// SetGlobalValidator stores validator as the default for new channels
// and propagates it to every existing channel.
func (e *Endpoint) SetGlobalValidator(validator validate.Rule) {
	e.globalMu.Lock()
	e.globalValidator = validator
	e.globalMu.Unlock()

	e.channelsMu.Lock()
	defer e.channelsMu.Unlock()
	for _, ch := range e.channels {
		ch.SetValidator(validator)
	}
}

// AgentScopedID is a shortcut for ids.AgentScopedID using this endpoint's
// owner.
func (e *Endpoint) AgentScopedID(resource string) string {
	return ids.AgentScopedID(e.Owner(), resource)
}

// Start transitions every owned channel to Running and marks the
// endpoint started, so channels created afterward auto-start.
func (e *Endpoint) Start() {
	e.startedMu.Lock()
	e.started = true
	e.startedMu.Unlock()

	e.channelsMu.Lock()
	defer e.channelsMu.Unlock()
	for _, ch := range e.channels {
		ch.Start()
	}
}

// Stop transitions every owned channel to Stopped (final) and marks the
// endpoint not started.
func (e *Endpoint) Stop() {
	e.startedMu.Lock()
	e.started = false
	e.startedMu.Unlock()

	e.channelsMu.Lock()
	targets := make([]*channel.Channel, 0, len(e.channels))
	for _, ch := range e.channels {
		targets = append(targets, ch)
	}
	e.channelsMu.Unlock()

	for _, ch := range targets {
		ch.Stop()
	}
}

// ActiveChannels returns the ids of every channel this endpoint owns.
func (e *Endpoint) ActiveChannels() []string {
	e.channelsMu.Lock()
	defer e.channelsMu.Unlock()
	out := make([]string, 0, len(e.channels))
	for id := range e.channels {
		out = append(out, id)
	}
	return out
}
