// Package channel implements a single named channel: a bounded FIFO
// queue drained by exactly one worker goroutine, a swappable handler and
// validator, and a participant set.
//
// Grounded on the teacher's Dispatcher worker loops (pkg/dispatch/dispatcher.go:
// messageProcessor's select{ctx.Done, shutdown, inputChan} pattern, and
// processMessage's non-blocking select{replyCh <- msg; default: drop}),
// generalized from one dispatcher-wide loop to one loop per channel.
package channel

import (
	"sync"

	"agentfabric/internal/fabconfig"
	"agentfabric/internal/logx"
	"agentfabric/internal/metrics"
	"agentfabric/message"
	"agentfabric/validate"
)

// State is a channel's lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Handler processes one delivered message.
type Handler func(message.Message)

// Channel is a bounded FIFO queue with one consuming worker.
type Channel struct {
	ID    string
	Owner string

	panicPolicy fabconfig.PanicPolicy
	recorder    *metrics.Recorder
	logger      *logx.Logger

	queue chan message.Message

	fieldsMu  sync.Mutex
	handler   Handler
	validator validate.Rule

	participantsMu sync.Mutex
	participants   map[string]struct{}

	stateMu  sync.Mutex
	state    State
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// New returns an Idle channel named id, bound to owner, with the given
// queue capacity and handler panic policy. recorder and logger may be nil.
func New(id, owner string, capacity int, policy fabconfig.PanicPolicy, recorder *metrics.Recorder, logger *logx.Logger) *Channel {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Channel{
		ID:           id,
		Owner:        owner,
		panicPolicy:  policy,
		recorder:     recorder,
		logger:       logger,
		queue:        make(chan message.Message, capacity),
		participants: make(map[string]struct{}),
		state:        Idle,
	}
}

// SetHandler replaces the delivery handler. Takes effect for the next
// message dequeued, not for one already in flight.
func (c *Channel) SetHandler(h Handler) {
	c.fieldsMu.Lock()
	defer c.fieldsMu.Unlock()
	c.handler = h
}

// SetValidator replaces the channel-level validator.
func (c *Channel) SetValidator(v validate.Rule) {
	c.fieldsMu.Lock()
	defer c.fieldsMu.Unlock()
	c.validator = v
}

func (c *Channel) getHandler() Handler {
	c.fieldsMu.Lock()
	defer c.fieldsMu.Unlock()
	return c.handler
}

func (c *Channel) getValidator() validate.Rule {
	c.fieldsMu.Lock()
	defer c.fieldsMu.Unlock()
	return c.validator
}

// AddParticipant marks agent as a participant of this channel. Idempotent.
func (c *Channel) AddParticipant(agent string) {
	c.participantsMu.Lock()
	defer c.participantsMu.Unlock()
	c.participants[agent] = struct{}{}
}

// RemoveParticipant removes agent from this channel's participants. Idempotent.
func (c *Channel) RemoveParticipant(agent string) {
	c.participantsMu.Lock()
	defer c.participantsMu.Unlock()
	delete(c.participants, agent)
}

// IsParticipant reports whether agent participates in this channel.
func (c *Channel) IsParticipant(agent string) bool {
	c.participantsMu.Lock()
	defer c.participantsMu.Unlock()
	_, ok := c.participants[agent]
	return ok
}

// IsChannelParticipant satisfies validate.ParticipantChecker; channel
// ignores the channel argument since a Channel only ever answers for
// itself.
func (c *Channel) IsChannelParticipant(_ string, agent string) bool {
	return c.IsParticipant(agent)
}

// Participants returns the current participant set.
func (c *Channel) Participants() []string {
	c.participantsMu.Lock()
	defer c.participantsMu.Unlock()
	out := make([]string, 0, len(c.participants))
	for a := range c.participants {
		out = append(out, a)
	}
	return out
}

// State reports the channel's current lifecycle state.
func (c *Channel) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Start is idempotent: Idle transitions to Running and spawns the worker;
// any other state is a no-op (Stopped is terminal per instance).
func (c *Channel) Start() {
	c.stateMu.Lock()
	if c.state != Idle {
		c.stateMu.Unlock()
		return
	}
	c.state = Running
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.stopOnce = sync.Once{}
	c.stateMu.Unlock()

	go c.run()
}

// Stop is idempotent: Running transitions to Stopping then Stopped,
// waking the worker and discarding any messages left in the queue.
// Stopped is terminal; a new Channel instance is required to resume.
func (c *Channel) Stop() {
	c.stateMu.Lock()
	if c.state != Running {
		if c.state == Idle {
			c.state = Stopped
		}
		c.stateMu.Unlock()
		return
	}
	c.state = Stopping
	stopCh := c.stopCh
	doneCh := c.doneCh
	// Close stopCh before Stopping becomes observable, so anyone who sees
	// Stopping knows the worker will take no further queued message.
	c.stopOnce.Do(func() { close(stopCh) })
	c.stateMu.Unlock()

	<-doneCh

	c.stateMu.Lock()
	c.state = Stopped
	c.stateMu.Unlock()
}

// Send enqueues msg for delivery. If validate is true, the channel
// validator runs first as a structural pre-enqueue check with an empty
// active agent (endpoint-level callers already fully validated with the
// real owner and pass validate=false here). A full queue or a non-Running
// channel rejects without blocking.
func (c *Channel) Send(msg message.Message, validate bool) bool {
	if c.State() != Running {
		c.observeSend("channel_not_running")
		return false
	}

	if validate {
		if v := c.getValidator(); v != nil {
			if res := v(msg, ""); !res.Accept {
				if c.recorder != nil {
					c.recorder.ObserveRejection(c.ID, res.Reason)
				}
				c.observeSend("rejected")
				return false
			}
		}
	}

	// Clone so this channel's queued copy owns its own metadata map;
	// otherwise a broadcast fan-out shares one map across every channel,
	// and a handler on one delivery can mutate what another sees.
	queued := msg.Clone()

	select {
	case c.queue <- queued:
		c.observeSend("enqueued")
		if c.recorder != nil {
			c.recorder.SetQueueDepth(c.ID, len(c.queue))
		}
		return true
	default:
		c.observeSend("backpressure")
		return false
	}
}

func (c *Channel) observeSend(result string) {
	if c.recorder != nil {
		c.recorder.ObserveSend(c.ID, result)
	}
}

func (c *Channel) run() {
	defer close(c.doneCh)
	for {
		// Stop always wins over a still-queued message: recheck it here,
		// non-blocking, before the select below could draw either case.
		select {
		case <-c.stopCh:
			return
		default:
		}

		select {
		case <-c.stopCh:
			return
		case msg := <-c.queue:
			c.deliver(msg)
			if c.recorder != nil {
				c.recorder.SetQueueDepth(c.ID, len(c.queue))
			}
		}
	}
}

// deliver runs the pre-deliver validation check with the endpoint's owner
// as the active agent (a validator panic counts as a rejection with reason
// "validator fault"), then invokes the handler inside a recovered call so
// that, under PolicyContinue, a handler panic cannot kill the worker.
func (c *Channel) deliver(msg message.Message) {
	if v := c.getValidator(); v != nil {
		res := func() (res validate.Result) {
			defer func() {
				if r := recover(); r != nil {
					res = validate.Reject("validator fault")
				}
			}()
			return v(msg, c.Owner)
		}()
		if !res.Accept {
			if c.recorder != nil {
				c.recorder.ObserveRejection(c.ID, res.Reason)
			}
			if c.logger != nil {
				c.logger.Warn("rejected message %s on channel %s: %s", msg.ID, c.ID, res.Reason)
			}
			return
		}
	}

	handler := c.getHandler()
	if handler == nil {
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				if c.recorder != nil {
					c.recorder.ObserveHandlerFault(c.ID)
				}
				if c.logger != nil {
					c.logger.Error("handler panic on channel %s for message %s: %v", c.ID, msg.ID, r)
				}
				if c.panicPolicy == fabconfig.PolicyPropagate {
					panic(r)
				}
			}
		}()
		handler(msg)
	}()

	if c.recorder != nil {
		c.recorder.ObserveDelivered(c.ID)
	}
}
