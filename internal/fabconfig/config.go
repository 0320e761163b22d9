// Package fabconfig holds the fabric's tunables: queue capacity, handler
// fault policy, and the default validation rule. Grounded on the teacher's
// pkg/config (a plain struct of typed fields with a constructor that
// supplies defaults), generalized from build/LLM/CI configuration to a
// small fixed set of delivery knobs — spec.md recognizes no environment
// inputs, so there is no loader/search/secrets layer to carry over.
package fabconfig

import "agentfabric/validate"

// PanicPolicy controls what a channel worker does after recovering from a
// handler panic.
type PanicPolicy int

const (
	// PolicyContinue logs the fault and keeps the worker running. This is
	// the default: one misbehaving handler invocation must not stop
	// delivery to the rest of a channel's messages.
	PolicyContinue PanicPolicy = iota
	// PolicyPropagate re-panics after recording the fault, for callers
	// that want a crashed handler to surface as a crashed process.
	PolicyPropagate
)

// Options collects the fabric's configurable behavior.
type Options struct {
	// QueueCapacity is the bound applied to every channel's FIFO queue.
	QueueCapacity int
	// HandlerPanicPolicy selects how a channel worker reacts to a
	// recovered handler panic.
	HandlerPanicPolicy PanicPolicy
	// DefaultValidator seeds new channels and endpoints when no explicit
	// validator has been set.
	DefaultValidator validate.Rule
}

// DefaultOptions returns the fabric's reference configuration: a queue
// capacity of 1024, handler faults logged and swallowed, and the
// default validator of the validate package.
func DefaultOptions() Options {
	return Options{
		QueueCapacity:      1024,
		HandlerPanicPolicy: PolicyContinue,
		DefaultValidator:   validate.Default,
	}
}
