// Package validate implements the fabric's pluggable message-validation
// pipeline: a Rule evaluates a message from the perspective of a candidate
// receiver (the "active agent") and produces Accept or Reject-with-reason.
//
// Rules are first-class values composed with And/Or, grounded on the
// teacher's middleware-as-function-wrapper style
// (pkg/agent/middleware/validation, pkg/agent/llm.Middleware) generalized
// from "wrap an LLM client" to "wrap a validation decision".
package validate

import "agentfabric/message"

// Result is the outcome of evaluating a Rule.
type Result struct {
	Accept bool
	Reason string
}

// Accept is the canonical accepting Result.
var Accept = Result{Accept: true}

// Reject returns a rejecting Result carrying reason.
func Reject(reason string) Result {
	return Result{Accept: false, Reason: reason}
}

// Rule evaluates msg from the perspective of activeAgent.
type Rule func(msg message.Message, activeAgent string) Result

// And returns a Rule that accepts only if every rule accepts, short-
// circuiting on (and returning) the first rejection.
func And(rules ...Rule) Rule {
	return func(msg message.Message, activeAgent string) Result {
		for _, rule := range rules {
			if res := rule(msg, activeAgent); !res.Accept {
				return res
			}
		}
		return Accept
	}
}

// Or returns a Rule that accepts if any rule accepts; if all reject, it
// returns the last rejection's reason.
func Or(rules ...Rule) Rule {
	return func(msg message.Message, activeAgent string) Result {
		var last Result
		for _, rule := range rules {
			last = rule(msg, activeAgent)
			if last.Accept {
				return Accept
			}
		}
		if len(rules) == 0 {
			return Accept
		}
		return last
	}
}

// NotSelf accepts iff the message was not sent by the active agent.
func NotSelf(msg message.Message, activeAgent string) Result {
	if msg.Sender == activeAgent {
		return Reject("sender is the active agent")
	}
	return Accept
}

// Targeted accepts iff the message has no specific receiver (broadcast
// within the channel) or the receiver is the active agent.
func Targeted(msg message.Message, activeAgent string) Result {
	if msg.Receiver == "" || msg.Receiver == activeAgent {
		return Accept
	}
	return Reject("message is not addressed to the active agent")
}

// WellFormed accepts iff the message carries an id, and, when activeAgent
// is non-empty, also a non-empty channel and payload. When activeAgent is
// empty this is the only rule Default runs, matching the relaxed,
// un-owned-endpoint check observed in the source.
func WellFormed(msg message.Message, activeAgent string) Result {
	if msg.ID == "" {
		return Reject("message id is empty")
	}
	if activeAgent != "" {
		if msg.Channel == "" {
			return Reject("message channel is empty")
		}
		if msg.Payload == "" {
			return Reject("message payload is empty")
		}
	}
	return Accept
}

// ParticipantChecker answers whether agent participates in channel. Channel
// implements this directly; Endpoint delegates to the owned channel.
type ParticipantChecker interface {
	IsChannelParticipant(channel, agent string) bool
}

// Participant returns a Rule that accepts iff activeAgent is a participant
// of msg.Channel according to checker.
func Participant(checker ParticipantChecker) Rule {
	return func(msg message.Message, activeAgent string) Result {
		if checker.IsChannelParticipant(msg.Channel, activeAgent) {
			return Accept
		}
		return Reject("active agent is not a participant of the message channel")
	}
}

// SubscriptionChecker answers whether agent subscribes to server.
type SubscriptionChecker interface {
	IsSubscribed(agent, server string) bool
}

// Subscribed returns a Rule that accepts iff msg.Server is empty or
// activeAgent is subscribed to it according to checker.
func Subscribed(checker SubscriptionChecker) Rule {
	return func(msg message.Message, activeAgent string) Result {
		if msg.Server == "" || checker.IsSubscribed(activeAgent, msg.Server) {
			return Accept
		}
		return Reject("active agent is not subscribed to the message server")
	}
}

// Default is wellFormed ∧ notSelf when activeAgent is non-empty, and just
// wellFormed when activeAgent is empty — the relaxed, test-fixture path for
// un-owned endpoints observed in the source.
func Default(msg message.Message, activeAgent string) Result {
	if activeAgent == "" {
		return WellFormed(msg, activeAgent)
	}
	return And(WellFormed, NotSelf)(msg, activeAgent)
}
