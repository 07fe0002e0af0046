// Package llm wraps the text-completion capability the simulator,
// evaluator and refiner depend on. Callers construct a concrete client
// once and pass it in; nothing in this package is a process-wide
// singleton.
package llm

import "context"

// Role tags a history entry relative to the persona being prompted.
// "self" turns are the persona's own past messages, "other" turns are the
// counterpart's. Keeping the two perspectives separate is what lets one
// flat conversation drive two models with independent system prompts.
type Role string

const (
	RoleSelf  Role = "self"
	RoleOther Role = "other"
)

// Turn is one role-tagged entry in a conversation history.
type Turn struct {
	Role Role
	Text string
}

// Client is the narrow contract the core depends on. Both methods block
// until the provider responds and both incur the configured rate-limit
// wait, so every call is a suspension point.
type Client interface {
	// Converse produces the persona's next message given its system
	// instruction and its perspective of the conversation so far.
	Converse(ctx context.Context, system string, history []Turn, temperature float64) (string, error)

	// GenerateStructured issues a single-shot request whose response must
	// match the JSON schema derived from schema (a struct exemplar).
	// It returns the raw JSON bytes; the caller unmarshals and decides
	// what a parse failure means.
	GenerateStructured(ctx context.Context, prompt string, schema any, system string, temperature float64) ([]byte, error)
}
