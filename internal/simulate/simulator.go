// Package simulate runs the two-persona conversation between the
// collection agent and the debtor. Each persona is driven by its own
// system instruction and its own perspective of the history; the two
// never share a blended context.
package simulate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"promptune/internal/llm"
	"promptune/internal/models"
)

// DefaultMaxTurnPairs bounds the conversation length. One pair is an
// agent message followed by a debtor message.
const DefaultMaxTurnPairs = 10

// hangupKeywords end the conversation when any of them appears,
// case-insensitively, anywhere in a message.
var hangupKeywords = []string{
	"don't call me again",
	"i'm hanging up",
	"stop calling",
	"goodbye",
	"hanging up now",
	"leave me alone",
	"don't contact me",
	"end this call",
}

// Simulator alternates turns between the two personas until a
// termination condition fires and returns the accumulated transcript.
type Simulator struct {
	client            llm.Client
	logger            *zap.Logger
	maxTurnPairs      int
	agentTemperature  float64
	debtorTemperature float64
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithMaxTurnPairs overrides the turn-pair budget.
func WithMaxTurnPairs(n int) Option {
	return func(s *Simulator) { s.maxTurnPairs = n }
}

// WithTemperatures sets the sampling temperatures for the two personas.
func WithTemperatures(agent, debtor float64) Option {
	return func(s *Simulator) {
		s.agentTemperature = agent
		s.debtorTemperature = debtor
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// New creates a Simulator backed by the given turn generator.
func New(client llm.Client, opts ...Option) *Simulator {
	s := &Simulator{
		client:            client,
		logger:            zap.NewNop(),
		maxTurnPairs:      DefaultMaxTurnPairs,
		agentTemperature:  0.7,
		debtorTemperature: 0.7,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReplaceVariables substitutes the {name} and {amount} placeholders with
// concrete values. The amount renders as Indian Rupees with comma
// grouping and two decimals.
func ReplaceVariables(prompt, name string, amount *float64) string {
	result := prompt
	if name != "" {
		result = strings.ReplaceAll(result, "{name}", name)
	}
	if amount != nil {
		result = strings.ReplaceAll(result, "{amount}", FormatRupees(*amount))
	}
	return result
}

// FormatRupees renders an amount as e.g. "₹12,500.50".
func FormatRupees(amount float64) string {
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")

	var sb strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(digit)
	}
	return "₹" + sb.String() + "." + fracPart
}

// enhanceDebtorPrompt appends the scenario objective and an in-character
// framing clause to the persona prompt.
func enhanceDebtorPrompt(personaPrompt, objective string) string {
	return fmt.Sprintf(`%s

YOUR OBJECTIVE IN THIS CALL: %s

You are receiving a call from a debt collection agent. Stay in character and pursue your objective naturally through the conversation.`, personaPrompt, objective)
}

// shouldTerminate applies the termination predicate after a message:
// the turn-pair budget is exhausted, or the message contains a hangup
// keyword.
func (s *Simulator) shouldTerminate(message string, turnPairs int) bool {
	if turnPairs >= s.maxTurnPairs {
		return true
	}
	lower := strings.ToLower(message)
	for _, keyword := range hangupKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// Simulate runs the alternating agent/debtor dialogue and returns the
// transcript in chronological order. Any turn-generator error aborts the
// whole simulation; no partial transcript is returned.
func (s *Simulator) Simulate(ctx context.Context, agentPrompt, personaPrompt, objective, debtorName string, debtorAmount *float64) (models.Transcript, error) {
	if strings.TrimSpace(agentPrompt) == "" {
		return nil, fmt.Errorf("agent prompt must not be empty")
	}
	if strings.TrimSpace(personaPrompt) == "" {
		return nil, fmt.Errorf("persona prompt must not be empty")
	}
	if debtorAmount != nil && *debtorAmount < 0 {
		return nil, fmt.Errorf("debtor amount must be non-negative, got %v", *debtorAmount)
	}

	agentSystem := ReplaceVariables(agentPrompt, debtorName, debtorAmount)
	debtorSystem := enhanceDebtorPrompt(ReplaceVariables(personaPrompt, debtorName, debtorAmount), objective)

	s.logger.Info("starting conversation simulation",
		zap.String("debtor_name", debtorName),
		zap.Int("max_turn_pairs", s.maxTurnPairs))

	// Each persona carries its own role-tagged history, appended to
	// incrementally as messages land. The transcript is the merged
	// chronological record.
	var (
		transcript    models.Transcript
		agentHistory  []llm.Turn
		debtorHistory []llm.Turn
		turnPairs     int
	)

	for turnPairs < s.maxTurnPairs {
		agentMessage, err := s.client.Converse(ctx, agentSystem, agentHistory, s.agentTemperature)
		if err != nil {
			return nil, fmt.Errorf("conversation simulation failed: %w", err)
		}
		agentMessage = strings.TrimSpace(agentMessage)
		transcript = append(transcript, models.TranscriptMessage{Speaker: models.SpeakerAgent, Message: agentMessage})
		agentHistory = append(agentHistory, llm.Turn{Role: llm.RoleSelf, Text: agentMessage})
		debtorHistory = append(debtorHistory, llm.Turn{Role: llm.RoleOther, Text: agentMessage})

		if s.shouldTerminate(agentMessage, turnPairs) {
			s.logger.Debug("termination after agent turn", zap.Int("turn_pairs", turnPairs))
			break
		}

		debtorMessage, err := s.client.Converse(ctx, debtorSystem, debtorHistory, s.debtorTemperature)
		if err != nil {
			return nil, fmt.Errorf("conversation simulation failed: %w", err)
		}
		debtorMessage = strings.TrimSpace(debtorMessage)
		transcript = append(transcript, models.TranscriptMessage{Speaker: models.SpeakerDebtor, Message: debtorMessage})
		debtorHistory = append(debtorHistory, llm.Turn{Role: llm.RoleSelf, Text: debtorMessage})
		agentHistory = append(agentHistory, llm.Turn{Role: llm.RoleOther, Text: debtorMessage})

		turnPairs++
		if s.shouldTerminate(debtorMessage, turnPairs) {
			s.logger.Debug("termination after debtor turn", zap.Int("turn_pairs", turnPairs))
			break
		}
	}

	s.logger.Info("conversation simulation complete",
		zap.Int("turn_pairs", turnPairs),
		zap.Int("messages", len(transcript)))

	return transcript, nil
}
