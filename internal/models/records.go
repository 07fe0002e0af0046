package models

import "time"

// Prompt is a versioned agent system prompt. Prompts generated by the
// tuning loop are inserted as new records, never edited in place.
type Prompt struct {
	ID         string    `json:"id"`
	Name       string    `json:"name" validate:"required"`
	PromptText string    `json:"prompt_text" validate:"required"`
	Version    string    `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}

// Personality describes a debtor persona: the system prompt that drives
// the debtor side of a simulation, plus the concrete values substituted
// for the {name} and {amount} placeholders.
type Personality struct {
	ID           string    `json:"id"`
	Name         string    `json:"name" validate:"required"`
	SystemPrompt string    `json:"system_prompt" validate:"required"`
	Amount       *float64  `json:"amount,omitempty" validate:"omitempty,min=0"`
	CreatedAt    time.Time `json:"created_at"`
}

// Scenario is a test case for the agent: a personality plus a stated
// objective the debtor pursues during the call. Weight is the default
// importance of the scenario in tuning aggregation.
type Scenario struct {
	ID            string    `json:"id"`
	PersonalityID string    `json:"personality_id" validate:"required"`
	Title         string    `json:"title" validate:"required"`
	Objective     string    `json:"objective" validate:"required"`
	Backstory     string    `json:"backstory,omitempty"`
	Weight        int       `json:"weight" validate:"min=1,max=5"`
	CreatedAt     time.Time `json:"created_at"`
}

// RiskScores are the five post-call risk matrices produced by the
// transcript analyzer. Each score is on a 1-100 scale where higher
// means lower risk for the collector.
type RiskScores struct {
	LoanRecovery            float64 `json:"loan_recovery_score"`
	WillingnessToPay        float64 `json:"willingness_to_pay_score"`
	EscalationRisk          float64 `json:"escalation_risk_score"`
	CustomerSentiment       float64 `json:"customer_sentiment_score"`
	PromiseToPayReliability float64 `json:"promise_to_pay_reliability_index"`
}

// CallRecord tracks one real outbound collection call placed by the
// dialer. The transcript watcher flips Status to "completed", fills
// TranscriptFile when the telephony agent drops its transcript and
// attaches RiskScores once the analyzer has scored the call.
type CallRecord struct {
	CallID         string      `json:"call_id"`
	RoomName       string      `json:"room_name"`
	Name           string      `json:"name" validate:"required"`
	PhoneNumber    string      `json:"phone_number" validate:"required"`
	CountryCode    string      `json:"country_code" validate:"required"`
	Amount         float64     `json:"amount" validate:"min=0"`
	Status         string      `json:"status"`
	TranscriptFile string      `json:"transcript_file,omitempty"`
	RiskScores     *RiskScores `json:"risk_scores,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}
