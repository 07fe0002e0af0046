// Package models defines the persisted record types shared across the
// service: transcripts, prompts, personas, scenarios, evaluation results
// and tuning loops.
package models

import "github.com/go-playground/validator/v10"

// validate is the shared validator instance used across the package.
var validate = validator.New()

// Validate checks a struct against its validation tags. Input validation
// errors surface before any simulation or evaluation work begins.
func Validate(s any) error {
	return validate.Struct(s)
}
