// Package services – advisor request/response records.
//
// The engines deliberately use explicit record types with required vs
// optional fields spelled out, instead of loosely-typed maps: the request
// shape is the main ambiguity source in this kind of pipeline.
package services

import (
	"time"

	"github.com/gestioweb/go-advisor-backend/internal/advisor/period"
	"github.com/gestioweb/go-advisor-backend/internal/advisor/snapshot"
	"github.com/gestioweb/go-advisor-backend/internal/advisor/summary"
)

// nowFn is the clock used to anchor period resolution; tests pin it.
var nowFn = time.Now

// GenerateRequest is the input of both advisor engines.
//
// Question is required. PeriodKey is optional (defaults to the 30-day
// window); CustomStart/CustomEnd are required only when PeriodKey is
// "custom". UserID and SessionID are optional; without a user id the
// preference and conversation side effects are skipped.
type GenerateRequest struct {
	Question    string
	PeriodKey   string
	CustomStart string
	CustomEnd   string
	History     []ChatMessage
	UserID      string
	SessionID   string
	Page        *summary.PageContext
}

// GenerateResponse is the output of both advisor engines.
//
// Thinking is non-nil only when the model exposed a reasoning trace (LLM
// engine). ConversationID is non-nil only when the rule-based engine
// persisted the exchange.
type GenerateResponse struct {
	Answer         string             `json:"answer"`
	Thinking       *string            `json:"thinking,omitempty"`
	Period         period.Period      `json:"period"`
	Snapshot       *snapshot.Snapshot `json:"snapshot"`
	ContextLines   []string           `json:"context_lines"`
	History        []ChatMessage      `json:"history"`
	ConversationID *string            `json:"conversation_id,omitempty"`
}

// ConversationSummary is one row of the conversation-history listing.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Rating    *int      `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
