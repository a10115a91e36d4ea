// Package services implements the advisor business logic: the rule-based and
// LLM-backed answer generators, conversation insights, and feedback handling.
// This file centralizes the service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Validation errors carry Italian messages because they are surfaced to the
// end user verbatim; translation into HTTP status codes happens at the
// handler layer.
package services

import "errors"

var (
	// ErrEmptyQuestion is returned when a generate request carries a blank
	// question.
	ErrEmptyQuestion = errors.New("la domanda non può essere vuota")

	// ErrInvalidRating is returned when a feedback rating falls outside the
	// allowed 1–5 range. It is raised before any database access.
	ErrInvalidRating = errors.New("la valutazione deve essere un numero compreso tra 1 e 5")

	// ErrEmptyCompletion is returned when the model answered with empty
	// content; no fallback text is synthesized in its place.
	ErrEmptyCompletion = errors.New("il modello non ha restituito una risposta utilizzabile")

	// ErrNoModelConfigured is returned when neither a preferred model nor a
	// fallback list is configured for the LLM engine.
	ErrNoModelConfigured = errors.New("nessun modello configurato per il motore AI")
)
