// Package services – Prometheus instrumentation for the advisor engines.
//
// HTTP-level metrics live in the middleware; the counters here track what
// the pipeline itself does: which topics get answered by which engine, and
// how often the LLM engine has to fall back to another model.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// answersTotal counts generated answers by engine ("rules"|"llm") and
	// topic (rule topics, or "llm" for model answers).
	answersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_answers_total",
			Help: "Total number of advisor answers generated.",
		},
		[]string{"engine", "topic"},
	)

	// llmFallbacksTotal counts rate-limited completion attempts that caused
	// a switch to the next model candidate.
	llmFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_llm_fallbacks_total",
			Help: "Total number of model fallbacks triggered by rate limits.",
		},
	)

	// conversationSaveFailures counts best-effort conversation writes that
	// were swallowed.
	conversationSaveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_conversation_save_failures_total",
			Help: "Total number of conversation persistence failures (best-effort, not surfaced).",
		},
	)
)

func init() {
	prometheus.MustRegister(answersTotal, llmFallbacksTotal, conversationSaveFailures)
}
