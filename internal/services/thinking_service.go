// Package services – ThinkingService (LLM-backed engine).
//
// This engine builds a system+user prompt from the context lines and the
// sanitized history, then calls the chat-completions client with model
// fallback: candidates are tried in order, a rate-limit-classified failure
// moves on to the next model, any other failure aborts immediately, and
// exhausting the list re-raises the last rate-limit error. The visible
// answer has any <think>…</think> block stripped; the block contents (or an
// explicit thinking field) become the parallel thinking trace.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gestioweb/go-advisor-backend/internal/advisor/period"
	"github.com/gestioweb/go-advisor-backend/internal/advisor/snapshot"
	"github.com/gestioweb/go-advisor-backend/internal/advisor/summary"
	"github.com/gestioweb/go-advisor-backend/internal/llm"
)

// Completer issues a single chat completion. *llm.Client satisfies it;
// tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// thinkRE extracts an inline reasoning block from the model output.
var thinkRE = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// focusDirectives maps a page section to the directive appended to the user
// prompt when the user asked from that section.
var focusDirectives = map[string]string{
	"clienti":   "Concentrati sulla gestione e la fidelizzazione dei clienti.",
	"finanze":   "Concentrati su incassi, pagamenti e flusso di cassa.",
	"agenda":    "Concentrati sull'organizzazione degli appuntamenti.",
	"marketing": "Concentrati su campagne e iscritti alla newsletter.",
	"supporto":  "Concentrati sulla coda dei ticket di assistenza.",
}

// ThinkingService is the LLM-backed answer generator.
type ThinkingService struct {
	DB        *gorm.DB
	Snapshots *snapshot.Builder
	Client    Completer
	Log       zerolog.Logger

	// Model is the preferred model; FallbackModels is the raw configured
	// list, comma- or newline-separated.
	Model          string
	FallbackModels string

	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Generate resolves the period, builds snapshot and context lines, and asks
// the model for an answer with fallback across the configured candidates.
func (s *ThinkingService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	tr := otel.Tracer("services/ThinkingService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(attribute.String("user.id", req.UserID)),
	)
	defer span.End()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	p, err := period.Resolve(req.PeriodKey, req.CustomStart, req.CustomEnd, nowFn())
	if err != nil {
		return nil, err
	}

	snap := s.Snapshots.Build(ctx, p)
	lines := summary.Lines(snap, p, nil)

	history := SanitizeHistory(req.History)
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: roleSystem, Content: systemPrompt(p)})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: roleUser, Content: userPrompt(question, lines, req.Page)})

	answer, thinking, model, err := s.completeWithFallback(ctx, messages)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("llm.model", model))

	history = append(history,
		ChatMessage{Role: roleUser, Content: question},
		ChatMessage{Role: roleAssistant, Content: answer},
	)

	answersTotal.WithLabelValues("llm", "llm").Inc()
	return &GenerateResponse{
		Answer:       answer,
		Thinking:     thinking,
		Period:       p,
		Snapshot:     snap,
		ContextLines: lines,
		History:      history,
	}, nil
}

// completeWithFallback tries every model candidate in order and returns the
// parsed answer, the optional thinking trace, and the model that served it.
func (s *ThinkingService) completeWithFallback(ctx context.Context, messages []llm.Message) (answer string, thinking *string, model string, err error) {
	candidates := modelCandidates(s.Model, s.FallbackModels)
	if len(candidates) == 0 {
		return "", nil, "", ErrNoModelConfigured
	}

	var lastRateLimit error
	for i, candidate := range candidates {
		resp, cerr := s.Client.Complete(ctx, llm.Request{
			Model:       candidate,
			Messages:    messages,
			Temperature: s.Temperature,
			TopP:        s.TopP,
			MaxTokens:   s.MaxTokens,
		})
		if cerr != nil {
			if llm.IsRateLimit(cerr) {
				lastRateLimit = cerr
				if i < len(candidates)-1 {
					llmFallbacksTotal.Inc()
					s.Log.Warn().Err(cerr).Str("model", candidate).Msg("rate limited, trying next model")
				}
				continue
			}
			return "", nil, "", cerr
		}

		answer, thinking, err = parseCompletion(resp)
		if err != nil {
			return "", nil, "", err
		}
		return answer, thinking, candidate, nil
	}
	return "", nil, "", lastRateLimit
}

// parseCompletion extracts the visible answer and the thinking trace from a
// completion. Empty content is fatal: no fallback text is synthesized.
func parseCompletion(resp *llm.Response) (string, *string, error) {
	msg := resp.Choices[0].Message

	var thinking *string
	if t := strings.TrimSpace(msg.Thinking); t != "" {
		thinking = &t
	}

	content := msg.Content
	if m := thinkRE.FindStringSubmatch(content); m != nil {
		if thinking == nil {
			if t := strings.TrimSpace(m[1]); t != "" {
				thinking = &t
			}
		}
		content = thinkRE.ReplaceAllString(content, "")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", nil, ErrEmptyCompletion
	}
	return content, thinking, nil
}

// modelCandidates builds the ordered, de-duplicated candidate list:
// preferred model first, then the configured fallbacks split on commas and
// newlines.
func modelCandidates(preferred, fallbacks string) []string {
	raw := []string{preferred}
	raw = append(raw, strings.FieldsFunc(fallbacks, func(r rune) bool {
		return r == ',' || r == '\n'
	})...)

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, m := range raw {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// systemPrompt is the fixed instruction set, parameterized on the period.
func systemPrompt(p period.Period) string {
	return fmt.Sprintf(
		"Sei il consulente AI di un'agenzia di servizi italiana. Rispondi in italiano, in modo concreto e orientato all'azione. "+
			"Il periodo di analisi è %q (%s – %s, %d giorni). "+
			"Dai priorità, nell'ordine, a: flusso di cassa, operatività, marketing, assistenza. "+
			"Basa ogni affermazione sui dati di contesto forniti; se un dato manca, dillo.",
		p.Label, p.Start.Format("02/01/2006"), p.End.Format("02/01/2006"), p.Days)
}

// userPrompt assembles the user message: optional page-context line, the
// question, the ordered context lines, and an optional focus directive.
func userPrompt(question string, lines []string, page *summary.PageContext) string {
	var b strings.Builder
	if page != nil && strings.TrimSpace(page.Title) != "" {
		b.WriteString("L'utente sta guardando la pagina: " + strings.TrimSpace(page.Title))
		if d := strings.TrimSpace(page.Description); d != "" {
			b.WriteString(" (" + d + ")")
		}
		b.WriteString("\n\n")
	}
	b.WriteString("Domanda: " + question + "\n\nDati di contesto:\n")
	for _, l := range lines {
		b.WriteString("- " + l + "\n")
	}
	if page != nil {
		if directive, ok := focusDirectives[strings.ToLower(strings.TrimSpace(page.Section))]; ok {
			b.WriteString("\n" + directive)
		}
	}
	return b.String()
}
