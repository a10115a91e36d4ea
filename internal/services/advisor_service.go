// Package services – AdvisorService (rule-based engine).
//
// This engine answers without a model: the question is classified by the
// ordered rule table of internal/advisor/rules, the matching handler fills a
// fixed Italian template with snapshot counts scoped to the resolved period,
// and an optional insight sentence derived from past conversations is
// appended. Side effects (frequent-topic preference, conversation
// persistence) are best-effort: their failure never blocks the answer.
//
// Observability: Generate is OpenTelemetry-instrumented and counts answers
// per topic in Prometheus.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gestioweb/go-advisor-backend/internal/advisor/period"
	"github.com/gestioweb/go-advisor-backend/internal/advisor/rules"
	"github.com/gestioweb/go-advisor-backend/internal/advisor/snapshot"
	"github.com/gestioweb/go-advisor-backend/internal/advisor/summary"
	"github.com/gestioweb/go-advisor-backend/internal/repo"
)

// Response styles stored under the "response_style" preference.
const (
	styleConciso     = "conciso"
	styleDettagliato = "dettagliato"
)

// learnedAnswerMinShared is the minimum number of shared keywords a past
// conversation must have with the current question to be reused.
const learnedAnswerMinShared = 3

// AdvisorService is the rule-based answer generator.
type AdvisorService struct {
	DB        *gorm.DB
	Snapshots *snapshot.Builder
	Insights  *InsightService
	Log       zerolog.Logger
}

// NewAdvisorService wires the rule-based engine.
func NewAdvisorService(db *gorm.DB, builder *snapshot.Builder, insights *InsightService, log zerolog.Logger) *AdvisorService {
	return &AdvisorService{DB: db, Snapshots: builder, Insights: insights, Log: log}
}

// Generate resolves the period, builds the snapshot and context lines,
// classifies the question, and produces a canned answer. The exchange is
// persisted best-effort when a user id is present.
func (s *AdvisorService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	tr := otel.Tracer("services/AdvisorService")
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
	lines := summary.Lines(snap, p, req.Page)

	topic := rules.Classify(question)
	span.SetAttributes(attribute.String("advisor.topic", string(topic)))

	insight := s.Insights.AnalyzePastConversations(ctx, req.UserID)
	answer := s.buildAnswer(ctx, topic, question, snap, p, insight, req.UserID)

	// Track the matched topic as a preference (best-effort). Unmatched
	// questions carry no category signal and leave the preference alone.
	if req.UserID != "" && topic != rules.TopicGeneral {
		if err := repo.UpsertPreference(ctx, s.DB, req.UserID, repo.PrefFrequentTopics, string(topic)); err != nil {
			s.Log.Warn().Err(err).Str("user_id", req.UserID).Msg("frequent-topic upsert degraded")
		}
	}

	// Concise style truncates to the first two sentences.
	if s.responseStyle(ctx, req.UserID) == styleConciso {
		answer = firstSentences(answer, 2)
	}

	history := append(SanitizeHistory(req.History),
		ChatMessage{Role: roleUser, Content: question},
		ChatMessage{Role: roleAssistant, Content: answer},
	)

	resp := &GenerateResponse{
		Answer:       answer,
		Period:       p,
		Snapshot:     snap,
		ContextLines: lines,
		History:      history,
	}
	resp.ConversationID = s.saveConversation(ctx, req, question, answer, lines)

	answersTotal.WithLabelValues("rules", string(topic)).Inc()
	return resp, nil
}

// ListConversations returns a page of the user's conversation history,
// newest first, plus the total count.
func (s *AdvisorService) ListConversations(ctx context.Context, userID string, page, pageSize int) ([]ConversationSummary, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountConversations(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []ConversationSummary{}, 0, nil
	}
	rows, err := repo.ListConversationsPage(ctx, s.DB, userID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ConversationSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, ConversationSummary{
			ID:        r.ID,
			Question:  r.Question,
			Answer:    r.Answer,
			Rating:    r.Rating,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, total, nil
}

// saveConversation persists the exchange best-effort: it returns nil without
// a user id and swallows (but logs and counts) DB failures, because the
// answer must reach the caller regardless.
func (s *AdvisorService) saveConversation(ctx context.Context, req GenerateRequest, question, answer string, lines []string) *string {
	if req.UserID == "" {
		return nil
	}
	contextJSON, err := json.Marshal(lines)
	if err != nil {
		contextJSON = []byte("[]")
	}
	c, err := repo.CreateConversation(ctx, s.DB, req.UserID, req.SessionID, question, answer, string(contextJSON))
	if err != nil {
		conversationSaveFailures.Inc()
		s.Log.Warn().Err(err).Str("user_id", req.UserID).Msg("conversation save degraded")
		return nil
	}
	return &c.ID
}

// responseStyle reads the user's stored style; lookup failures degrade to
// the default detailed style.
func (s *AdvisorService) responseStyle(ctx context.Context, userID string) string {
	if userID == "" {
		return styleDettagliato
	}
	style, err := repo.GetPreference(ctx, s.DB, userID, repo.PrefResponseStyle)
	if err != nil {
		s.Log.Warn().Err(err).Str("user_id", userID).Msg("style lookup degraded")
		return styleDettagliato
	}
	if style == styleConciso {
		return styleConciso
	}
	return styleDettagliato
}

// buildAnswer dispatches to the per-topic template.
func (s *AdvisorService) buildAnswer(ctx context.Context, topic rules.Topic, question string, snap *snapshot.Snapshot, p period.Period, insight, userID string) string {
	var answer string
	switch topic {
	case rules.TopicClienti:
		answer = fmt.Sprintf(
			"Nel periodo %q hai registrato %d nuovi clienti. I migliori per margine sono elencati nel contesto.",
			p.Label, snap.Counters.NewClients)
	case rules.TopicServizi:
		answer = fmt.Sprintf(
			"Nel periodo %q risultano %d nuovi servizi attivati e %d contratti energia.",
			p.Label, snap.Counters.NewServices, snap.Operations.EnergyCreated)
	case rules.TopicReport:
		answer = fmt.Sprintf(
			"Report %s: entrate %s, uscite %s su %d movimenti. Pagamenti in attesa: %d.",
			p.Label, summary.FormatEUR(snap.Finance.Entrate), summary.FormatEUR(snap.Finance.Uscite),
			snap.Finance.Movimenti, snap.Finance.Pending)
	case rules.TopicTicket:
		answer = fmt.Sprintf(
			"Ci sono %d ticket aperti in totale; %d sono stati creati nel periodo %q.",
			snap.Support.Open, snap.Counters.NewTickets, p.Label)
	case rules.TopicModuli:
		answer = "Il gestionale include i moduli Clienti, Agenda, Curriculum, Servizi, Finanze, Marketing e Assistenza. Ogni modulo è raggiungibile dal menù principale."
	case rules.TopicStatistiche:
		answer = fmt.Sprintf(
			"Statistiche del periodo %q: %d clienti, %d servizi, %d ticket, %d movimenti finanziari.",
			p.Label, snap.Counters.NewClients, snap.Counters.NewServices, snap.Counters.NewTickets, snap.Finance.Movimenti)
	case rules.TopicIstruzioni:
		answer = "Per operare sul gestionale apri il modulo desiderato dal menù, usa il pulsante Nuovo per creare un record e il pulsante Salva per confermare. Dalla scheda di un cliente puoi aggiungere appuntamenti e servizi collegati."
	default:
		answer = s.learnedAnswer(ctx, question, userID)
	}

	if insight != "" {
		answer += " " + insight
	}
	return answer
}

// learnedAnswer serves unmatched questions: it reuses the best-rated past
// answers sharing at least three keywords with the question, otherwise it
// falls back to a generic suggestion built on the frequent-topic preference.
func (s *AdvisorService) learnedAnswer(ctx context.Context, question, userID string) string {
	keywords := strings.Fields(strings.ToLower(question))
	matches, err := repo.SearchRatedAnswers(ctx, s.DB, userID, keywords, learnedAnswerMinShared, 3)
	if err != nil {
		s.Log.Warn().Err(err).Msg("learned-answer lookup degraded")
		matches = nil
	}
	if len(matches) > 0 {
		parts := make([]string, 0, 2)
		for i, m := range matches {
			if i >= 2 {
				break
			}
			parts = append(parts, m.Answer)
		}
		return strings.Join(parts, " ")
	}

	suggestion := "Non ho una risposta precisa a questa domanda."
	if userID != "" {
		if topic, err := repo.GetPreference(ctx, s.DB, userID, repo.PrefFrequentTopics); err == nil && topic != "" {
			suggestion += fmt.Sprintf(" Di solito ti interessano i %s: prova a riformulare la domanda su quell'area.", topic)
			return suggestion
		}
	}
	suggestion += " Prova a chiedere di clienti, servizi, report, ticket o statistiche."
	return suggestion
}

// firstSentences keeps the first n sentences of text (split on ".").
func firstSentences(text string, n int) string {
	parts := strings.Split(text, ".")
	kept := make([]string, 0, n)
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		kept = append(kept, strings.TrimSpace(part))
		if len(kept) >= n {
			break
		}
	}
	if len(kept) == 0 {
		return text
	}
	return strings.Join(kept, ". ") + "."
}
