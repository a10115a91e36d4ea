// Package services – conversation insights.
//
// An insight is a canned heuristic sentence derived from the topic
// distribution of a user's recent questions. It is a frequency heuristic,
// not a model: topic keywords are counted by substring match and a topic
// wins only with a strict majority over every other topic. Ties yield no
// insight at all, which keeps the outcome independent of evaluation order.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/gestioweb/go-advisor-backend/internal/repo"
)

// insightWindow is how many recent conversations feed the analysis.
const insightWindow = 10

// insightSentences maps the winning topic keyword to its canned sentence.
var insightSentences = map[string]string{
	"cliente":  "Ultimamente ti concentri spesso sulla gestione dei clienti.",
	"servizio": "Ultimamente chiedi spesso dei servizi attivati.",
	"ticket":   "Ultimamente l'assistenza sembra la tua priorità.",
	"report":   "Ultimamente consulti spesso report e riepiloghi.",
}

// insightKeywords is the fixed topic vocabulary, matched as substrings on
// the lowercased question text.
var insightKeywords = []string{"cliente", "servizio", "ticket", "report"}

// InsightService derives the per-user insight sentence from past
// conversations.
type InsightService struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

// AnalyzePastConversations returns the insight sentence for userID, or the
// empty string when there is no user, no history, or no strict-majority
// topic. Lookup failures are logged and degrade to no insight; the answer
// is simply less personalized.
func (s *InsightService) AnalyzePastConversations(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	rows, err := repo.ListRecentConversations(ctx, s.DB, userID, insightWindow)
	if err != nil {
		s.Log.Warn().Err(err).Str("user_id", userID).Msg("insight lookup degraded")
		return ""
	}
	if len(rows) == 0 {
		return ""
	}

	counts := make(map[string]int, len(insightKeywords))
	for _, row := range rows {
		q := strings.ToLower(row.Question)
		for _, kw := range insightKeywords {
			if strings.Contains(q, kw) {
				counts[kw]++
			}
		}
	}

	winner := ""
	for _, kw := range insightKeywords {
		n := counts[kw]
		if n == 0 {
			continue
		}
		strict := true
		for _, other := range insightKeywords {
			if other != kw && counts[other] >= n {
				strict = false
				break
			}
		}
		if strict {
			winner = kw
			break
		}
	}
	if winner == "" {
		return ""
	}
	return insightSentences[winner]
}
