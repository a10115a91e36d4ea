// Package rules classifies advisor questions into answer topics.
//
// Classification is an explicit ordered list of (pattern, topic) rules
// evaluated against the lowercased question; the first matching pattern wins
// and TopicGeneral is the default, so Classify is total: every input string
// maps to exactly one topic, never an error.
package rules

import (
	"regexp"
	"strings"
)

// Topic identifies the canned-response family a question belongs to.
type Topic string

// Topics, in dispatch order. The values double as the stored
// "frequent_topics" preference values.
const (
	TopicClienti     Topic = "clienti"
	TopicServizi     Topic = "servizi"
	TopicReport      Topic = "report"
	TopicTicket      Topic = "ticket"
	TopicModuli      Topic = "moduli"
	TopicStatistiche Topic = "statistiche"
	TopicIstruzioni  Topic = "istruzioni"
	TopicGeneral     Topic = "general"
)

// rule pairs a compiled pattern with its topic.
type rule struct {
	re    *regexp.Regexp
	topic Topic
}

// ruleSet is evaluated top to bottom; order matters. Patterns are Italian
// keyword stems so they match singular/plural and derived forms.
var ruleSet = []rule{
	{regexp.MustCompile(`client|anagrafic`), TopicClienti},
	{regexp.MustCompile(`serviz|prestazion|attivazion|contratt`), TopicServizi},
	{regexp.MustCompile(`report|riepilog|resocont|fattur|incass|entrat|uscit`), TopicReport},
	{regexp.MustCompile(`ticket|assistenz|segnalazion|problem|guast`), TopicTicket},
	{regexp.MustCompile(`modul|funzionalit|sezion|gestional`), TopicModuli},
	{regexp.MustCompile(`statistic|numer|andament|metric|quant[io]`), TopicStatistiche},
	{regexp.MustCompile(`come\s+(posso|faccio|si)|istruzion|guida|aiut|tutorial`), TopicIstruzioni},
}

// Classify maps a question to its topic; first match wins, default
// TopicGeneral.
func Classify(question string) Topic {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, r := range ruleSet {
		if r.re.MatchString(q) {
			return r.topic
		}
	}
	return TopicGeneral
}

// All returns every topic Classify can produce, in dispatch order.
func All() []Topic {
	return []Topic{
		TopicClienti, TopicServizi, TopicReport, TopicTicket,
		TopicModuli, TopicStatistiche, TopicIstruzioni, TopicGeneral,
	}
}
