// Package summary turns a snapshot into the ordered list of short Italian
// context lines the advisor reasons from. The construction order is a
// content contract: finance first, then operations, support, marketing and
// risks. Consumers (the LLM prompt builder in particular) depend on that
// ordering, and lines whose underlying metric is zero or empty are omitted
// entirely, never rendered blank.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gestioweb/go-advisor-backend/internal/advisor/period"
	"github.com/gestioweb/go-advisor-backend/internal/advisor/snapshot"
)

// PageContext is optional metadata about the page the user asked from.
type PageContext struct {
	Title       string `json:"title"`
	Section     string `json:"section"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// it renders numbers and currency with Italian conventions.
var it = message.NewPrinter(language.Italian)

// Lines builds the ordered context digest for a snapshot. When page is
// non-nil and carries a title, a page-context line leads the digest.
func Lines(s *snapshot.Snapshot, p period.Period, page *PageContext) []string {
	lines := make([]string, 0, 10)

	if page != nil && strings.TrimSpace(page.Title) != "" {
		l := "Contesto pagina: " + strings.TrimSpace(page.Title)
		if sec := strings.TrimSpace(page.Section); sec != "" {
			l += " (" + sec + ")"
		}
		lines = append(lines, l)
	}

	// 1. Period and finance totals, always present.
	lines = append(lines, it.Sprintf(
		"Periodo %s (%d giorni): %d movimenti, entrate %s, uscite %s.",
		p.Label, p.Days, s.Finance.Movimenti, FormatEUR(s.Finance.Entrate), FormatEUR(s.Finance.Uscite)))

	// 2. Pending and overdue payments.
	if s.Finance.Pending > 0 {
		lines = append(lines, it.Sprintf(
			"Pagamenti in attesa: %d; scaduti: %d per %s.",
			s.Finance.Pending, s.Finance.OverdueCount, FormatEUR(s.Finance.OverdueValue)))
	}

	// 3. Top clients by margin.
	if len(s.Finance.TopClients) > 0 {
		parts := make([]string, 0, len(s.Finance.TopClients))
		for _, c := range s.Finance.TopClients {
			parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, FormatEUR(c.Margin)))
		}
		lines = append(lines, "Migliori clienti per margine: "+strings.Join(parts, ", ")+".")
	}

	// 4. Appointments by status.
	if total := sumCounts(s.Operations.AppointmentsByStatus); total > 0 {
		l := "Appuntamenti nel periodo: " + formatHistogram(s.Operations.AppointmentsByStatus) + "."
		if next := s.Operations.NextAppointment; next != nil {
			l += it.Sprintf(" Prossimo: %s il %s.", next.Title, next.StartsAt.Format("02/01/2006 15:04"))
		}
		lines = append(lines, l)
	}

	// 5. Energy contracts.
	if s.Operations.EnergyCreated > 0 {
		lines = append(lines, it.Sprintf(
			"Contratti energia nel periodo: %d (%s).",
			s.Operations.EnergyCreated, formatHistogram(s.Operations.EnergyByStatus)))
	}

	// 6. Logistics.
	if s.Operations.ShipmentsInternal+s.Operations.ShipmentsCarrier > 0 {
		lines = append(lines, it.Sprintf(
			"Spedizioni: %d interne, %d con corriere; problemi aperti: %d.",
			s.Operations.ShipmentsInternal, s.Operations.ShipmentsCarrier, s.Operations.OpenIssues))
	}

	// 7. Support queue.
	if s.Support.Open > 0 {
		l := it.Sprintf("Ticket aperti: %d (%d creati nel periodo).", s.Support.Open, s.Support.Created)
		if s.Support.OldestOpen != nil {
			l += it.Sprintf(" Il più vecchio: %q dal %s.",
				s.Support.OldestOpen.Subject, s.Support.OldestOpen.CreatedAt.Format("02/01/2006"))
		}
		lines = append(lines, l)
	}

	// 8. Marketing activity.
	if s.Marketing.Campaigns > 0 || s.Marketing.Subscribers > 0 {
		lines = append(lines, it.Sprintf(
			"Marketing: %d campagne nel periodo (%d attive), %d nuovi iscritti.",
			s.Marketing.Campaigns, s.Marketing.ActiveCampaigns, s.Marketing.Subscribers))
	}

	// 9. Risks.
	if len(s.Risks.OverduePayments) > 0 || len(s.Risks.Deadlines) > 0 {
		lines = append(lines, it.Sprintf(
			"Rischi: %d pagamenti scaduti, %d scadenze imminenti.",
			len(s.Risks.OverduePayments), len(s.Risks.Deadlines)))
	}

	return lines
}

// FormatEUR renders an amount with the Italian EUR convention
// (e.g. "€ 1.234,56"). When the currency formatter yields nothing it falls
// back to the euro sign plus a grouped two-decimal number.
func FormatEUR(v float64) string {
	s := strings.TrimSpace(it.Sprint(currency.Symbol(currency.EUR.Amount(v))))
	if s == "" {
		return "€ " + it.Sprintf("%.2f", v)
	}
	return s
}

// formatHistogram renders a status histogram as "n status" pairs with a
// deterministic (alphabetical) status order.
func formatHistogram(h map[string]int64) string {
	keys := make([]string, 0, len(h))
	for k, n := range h {
		if n > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, it.Sprintf("%d %s", h[k], k))
	}
	return strings.Join(parts, ", ")
}

// sumCounts totals a histogram.
func sumCounts(h map[string]int64) int64 {
	var total int64
	for _, n := range h {
		total += n
	}
	return total
}
