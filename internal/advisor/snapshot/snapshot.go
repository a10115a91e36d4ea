// Package snapshot builds the per-request bundle of aggregate business
// metrics the advisor answers from. The builder runs the bounded read
// queries of internal/repo serially and assembles their results.
//
// Partial-failure policy: a single broken table or column must never block
// the rest of the advisor response. Every sub-query failure is logged,
// replaced by its zero value, and recorded as a Degradation on the snapshot
// so callers can tell "empty" apart from "failed". Build never returns an
// error.
package snapshot

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/gestioweb/go-advisor-backend/internal/advisor/period"
	"github.com/gestioweb/go-advisor-backend/internal/repo"
)

// topListLimit caps the ranking/risk lists embedded in a snapshot.
const topListLimit = 5

// Degradation records one sub-query that fell back to its zero value.
type Degradation struct {
	Metric string `json:"metric"`
	Reason string `json:"reason"`
}

// Finance holds the money-side aggregates of a period.
type Finance struct {
	Entrate      float64            `json:"entrate"`
	Uscite       float64            `json:"uscite"`
	Movimenti    int64              `json:"movimenti"`
	Pending      int64              `json:"pending"`
	OverdueCount int64              `json:"overdue_count"`
	OverdueValue float64            `json:"overdue_value"`
	TopClients   []repo.ClientMargin `json:"top_clients"`
}

// Operations holds agenda, energy and logistics aggregates.
type Operations struct {
	AppointmentsByStatus map[string]int64          `json:"appointments_by_status"`
	NextAppointment      *repo.UpcomingAppointment `json:"next_appointment,omitempty"`
	EnergyByStatus       map[string]int64          `json:"energy_by_status"`
	EnergyCreated        int64                     `json:"energy_created"`
	ShipmentsInternal    int64                     `json:"shipments_internal"`
	ShipmentsCarrier     int64                     `json:"shipments_carrier"`
	OpenIssues           int64                     `json:"open_issues"`
}

// Support holds ticket-queue aggregates.
type Support struct {
	Open       int64            `json:"open"`
	Created    int64            `json:"created"`
	OldestOpen *repo.OpenTicket `json:"oldest_open,omitempty"`
}

// Marketing holds campaign and subscriber aggregates.
type Marketing struct {
	Campaigns       int64 `json:"campaigns"`
	ActiveCampaigns int64 `json:"active_campaigns"`
	Subscribers     int64 `json:"subscribers"`
}

// Risks holds the urgency lists: unpaid past-due payments and upcoming
// deadlines, both ascending by due date.
type Risks struct {
	OverduePayments []repo.OverduePayment  `json:"overdue_payments"`
	Deadlines       []repo.UpcomingDeadline `json:"deadlines"`
}

// Counters are the plain created-in-period counts the rule engine
// interpolates into canned answers.
type Counters struct {
	NewClients  int64 `json:"new_clients"`
	NewServices int64 `json:"new_services"`
	NewTickets  int64 `json:"new_tickets"`
}

// Snapshot is the read-only metric bundle for one resolved period. It is
// derived fresh per request and never persisted.
type Snapshot struct {
	Finance    Finance    `json:"finance"`
	Operations Operations `json:"operations"`
	Support    Support    `json:"support"`
	Marketing  Marketing  `json:"marketing"`
	Risks      Risks      `json:"risks"`
	Counters   Counters   `json:"counters"`

	// Partial is true when at least one sub-query degraded; Degraded lists
	// the affected metrics with their diagnostics.
	Partial  bool          `json:"partial"`
	Degraded []Degradation `json:"degraded,omitempty"`
}

// Builder assembles snapshots from the business tables.
type Builder struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

// NewBuilder constructs a Builder writing degradation diagnostics to log.
func NewBuilder(db *gorm.DB, log zerolog.Logger) *Builder {
	return &Builder{DB: db, Log: log}
}

// Build runs every aggregate query bounded by p and assembles the snapshot.
// Queries run serially; failures degrade per the package policy.
func (b *Builder) Build(ctx context.Context, p period.Period) *Snapshot {
	s := &Snapshot{}
	now := p.End

	// Finance
	if t, err := repo.GetFinanceTotals(ctx, b.DB, p.Start, p.End); err != nil {
		b.degrade(s, "finance.totals", err)
	} else {
		s.Finance.Entrate, s.Finance.Uscite, s.Finance.Movimenti = t.Entrate, t.Uscite, t.Movimenti
	}
	if n, err := repo.CountPendingPayments(ctx, b.DB, p.Start, p.End); err != nil {
		b.degrade(s, "finance.pending", err)
	} else {
		s.Finance.Pending = n
	}
	if count, value, err := repo.GetOverduePaymentsStats(ctx, b.DB, now); err != nil {
		b.degrade(s, "finance.overdue", err)
	} else {
		s.Finance.OverdueCount, s.Finance.OverdueValue = count, value
	}
	if top, err := repo.ListTopClientsByMargin(ctx, b.DB, p.Start, p.End, topListLimit); err != nil {
		b.degrade(s, "finance.top_clients", err)
	} else {
		s.Finance.TopClients = top
	}

	// Operations: agenda
	if hist, err := repo.GetAppointmentsByStatus(ctx, b.DB, p.Start, p.End); err != nil {
		b.degrade(s, "operations.appointments", err)
	} else {
		s.Operations.AppointmentsByStatus = hist
	}
	if next, err := repo.GetNextAppointment(ctx, b.DB, now); err != nil {
		b.degrade(s, "operations.next_appointment", err)
	} else {
		s.Operations.NextAppointment = next
	}

	// Operations: energy
	if hist, err := repo.GetEnergyContractsByStatus(ctx, b.DB, p.Start, p.End); err != nil {
		b.degrade(s, "operations.energy", err)
	} else {
		s.Operations.EnergyByStatus = hist
		for _, n := range hist {
			s.Operations.EnergyCreated += n
		}
	}

	// Operations: logistics
	if internal, carrier, err := repo.GetShipmentCounts(ctx, b.DB, p.Start, p.End); err != nil {
		b.degrade(s, "operations.shipments", err)
	} else {
		s.Operations.ShipmentsInternal, s.Operations.ShipmentsCarrier = internal, carrier
	}
	if n, err := repo.CountOpenShipmentIssues(ctx, b.DB); err != nil {
		b.degrade(s, "operations.open_issues", err)
	} else {
		s.Operations.OpenIssues = n
	}

	// Support
	if n, err := repo.CountOpenTickets(ctx, b.DB); err != nil {
		b.degrade(s, "support.open", err)
	} else {
		s.Support.Open = n
	}
	if n, err := repo.CountTicketsCreated(ctx, b.DB, p.Start, p.End); err != nil {
		b.degrade(s, "support.created", err)
	} else {
		s.Support.Created = n
	}
	if oldest, err := repo.GetOldestOpenTicket(ctx, b.DB); err != nil {
		b.degrade(s, "support.oldest_open", err)
	} else {
		s.Support.OldestOpen = oldest
	}

	// Marketing
	if n, err := repo.CountCampaigns(ctx, b.DB, p.Start, p.End); err != nil {
		b.degrade(s, "marketing.campaigns", err)
	} else {
		s.Marketing.Campaigns = n
	}
	if n, err := repo.CountActiveCampaigns(ctx, b.DB); err != nil {
		b.degrade(s, "marketing.active_campaigns", err)
	} else {
		s.Marketing.ActiveCampaigns = n
	}
	if n, err := repo.CountNewSubscribers(ctx, b.DB, p.Start, p.End); err != nil {
		b.degrade(s, "marketing.subscribers", err)
	} else {
		s.Marketing.Subscribers = n
	}

	// Risks
	if list, err := repo.ListOverduePayments(ctx, b.DB, now, topListLimit); err != nil {
		b.degrade(s, "risks.overdue_payments", err)
	} else {
		s.Risks.OverduePayments = list
	}
	if list, err := repo.ListUpcomingDeadlines(ctx, b.DB, now, topListLimit); err != nil {
		b.degrade(s, "risks.deadlines", err)
	} else {
		s.Risks.Deadlines = list
	}

	// Rule-engine counters
	if n, err := repo.CountClientsCreated(ctx, b.DB, p.Start, p.End); err != nil {
		b.degrade(s, "counters.new_clients", err)
	} else {
		s.Counters.NewClients = n
	}
	if n, err := repo.CountServicesCreated(ctx, b.DB, p.Start, p.End); err != nil {
		b.degrade(s, "counters.new_services", err)
	} else {
		s.Counters.NewServices = n
	}
	if n, err := repo.CountTicketsCreated(ctx, b.DB, p.Start, p.End); err != nil {
		b.degrade(s, "counters.new_tickets", err)
	} else {
		s.Counters.NewTickets = n
	}

	return s
}

// degrade records a failed sub-query on the snapshot and logs it.
func (b *Builder) degrade(s *Snapshot, metric string, err error) {
	s.Partial = true
	s.Degraded = append(s.Degraded, Degradation{Metric: metric, Reason: err.Error()})
	b.Log.Warn().Err(err).Str("metric", metric).Msg("snapshot query degraded to zero value")
}
