// Package repo implements the data persistence layer of the advisor backend,
// backed by GORM. This file provides the bounded aggregate queries the
// snapshot builder runs per business domain (finance, agenda, energy,
// logistics, support, marketing, risks).
//
// Every function is context-aware, reads only, and returns the raw DB error
// on failure; the snapshot builder is responsible for degrading individual
// failures to zero values instead of aborting the whole snapshot.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/gestioweb/go-advisor-backend/internal/domain"
)

// FinanceTotals carries the headline finance figures for a period.
type FinanceTotals struct {
	Entrate   float64
	Uscite    float64
	Movimenti int64
}

// ClientMargin is one row of the top-clients-by-margin ranking.
type ClientMargin struct {
	ClientID string
	Name     string
	Margin   float64
}

// UpcomingAppointment is the next scheduled agenda entry.
type UpcomingAppointment struct {
	ID       string
	Title    string
	StartsAt time.Time
}

// OpenTicket identifies the oldest still-open support ticket.
type OpenTicket struct {
	ID        string
	Subject   string
	CreatedAt time.Time
}

// OverduePayment is one row of the overdue-payments risk list.
type OverduePayment struct {
	ClientName string
	Amount     float64
	DueDate    time.Time
}

// UpcomingDeadline is one row of the upcoming-deadlines risk list.
type UpcomingDeadline struct {
	Description string
	DueDate     time.Time
}

// GetFinanceTotals returns income/expense sums and the movement count for
// payments created in [start, end]. Sums use conditional aggregation so a
// single scan covers both directions.
func GetFinanceTotals(ctx context.Context, db *gorm.DB, start, end time.Time) (FinanceTotals, error) {
	var t FinanceTotals
	err := db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN direction = 'entrata' THEN amount ELSE 0 END), 0) AS entrate,
			COALESCE(SUM(CASE WHEN direction = 'uscita'  THEN amount ELSE 0 END), 0) AS uscite,
			COUNT(*) AS movimenti
		FROM payments
		WHERE created_at BETWEEN ? AND ?`, start, end).
		Scan(&t).Error
	return t, err
}

// CountPendingPayments returns how many payments created in [start, end]
// are still awaiting settlement.
func CountPendingPayments(ctx context.Context, db *gorm.DB, start, end time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("status = ? AND created_at BETWEEN ? AND ?", "in_attesa", start, end).
		Count(&n).Error
	return n, err
}

// GetOverduePaymentsStats returns the count and total value of unpaid
// payments whose due date has passed. Overdue state is evaluated as of now,
// not bounded by the requested period.
func GetOverduePaymentsStats(ctx context.Context, db *gorm.DB, now time.Time) (count int64, value float64, err error) {
	var row struct {
		Count int64
		Value float64
	}
	err = db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS count, COALESCE(SUM(amount), 0) AS value
		FROM payments
		WHERE status <> 'pagato' AND due_date IS NOT NULL AND due_date < ?`, now).
		Scan(&row).Error
	return row.Count, row.Value, err
}

// ListTopClientsByMargin ranks clients by net margin (entrate minus uscite)
// over payments created in [start, end], descending, capped at limit.
func ListTopClientsByMargin(ctx context.Context, db *gorm.DB, start, end time.Time, limit int) ([]ClientMargin, error) {
	var out []ClientMargin
	err := db.WithContext(ctx).Raw(`
		SELECT p.client_id AS client_id, c.name AS name,
			SUM(CASE WHEN p.direction = 'entrata' THEN p.amount ELSE -p.amount END) AS margin
		FROM payments p
		JOIN clients c ON c.id = p.client_id
		WHERE p.created_at BETWEEN ? AND ?
		GROUP BY p.client_id, c.name
		ORDER BY margin DESC
		LIMIT ?`, start, end, limit).
		Scan(&out).Error
	return out, err
}

// GetAppointmentsByStatus returns a status histogram of appointments whose
// start time falls in [start, end].
func GetAppointmentsByStatus(ctx context.Context, db *gorm.DB, start, end time.Time) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Select("status, COUNT(*) AS n").
		Where("starts_at BETWEEN ? AND ?", start, end).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// GetNextAppointment returns the next scheduled appointment from now on,
// regardless of the requested period, or nil when the agenda is empty.
func GetNextAppointment(ctx context.Context, db *gorm.DB, now time.Time) (*UpcomingAppointment, error) {
	var a domain.Appointment
	err := db.WithContext(ctx).
		Where("status = ? AND starts_at >= ?", "programmato", now).
		Order("starts_at asc").
		First(&a).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &UpcomingAppointment{ID: a.ID, Title: a.Title, StartsAt: a.StartsAt}, nil
}

// GetEnergyContractsByStatus returns a status histogram of energy contracts
// created in [start, end].
func GetEnergyContractsByStatus(ctx context.Context, db *gorm.DB, start, end time.Time) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.EnergyContract{}).
		Select("status, COUNT(*) AS n").
		Where("created_at BETWEEN ? AND ?", start, end).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// GetShipmentCounts returns the number of in-house ("interno") and courier
// shipments created in [start, end].
func GetShipmentCounts(ctx context.Context, db *gorm.DB, start, end time.Time) (internal, carrier int64, err error) {
	var row struct {
		Internal int64
		Carrier  int64
	}
	err = db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN carrier = 'interno' THEN 1 ELSE 0 END), 0) AS internal,
			COALESCE(SUM(CASE WHEN carrier <> 'interno' THEN 1 ELSE 0 END), 0) AS carrier
		FROM shipments
		WHERE created_at BETWEEN ? AND ?`, start, end).
		Scan(&row).Error
	return row.Internal, row.Carrier, err
}

// CountOpenShipmentIssues returns the number of shipments currently flagged
// with a problem, regardless of period.
func CountOpenShipmentIssues(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Shipment{}).
		Where("status = ?", "problema").
		Count(&n).Error
	return n, err
}

// CountOpenTickets returns the number of tickets currently open or in
// progress, regardless of period.
func CountOpenTickets(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("status IN ?", []string{"aperto", "in_lavorazione"}).
		Count(&n).Error
	return n, err
}

// CountTicketsCreated returns the number of tickets opened in [start, end].
func CountTicketsCreated(ctx context.Context, db *gorm.DB, start, end time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Count(&n).Error
	return n, err
}

// GetOldestOpenTicket returns the longest-waiting open ticket, or nil when
// the queue is empty.
func GetOldestOpenTicket(ctx context.Context, db *gorm.DB) (*OpenTicket, error) {
	var t domain.Ticket
	err := db.WithContext(ctx).
		Where("status IN ?", []string{"aperto", "in_lavorazione"}).
		Order("created_at asc").
		First(&t).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &OpenTicket{ID: t.ID, Subject: t.Subject, CreatedAt: t.CreatedAt}, nil
}

// CountCampaigns returns the number of campaigns created in [start, end].
func CountCampaigns(ctx context.Context, db *gorm.DB, start, end time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Campaign{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Count(&n).Error
	return n, err
}

// CountActiveCampaigns returns the number of currently active campaigns.
func CountActiveCampaigns(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Campaign{}).
		Where("status = ?", "attiva").
		Count(&n).Error
	return n, err
}

// CountNewSubscribers returns the number of subscribers added in [start, end].
func CountNewSubscribers(ctx context.Context, db *gorm.DB, start, end time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Subscriber{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Count(&n).Error
	return n, err
}

// ListOverduePayments returns up to limit unpaid, past-due payments joined
// with the client name, ascending by due date (most urgent first).
func ListOverduePayments(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]OverduePayment, error) {
	var out []OverduePayment
	err := db.WithContext(ctx).Raw(`
		SELECT c.name AS client_name, p.amount AS amount, p.due_date AS due_date
		FROM payments p
		JOIN clients c ON c.id = p.client_id
		WHERE p.status <> 'pagato' AND p.due_date IS NOT NULL AND p.due_date < ?
		ORDER BY p.due_date ASC
		LIMIT ?`, now, limit).
		Scan(&out).Error
	return out, err
}

// ListUpcomingDeadlines returns up to limit undone deadlines due from now
// on, ascending by due date.
func ListUpcomingDeadlines(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]UpcomingDeadline, error) {
	var out []UpcomingDeadline
	err := db.WithContext(ctx).
		Model(&domain.Deadline{}).
		Select("description, due_date").
		Where("done = ? AND due_date >= ?", false, now).
		Order("due_date asc").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// CountClientsCreated returns the number of clients registered in [start, end].
func CountClientsCreated(ctx context.Context, db *gorm.DB, start, end time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Count(&n).Error
	return n, err
}

// CountServicesCreated returns the number of service orders activated in
// [start, end].
func CountServicesCreated(ctx context.Context, db *gorm.DB, start, end time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ServiceOrder{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Count(&n).Error
	return n, err
}
