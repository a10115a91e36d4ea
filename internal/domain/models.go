// Package domain defines the persistence models of the advisor backend.
// These types are mapped with GORM and cover two areas: the advisor's own
// state (conversations and per-user preferences) and the business tables the
// snapshot builder aggregates over (clients, payments, tickets, and so on).
//
// The business tables are owned by the surrounding management application;
// this service only ever reads them.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is one question/answer exchange with the advisor. A row is
// written on every rule-based answer when a user id is present, and may later
// receive a rating (1–5) via the feedback endpoint.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: owner of the conversation; empty for anonymous calls.
//   - SessionID: opaque browser-session identifier supplied by the caller.
//   - Question / Answer: full text of the exchange.
//   - Context: JSON-encoded context lines that informed the answer.
//   - Rating: optional user rating in [1,5]; nil until feedback arrives.
type Conversation struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);index:idx_user_conversations"`
	SessionID string         `json:"session_id" gorm:"type:varchar(64);index"`
	Question  string         `json:"question"   gorm:"type:text;not null"`
	Answer    string         `json:"answer"     gorm:"type:text;not null"`
	Context   string         `json:"context"    gorm:"type:text"`
	Rating    *int           `json:"rating,omitempty" gorm:"check:rating IS NULL OR rating BETWEEN 1 AND 5"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// UserPreference stores one advisor preference per (user, key) pair with
// upsert semantics. Known keys are "response_style" (dettagliato|conciso)
// and "frequent_topics" (the last classified question topic).
type UserPreference struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_pref_user_key"`
	Key       string    `json:"key"     gorm:"type:varchar(64);not null;uniqueIndex:ux_pref_user_key;column:pref_key"`
	Value     string    `json:"value"   gorm:"type:varchar(255);not null;column:pref_value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserPreference.
func (UserPreference) TableName() string { return "user_preferences" }

//
// Business tables (read-only for this service).
//

// Client is a customer record of the agency.
type Client struct {
	ID        string    `json:"id"   gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Client.
func (Client) TableName() string { return "clients" }

// ServiceOrder is a service activated for a client (telegrams, visure,
// hosting, and similar).
type ServiceOrder struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	ClientID  string    `json:"client_id" gorm:"type:char(36);index"`
	Type      string    `json:"type"      gorm:"type:varchar(64);not null"`
	Status    string    `json:"status"    gorm:"type:varchar(32);not null;default:'attivo'"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for ServiceOrder.
func (ServiceOrder) TableName() string { return "service_orders" }

// Payment is a finance movement. Direction is "entrata" or "uscita";
// Status is one of "pagato", "in_attesa", "scaduto".
type Payment struct {
	ID        string     `json:"id"        gorm:"type:char(36);primaryKey"`
	ClientID  string     `json:"client_id" gorm:"type:char(36);index"`
	Direction string     `json:"direction" gorm:"type:varchar(16);not null;check:direction IN ('entrata','uscita')"`
	Amount    float64    `json:"amount"    gorm:"not null"`
	Status    string     `json:"status"    gorm:"type:varchar(32);not null;default:'in_attesa';index"`
	DueDate   *time.Time `json:"due_date,omitempty" gorm:"index"`
	CreatedAt time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Payment.
func (Payment) TableName() string { return "payments" }

// Ticket is a support request. Status is "aperto", "in_lavorazione" or "chiuso".
type Ticket struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	ClientID  string    `json:"client_id" gorm:"type:char(36);index"`
	Subject   string    `json:"subject"   gorm:"type:varchar(255);not null"`
	Status    string    `json:"status"    gorm:"type:varchar(32);not null;default:'aperto';index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Ticket.
func (Ticket) TableName() string { return "tickets" }

// Appointment is an agenda entry. Status is "programmato", "completato"
// or "annullato".
type Appointment struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	ClientID  string    `json:"client_id" gorm:"type:char(36);index"`
	Title     string    `json:"title"     gorm:"type:varchar(255);not null"`
	Status    string    `json:"status"    gorm:"type:varchar(32);not null;default:'programmato';index"`
	StartsAt  time.Time `json:"starts_at" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Appointment.
func (Appointment) TableName() string { return "appointments" }

// EnergyContract is an energy supply contract brokered for a client.
type EnergyContract struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	ClientID  string    `json:"client_id" gorm:"type:char(36);index"`
	Status    string    `json:"status"    gorm:"type:varchar(32);not null;default:'in_attivazione';index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for EnergyContract.
func (EnergyContract) TableName() string { return "energy_contracts" }

// Shipment is a logistics entry. Carrier is "interno" for in-house
// deliveries or the courier name otherwise; Status "problema" flags an
// open issue.
type Shipment struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	ClientID  string    `json:"client_id" gorm:"type:char(36);index"`
	Carrier   string    `json:"carrier"   gorm:"type:varchar(64);not null;default:'interno'"`
	Status    string    `json:"status"    gorm:"type:varchar(32);not null;default:'in_transito';index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Shipment.
func (Shipment) TableName() string { return "shipments" }

// Campaign is a marketing campaign.
type Campaign struct {
	ID        string    `json:"id"     gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"   gorm:"type:varchar(255);not null"`
	Status    string    `json:"status" gorm:"type:varchar(32);not null;default:'attiva';index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Campaign.
func (Campaign) TableName() string { return "campaigns" }

// Subscriber is a newsletter subscriber.
type Subscriber struct {
	ID        string    `json:"id"    gorm:"type:char(36);primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Subscriber.
func (Subscriber) TableName() string { return "subscribers" }

// Deadline is a dated obligation (renewals, filings) tracked for a client.
type Deadline struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	ClientID    string    `json:"client_id"   gorm:"type:char(36);index"`
	Description string    `json:"description" gorm:"type:varchar(255);not null"`
	DueDate     time.Time `json:"due_date"    gorm:"index"`
	Done        bool      `json:"done"        gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Deadline.
func (Deadline) TableName() string { return "deadlines" }
