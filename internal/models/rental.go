package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RentalStatus is the stored lifecycle status of a rental request.
type RentalStatus string

const (
	StatusPending  RentalStatus = "pending"
	StatusActive   RentalStatus = "active"
	StatusRejected RentalStatus = "rejected"
	StatusExpired  RentalStatus = "expired"
)

// AllStatuses lists every status in dashboard order.
var AllStatuses = []RentalStatus{StatusPending, StatusActive, StatusRejected, StatusExpired}

// ParseRentalStatus validates a status coming from a query string.
func ParseRentalStatus(s string) (RentalStatus, error) {
	switch st := RentalStatus(s); st {
	case StatusPending, StatusActive, StatusRejected, StatusExpired:
		return st, nil
	}
	return "", fmt.Errorf("unknown rental status %q", s)
}

// IsTerminal reports whether no decision can leave the status.
func (s RentalStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusExpired
}

// BusinessData is the content published under a rental's slug.
type BusinessData struct {
	Description string            `json:"description"`
	Services    []string          `json:"services"`
	Logo        string            `json:"logo"`
	Theme       string            `json:"theme"`
	SocialLinks map[string]string `json:"socialLinks"`
}

// RentalRequest is a customer's application for a temporary micro-site.
type RentalRequest struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	Slug           string       `json:"slug" db:"slug"`
	BusinessName   string       `json:"businessName" db:"business_name"`
	ContactEmail   string       `json:"contactEmail" db:"contact_email"`
	ContactPhone   string       `json:"contactPhone" db:"contact_phone"`
	Duration       string       `json:"duration" db:"duration"`
	DurationType   string       `json:"durationType" db:"duration_type"`
	DurationValue  int          `json:"durationValue" db:"duration_value"`
	Price          string       `json:"price" db:"price"`
	BusinessData   BusinessData `json:"businessData" db:"business_data"`
	Status         RentalStatus `json:"status" db:"status"`
	RequestDate    time.Time    `json:"requestDate" db:"request_date"`
	ActivationDate *time.Time   `json:"activationDate" db:"activation_date"`
	ExpirationDate *time.Time   `json:"expirationDate" db:"expiration_date"`
	DecisionDate   *time.Time   `json:"decisionDate" db:"decision_date"`
	CreatedAt      time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time    `json:"updatedAt" db:"updated_at"`
}

// IsPending checks if the stored status is pending
func (r *RentalRequest) IsPending() bool {
	return r.Status == StatusPending
}

// Clone returns a deep copy so callers can rewrite presentation fields safely.
func (r *RentalRequest) Clone() *RentalRequest {
	c := *r
	c.BusinessData.Services = append([]string(nil), r.BusinessData.Services...)
	if r.BusinessData.SocialLinks != nil {
		c.BusinessData.SocialLinks = make(map[string]string, len(r.BusinessData.SocialLinks))
		for k, v := range r.BusinessData.SocialLinks {
			c.BusinessData.SocialLinks[k] = v
		}
	}
	c.ActivationDate = copyTime(r.ActivationDate)
	c.ExpirationDate = copyTime(r.ExpirationDate)
	c.DecisionDate = copyTime(r.DecisionDate)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// CreateRentalRequest is the submission payload: a RentalRequest minus server-owned fields.
type CreateRentalRequest struct {
	BusinessName string       `json:"businessName"`
	ContactEmail string       `json:"contactEmail"`
	ContactPhone string       `json:"contactPhone"`
	Duration     string       `json:"duration"`
	BusinessData BusinessData `json:"businessData"`
}

// Countdown is the remaining lifetime of an active rental.
type Countdown struct {
	TotalSeconds int64 `json:"totalSeconds"`
	Days         int64 `json:"days"`
	Hours        int64 `json:"hours"`
	Minutes      int64 `json:"minutes"`
	Seconds      int64 `json:"seconds"`
}

// PublicRentalView is the read-only projection served to public visitors.
type PublicRentalView struct {
	Slug           string       `json:"slug"`
	BusinessName   string       `json:"businessName"`
	BusinessData   BusinessData `json:"businessData"`
	ActivationDate time.Time    `json:"activationDate"`
	ExpirationDate time.Time    `json:"expirationDate"`
	TimeLeft       Countdown    `json:"timeLeft"`
}
