// Package lifecycle holds the rental state machine. Everything here is a pure function of a
// record, the requested action and the current time.
package lifecycle

import (
	"fmt"
	"time"

	"linkrental/internal/common"
	"linkrental/internal/models"
)

// Transition is the mutation produced by an approval decision.
type Transition struct {
	From           models.RentalStatus
	To             models.RentalStatus
	ActivationDate *time.Time
	ExpirationDate *time.Time
	DecisionDate   time.Time
}

// EffectiveStatus is the status every reader must present. An active record whose expiration
// instant has passed is expired whatever the stored value says.
func EffectiveStatus(r *models.RentalRequest, now time.Time) models.RentalStatus {
	if r.Status != models.StatusActive {
		return r.Status
	}
	// An active row without an expiration cannot be served safely.
	if r.ExpirationDate == nil || !now.Before(*r.ExpirationDate) {
		return models.StatusExpired
	}
	return models.StatusActive
}

// IsLive reports whether the record is publicly resolvable at now.
func IsLive(r *models.RentalRequest, now time.Time) bool {
	return EffectiveStatus(r, now) == models.StatusActive
}

// Present returns a copy of r carrying its effective status.
func Present(r *models.RentalRequest, now time.Time) *models.RentalRequest {
	out := r.Clone()
	out.Status = EffectiveStatus(r, now)
	return out
}

// Decide computes the outcome of an approval decision on r at now. Only pending records accept
// a decision; anything else fails with common.ErrInvalidTransition.
func Decide(r *models.RentalRequest, approved bool, now time.Time, span time.Duration) (Transition, error) {
	target := models.StatusRejected
	if approved {
		target = models.StatusActive
	}

	current := EffectiveStatus(r, now)
	if current != models.StatusPending {
		return Transition{}, fmt.Errorf("%w: request %s is %s, cannot move to %s", common.ErrInvalidTransition, r.ID, current, target)
	}

	t := Transition{
		From:         models.StatusPending,
		To:           target,
		DecisionDate: now,
	}
	if approved {
		if span <= 0 {
			return Transition{}, fmt.Errorf("duration %q has no positive span", r.Duration)
		}
		activation := now
		expiration := now.Add(span)
		t.ActivationDate = &activation
		t.ExpirationDate = &expiration
	}
	return t, nil
}

// Apply writes t onto r.
func Apply(r *models.RentalRequest, t Transition) {
	r.Status = t.To
	decided := t.DecisionDate
	r.DecisionDate = &decided
	r.ActivationDate = t.ActivationDate
	r.ExpirationDate = t.ExpirationDate
	r.UpdatedAt = t.DecisionDate
}

// Remaining splits the time left until expiration. It never goes negative, so clients can
// recompute it on any tick and restart it at will.
func Remaining(expiration, now time.Time) models.Countdown {
	left := expiration.Sub(now)
	if left < 0 {
		left = 0
	}
	total := int64(left / time.Second)
	return models.Countdown{
		TotalSeconds: total,
		Days:         total / 86400,
		Hours:        (total % 86400) / 3600,
		Minutes:      (total % 3600) / 60,
		Seconds:      total % 60,
	}
}

var statusLabels = map[models.RentalStatus]string{
	models.StatusPending:  "Pendiente",
	models.StatusActive:   "Activo",
	models.StatusRejected: "Rechazado",
	models.StatusExpired:  "Expirado",
}

// StatusLabel is the dashboard badge text for a status.
func StatusLabel(s models.RentalStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return statusLabels[models.StatusPending]
}
