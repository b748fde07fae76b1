package membersync

import (
	"fmt"
	"time"
)

// DateFormat is the wire/storage format for the nullable date fields on a
// Profile. An empty string means the field is unset.
const DateFormat = "2006-01-02"

// Member is the local account record for a subscriber. It is created by a
// separate onboarding flow; this system only mutates its fields and never
// deletes it.
type Member struct {
	// ID is the local identity reference.
	ID string

	// CustomerID is the external billing customer id (unique, stable).
	CustomerID string

	// Paused reflects the provider-side subscription pause state.
	Paused bool

	// PaymentFailed is set while the most recent payment attempt failed.
	PaymentFailed bool

	// PlanID is the last known external plan identifier.
	PlanID string

	// Roles is the member's role id set.
	Roles []string
}

// HasRole reports whether the member currently holds the role.
func (m *Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// AddRole adds the role if not already present. Returns true if the role set
// changed.
func (m *Member) AddRole(roleID string) bool {
	if roleID == "" || m.HasRole(roleID) {
		return false
	}
	m.Roles = append(m.Roles, roleID)
	return true
}

// RemoveRole removes the role if present. Returns true if the role set
// changed.
func (m *Member) RemoveRole(roleID string) bool {
	for i, r := range m.Roles {
		if r == roleID {
			m.Roles = append(m.Roles[:i], m.Roles[i+1:]...)
			return true
		}
	}
	return false
}

// Profile carries the per-member membership and billing attributes. Exactly
// one profile exists per member; uniqueness is an invariant of the
// ProfileStore.
//
// EndDate and EndReason are set together on cancellation and cleared together
// on reactivation.
type Profile struct {
	// MemberID is the owning member's local id.
	MemberID string

	// MembershipTierID references the curated membership tier ("" = none).
	MembershipTierID string

	// EndDate is the membership end date in DateFormat ("" = none).
	EndDate string

	// EndReason is the normalized cancellation reason code ("" = none).
	EndReason string

	// ReactivationDate is the most recent reactivation date in DateFormat.
	ReactivationDate string

	// MonthlyPayment is the monthly payment amount as a 2-dp decimal string
	// ("" = none).
	MonthlyPayment string
}

// Plan is the local mirror of a provider billing plan, keyed by the external
// plan identifier. Plans are the one entity this system creates: first
// sighting of a plan id in an event creates the record, later sightings
// update it in place.
type Plan struct {
	// PlanID is the external plan identifier (dedup key).
	PlanID string

	// Label is the display name; defaults to PlanID on creation.
	Label string

	// Provider names the billing provider that owns the plan.
	Provider string

	// Currency is the uppercased ISO currency code.
	Currency string

	// Amount is the plan price as a 2-dp decimal string.
	Amount string

	// MembershipTierID is the admin-curated tier mapping ("" = unmapped).
	// Sync logic reads it but never writes it.
	MembershipTierID string
}

// Settings is the webhook-time configuration. It is loaded once at startup
// and injected read-only into the event router.
type Settings struct {
	// SecretToken is the shared secret embedded in the webhook URL.
	SecretToken string

	// MemberRoleID is the role granted while a subscription is active.
	MemberRoleID string

	// NotifyEmail receives operator notifications ("" = disabled).
	NotifyEmail string
}

// FormatAmount normalizes a major-unit amount to a fixed 2-decimal string so
// stored values compare exactly.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// FormatMinorUnits converts a minor-unit amount (e.g. cents) to a 2-dp
// major-unit string without going through floating point.
func FormatMinorUnits(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// FormatDate renders a timestamp as a DateFormat string in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}
