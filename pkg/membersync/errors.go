package membersync

import "errors"

var (
	// ErrMemberNotFound is returned when no member matches a lookup
	ErrMemberNotFound = errors.New("member not found")

	// ErrProfileNotFound is returned when a member has no profile
	ErrProfileNotFound = errors.New("profile not found")

	// ErrPlanNotFound is returned when no plan record matches a plan id
	ErrPlanNotFound = errors.New("plan not found")

	// ErrSettingsNotFound is returned when no settings have been stored yet
	ErrSettingsNotFound = errors.New("settings not found")

	// ErrStoreUnavailable is returned when a storage backend is unreachable
	ErrStoreUnavailable = errors.New("store unavailable")
)
