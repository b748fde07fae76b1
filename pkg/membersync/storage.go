package membersync

import "context"

// Directory is the member-record collaborator. Lookups return at most one
// record; customer ids are unique as a store invariant, so the ambiguity of
// "first of a loaded list" never reaches the sync logic.
type Directory interface {
	// FindByCustomerID resolves a member by external billing customer id.
	// Returns ErrMemberNotFound when no member matches.
	FindByCustomerID(ctx context.Context, customerID string) (*Member, error)

	// FindMember resolves a member by local id.
	// Returns ErrMemberNotFound when no member matches.
	FindMember(ctx context.Context, memberID string) (*Member, error)

	// SaveMember persists the member record. The backend must apply the
	// write atomically with respect to concurrent saves of the same record.
	SaveMember(ctx context.Context, member *Member) error
}

// ProfileStore is the profile collaborator. One profile per member.
type ProfileStore interface {
	// FindByMember resolves the member's profile.
	// Returns ErrProfileNotFound when the member has no profile.
	FindByMember(ctx context.Context, memberID string) (*Profile, error)

	// SaveProfile persists the profile. revisionNote is optional metadata
	// recorded alongside the write; it never affects behavior.
	SaveProfile(ctx context.Context, profile *Profile, revisionNote string) error
}

// PlanStore persists plan records keyed by external plan identifier.
type PlanStore interface {
	// FindPlan resolves a plan by its external identifier.
	// Returns ErrPlanNotFound when no plan matches.
	FindPlan(ctx context.Context, planID string) (*Plan, error)

	// SavePlan upserts the plan record by PlanID.
	SavePlan(ctx context.Context, plan *Plan) error
}

// SettingsStore holds the shared webhook configuration written by the admin
// surface and read by the service at startup.
type SettingsStore interface {
	// LoadSettings returns the stored settings.
	// Returns ErrSettingsNotFound when nothing has been stored yet.
	LoadSettings(ctx context.Context) (*Settings, error)

	// SaveSettings stores the settings.
	SaveSettings(ctx context.Context, settings *Settings) error
}
