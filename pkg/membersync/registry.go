package membersync

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PlanMetadata carries the optional plan attributes extracted from an event
// payload. Nil fields are left untouched on the stored plan.
type PlanMetadata struct {
	// Label is the display name.
	Label *string

	// Provider names the billing provider.
	Provider *string

	// Currency is an ISO currency code (any case; stored uppercased).
	Currency *string

	// Amount is the plan price in major units (stored as a 2-dp string).
	Amount *float64
}

// Registry manages plan records and the plan-to-membership-tier mapping.
// The tier mapping itself is curated by administrators; the registry only
// reads it and applies it to member profiles.
type Registry struct {
	plans    PlanStore
	profiles ProfileStore
	logger   Logger
}

// NewRegistry creates a plan registry. logger may be nil.
func NewRegistry(plans PlanStore, profiles ProfileStore, logger Logger) *Registry {
	if logger == nil {
		logger = &NoopLogger{}
	}
	return &Registry{plans: plans, profiles: profiles, logger: logger}
}

// UpsertPlan creates or updates the plan record for planID. A new record is
// created with Label defaulting to the plan id. Each present metadata field
// is written only when its normalized value differs from the stored one, and
// the record is persisted once if anything changed. Returns the resulting
// plan record and whether a save occurred.
func (r *Registry) UpsertPlan(ctx context.Context, planID string, meta PlanMetadata) (*Plan, bool, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return nil, false, fmt.Errorf("upsert plan: empty plan id")
	}

	plan, err := r.plans.FindPlan(ctx, planID)
	changed := false
	switch {
	case errors.Is(err, ErrPlanNotFound):
		plan = &Plan{PlanID: planID, Label: planID}
		changed = true
	case err != nil:
		return nil, false, fmt.Errorf("upsert plan %s: %w", planID, err)
	}

	if meta.Label != nil && *meta.Label != "" && plan.Label != *meta.Label {
		plan.Label = *meta.Label
		changed = true
	}
	if meta.Provider != nil && plan.Provider != *meta.Provider {
		plan.Provider = *meta.Provider
		changed = true
	}
	if meta.Currency != nil {
		currency := strings.ToUpper(*meta.Currency)
		if plan.Currency != currency {
			plan.Currency = currency
			changed = true
		}
	}
	if meta.Amount != nil {
		amount := FormatAmount(*meta.Amount)
		if plan.Amount != amount {
			plan.Amount = amount
			changed = true
		}
	}

	if changed {
		if err := r.plans.SavePlan(ctx, plan); err != nil {
			return nil, false, fmt.Errorf("upsert plan %s: %w", planID, err)
		}
		r.logger.Info("plan record saved",
			Field{Key: "plan_id", Value: planID},
			Field{Key: "amount", Value: plan.Amount},
			Field{Key: "currency", Value: plan.Currency})
	}

	return plan, changed, nil
}

// Plan resolves a plan record by exact identifier. Returns ErrPlanNotFound
// when absent.
func (r *Registry) Plan(ctx context.Context, planID string) (*Plan, error) {
	return r.plans.FindPlan(ctx, strings.TrimSpace(planID))
}

// MembershipTierTarget returns the tier the plan maps to, or "" when the
// plan is unmapped.
func (r *Registry) MembershipTierTarget(plan *Plan) string {
	if plan == nil {
		return ""
	}
	return plan.MembershipTierID
}

// AssignMembershipTier applies the plan's tier mapping to the member's
// profile. The profile is written only when the tier actually differs.
// An unmapped plan or a missing profile is logged and skipped, not an error.
// Returns whether a write occurred.
func (r *Registry) AssignMembershipTier(ctx context.Context, member *Member, plan *Plan) (bool, error) {
	target := r.MembershipTierTarget(plan)
	if target == "" {
		r.logger.Info("plan has no membership tier mapping",
			Field{Key: "plan_id", Value: plan.PlanID})
		return false, nil
	}

	profile, err := r.profiles.FindByMember(ctx, member.ID)
	if errors.Is(err, ErrProfileNotFound) {
		r.logger.Warn("no profile found when applying membership tier",
			Field{Key: "member_id", Value: member.ID})
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("assign membership tier: %w", err)
	}

	if profile.MembershipTierID == target {
		return false, nil
	}

	profile.MembershipTierID = target
	note := fmt.Sprintf("Membership tier set from plan %s", plan.PlanID)
	if err := r.profiles.SaveProfile(ctx, profile, note); err != nil {
		return false, fmt.Errorf("assign membership tier: %w", err)
	}
	r.logger.Info("membership tier updated",
		Field{Key: "member_id", Value: member.ID},
		Field{Key: "plan_id", Value: plan.PlanID},
		Field{Key: "tier_id", Value: target})
	return true, nil
}

// AssignMembershipTierByPlanID resolves the plan and applies its tier
// mapping. A missing plan is logged and skipped.
func (r *Registry) AssignMembershipTierByPlanID(ctx context.Context, member *Member, planID string) (bool, error) {
	plan, err := r.Plan(ctx, planID)
	if errors.Is(err, ErrPlanNotFound) {
		r.logger.Warn("no plan record for plan id",
			Field{Key: "plan_id", Value: planID})
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.AssignMembershipTier(ctx, member, plan)
}
