package membersync

import (
	"context"
	"errors"
	"fmt"
)

// MembershipDiagnosis reports the outcome of a single-member tier check.
type MembershipDiagnosis struct {
	// MemberID is the member the check ran against.
	MemberID string

	// PlanID is the member's last known plan id.
	PlanID string

	// CurrentTierID is the tier currently on the profile ("" = none).
	CurrentTierID string

	// TargetTierID is the tier the plan maps to.
	TargetTierID string

	// InSync is true when no change is needed.
	InSync bool

	// Applied is true when the pending change was written.
	Applied bool
}

// DiagnoseMembership checks whether a member's profile tier matches the tier
// their plan maps to, and optionally applies the pending change. It is
// operator-triggered only; the webhook path never calls it.
func (r *Registry) DiagnoseMembership(ctx context.Context, dir Directory, memberID string, apply bool) (*MembershipDiagnosis, error) {
	member, err := dir.FindMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("diagnose membership: %w", err)
	}

	if member.PlanID == "" {
		return nil, fmt.Errorf("diagnose membership: member %s has no plan id", memberID)
	}

	plan, err := r.Plan(ctx, member.PlanID)
	if errors.Is(err, ErrPlanNotFound) {
		return nil, fmt.Errorf("diagnose membership: no plan record for plan id %s", member.PlanID)
	}
	if err != nil {
		return nil, fmt.Errorf("diagnose membership: %w", err)
	}

	target := r.MembershipTierTarget(plan)
	if target == "" {
		return nil, fmt.Errorf("diagnose membership: plan %s has no membership tier mapping", plan.PlanID)
	}

	profile, err := r.profiles.FindByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("diagnose membership: %w", err)
	}

	diagnosis := &MembershipDiagnosis{
		MemberID:      memberID,
		PlanID:        member.PlanID,
		CurrentTierID: profile.MembershipTierID,
		TargetTierID:  target,
		InSync:        profile.MembershipTierID == target,
	}

	if diagnosis.InSync || !apply {
		return diagnosis, nil
	}

	profile.MembershipTierID = target
	note := fmt.Sprintf("Membership tier corrected from plan %s by operator", plan.PlanID)
	if err := r.profiles.SaveProfile(ctx, profile, note); err != nil {
		return nil, fmt.Errorf("diagnose membership: %w", err)
	}
	diagnosis.Applied = true
	r.logger.Info("membership tier corrected",
		Field{Key: "member_id", Value: memberID},
		Field{Key: "tier_id", Value: target})
	return diagnosis, nil
}
