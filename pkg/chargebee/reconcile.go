package chargebee

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
)

// Reconciliation outcomes reported to metrics.
const (
	statusSuccess   = "success"
	statusSkipped   = "skipped"
	statusUnhandled = "unhandled"
	statusError     = "error"
)

// dispatch maps the event type to its handler. Unknown event types are
// acknowledged with a warning; they are never an error. Handler failures are
// logged and reported through metrics but still acknowledged, because the
// provider treats anything but a 2xx as a delivery failure and would retry a
// payload we already know how to handle.
func (rt *Router) dispatch(ctx context.Context, payload *eventPayload) string {
	customerID := payload.customerID()
	rt.logger.Info("handling webhook event",
		membersync.Field{Key: "event_type", Value: payload.EventType},
		membersync.Field{Key: "customer_id", Value: customerID})

	var (
		status string
		err    error
	)

	switch payload.EventType {
	case EventSubscriptionPaused:
		status, err = rt.setPause(ctx, customerID, true)
	case EventSubscriptionResumed, EventScheduledPauseRemoved:
		status, err = rt.setPause(ctx, customerID, false)
	case EventPaymentFailed:
		status, err = rt.setPaymentFailed(ctx, customerID, true)
	case EventPaymentSucceeded:
		status, err = rt.setPaymentFailed(ctx, customerID, false)
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionReactivated:
		status, err = rt.applySubscription(ctx, payload)
	case EventSubscriptionCancelled:
		status, err = rt.applyCancellation(ctx, payload)
	default:
		rt.logger.Warn("unhandled event type",
			membersync.Field{Key: "event_type", Value: payload.EventType},
			membersync.Field{Key: "customer_id", Value: customerID})
		return statusUnhandled
	}

	if err != nil {
		rt.logger.Error("webhook handler failed",
			membersync.Field{Key: "event_type", Value: payload.EventType},
			membersync.Field{Key: "customer_id", Value: customerID},
			membersync.Field{Key: "error", Value: err.Error()})
		rt.metrics.RecordWebhookError("store_error")
		return statusError
	}
	return status
}

// member resolves a customer id to a member record. A missing member is a
// warning, not an error: the record may simply not have been onboarded yet.
func (rt *Router) member(ctx context.Context, customerID string) (*membersync.Member, error) {
	member, err := rt.directory.FindByCustomerID(ctx, customerID)
	if errors.Is(err, membersync.ErrMemberNotFound) {
		rt.logger.Warn("no member found for customer id",
			membersync.Field{Key: "customer_id", Value: customerID})
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find member %s: %w", customerID, err)
	}
	return member, nil
}

func (rt *Router) setPause(ctx context.Context, customerID string, paused bool) (string, error) {
	member, err := rt.member(ctx, customerID)
	if err != nil {
		return statusError, err
	}
	if member == nil {
		return statusSkipped, nil
	}

	if member.Paused == paused {
		return statusSuccess, nil
	}

	member.Paused = paused
	if err := rt.directory.SaveMember(ctx, member); err != nil {
		return statusError, fmt.Errorf("save member %s: %w", member.ID, err)
	}
	rt.metrics.RecordMemberUpdate("pause")
	rt.logger.Info("pause status updated",
		membersync.Field{Key: "member_id", Value: member.ID},
		membersync.Field{Key: "paused", Value: paused})
	return statusSuccess, nil
}

func (rt *Router) setPaymentFailed(ctx context.Context, customerID string, failed bool) (string, error) {
	member, err := rt.member(ctx, customerID)
	if err != nil {
		return statusError, err
	}
	if member == nil {
		return statusSkipped, nil
	}

	if member.PaymentFailed == failed {
		return statusSuccess, nil
	}

	member.PaymentFailed = failed
	if err := rt.directory.SaveMember(ctx, member); err != nil {
		return statusError, fmt.Errorf("save member %s: %w", member.ID, err)
	}
	rt.metrics.RecordMemberUpdate("payment_failed")
	rt.logger.Info("payment status updated",
		membersync.Field{Key: "member_id", Value: member.ID},
		membersync.Field{Key: "payment_failed", Value: failed})
	return statusSuccess, nil
}

// applySubscription handles subscription_created, subscription_updated and
// subscription_reactivated. The plan record is upserted even when no local
// member exists, so plan metadata is never lost to onboarding lag.
func (rt *Router) applySubscription(ctx context.Context, payload *eventPayload) (string, error) {
	customerID := payload.customerID()
	sub := payload.Content.Subscription
	reactivated := payload.EventType == EventSubscriptionReactivated

	member, err := rt.member(ctx, customerID)
	if err != nil {
		return statusError, err
	}

	var plan *membersync.Plan
	if sub.PlanID != "" {
		meta := membersync.PlanMetadata{Provider: stringPtr(providerName)}
		if sub.CurrencyCode != "" {
			meta.Currency = stringPtr(sub.CurrencyCode)
		}
		if sub.PlanAmount != nil {
			major := float64(*sub.PlanAmount) / 100
			meta.Amount = &major
		}

		var changed bool
		plan, changed, err = rt.registry.UpsertPlan(ctx, sub.PlanID, meta)
		if err != nil {
			return statusError, err
		}
		if changed {
			rt.metrics.RecordPlanUpsert("changed")
		} else {
			rt.metrics.RecordPlanUpsert("unchanged")
		}
	} else {
		rt.logger.Warn("no plan id in subscription event",
			membersync.Field{Key: "customer_id", Value: customerID})
	}

	if member == nil {
		return statusSkipped, nil
	}

	if sub.PlanID != "" && member.PlanID != sub.PlanID {
		member.PlanID = sub.PlanID
		if err := rt.directory.SaveMember(ctx, member); err != nil {
			return statusError, fmt.Errorf("save member %s: %w", member.ID, err)
		}
		rt.metrics.RecordMemberUpdate("plan_id")
		rt.logger.Info("member plan updated",
			membersync.Field{Key: "member_id", Value: member.ID},
			membersync.Field{Key: "plan_id", Value: sub.PlanID})
	}

	if sub.PlanAmount != nil {
		if err := rt.updateMonthlyPayment(ctx, member, membersync.FormatMinorUnits(*sub.PlanAmount)); err != nil {
			return statusError, err
		}
	} else {
		rt.logger.Warn("no plan amount found in webhook",
			membersync.Field{Key: "customer_id", Value: customerID})
	}

	if plan != nil {
		if changed, err := rt.registry.AssignMembershipTier(ctx, member, plan); err != nil {
			return statusError, err
		} else if changed {
			rt.metrics.RecordMemberUpdate("membership_tier")
		}
	}

	if reactivated {
		if err := rt.applyReactivation(ctx, member); err != nil {
			return statusError, err
		}
	}

	return statusSuccess, nil
}

func (rt *Router) updateMonthlyPayment(ctx context.Context, member *membersync.Member, amount string) error {
	profile, err := rt.profiles.FindByMember(ctx, member.ID)
	if errors.Is(err, membersync.ErrProfileNotFound) {
		rt.logger.Warn("no profile found for member",
			membersync.Field{Key: "member_id", Value: member.ID})
		return nil
	}
	if err != nil {
		return fmt.Errorf("find profile %s: %w", member.ID, err)
	}

	if profile.MonthlyPayment == amount {
		return nil
	}

	profile.MonthlyPayment = amount
	note := "Updated monthly payment to " + amount
	if err := rt.profiles.SaveProfile(ctx, profile, note); err != nil {
		return fmt.Errorf("save profile %s: %w", member.ID, err)
	}
	rt.metrics.RecordMemberUpdate("monthly_payment")
	rt.logger.Info("monthly payment updated",
		membersync.Field{Key: "member_id", Value: member.ID},
		membersync.Field{Key: "amount", Value: amount})
	return nil
}

// applyReactivation clears the cancellation state set by a prior
// subscription_cancelled event: end date and end reason are cleared together,
// the reactivation date is stamped, the pause flag drops and the configured
// role is restored. Redelivery converges because every write is guarded by a
// current-value check.
func (rt *Router) applyReactivation(ctx context.Context, member *membersync.Member) error {
	profile, err := rt.profiles.FindByMember(ctx, member.ID)
	switch {
	case errors.Is(err, membersync.ErrProfileNotFound):
		rt.logger.Warn("no profile found for member on reactivation",
			membersync.Field{Key: "member_id", Value: member.ID})
	case err != nil:
		return fmt.Errorf("find profile %s: %w", member.ID, err)
	default:
		reactivationDate := membersync.FormatDate(rt.now())
		changed := false
		if profile.EndDate != "" {
			profile.EndDate = ""
			changed = true
		}
		if profile.EndReason != "" {
			profile.EndReason = ""
			changed = true
		}
		if profile.ReactivationDate != reactivationDate {
			profile.ReactivationDate = reactivationDate
			changed = true
		}
		if changed {
			note := "Cleared membership end date and reason; reactivation date set."
			if err := rt.profiles.SaveProfile(ctx, profile, note); err != nil {
				return fmt.Errorf("save profile %s: %w", member.ID, err)
			}
			rt.metrics.RecordMemberUpdate("reactivation")
			rt.logger.Info("cancellation fields cleared",
				membersync.Field{Key: "member_id", Value: member.ID},
				membersync.Field{Key: "reactivation_date", Value: reactivationDate})
		}
	}

	memberChanged := false
	if member.Paused {
		member.Paused = false
		memberChanged = true
	}
	if rt.memberRoleID == "" {
		rt.logger.Warn("member role id not configured, skipping role update")
	} else if member.AddRole(rt.memberRoleID) {
		memberChanged = true
		rt.logger.Info("member role added",
			membersync.Field{Key: "member_id", Value: member.ID},
			membersync.Field{Key: "role_id", Value: rt.memberRoleID})
	}
	if memberChanged {
		if err := rt.directory.SaveMember(ctx, member); err != nil {
			return fmt.Errorf("save member %s: %w", member.ID, err)
		}
		rt.metrics.RecordMemberUpdate("role")
	}
	return nil
}

// applyCancellation records the membership end on the profile and strips the
// member's pause flag and configured role. End date and end reason are always
// written together.
func (rt *Router) applyCancellation(ctx context.Context, payload *eventPayload) (string, error) {
	customerID := payload.customerID()
	sub := payload.Content.Subscription

	member, err := rt.member(ctx, customerID)
	if err != nil {
		return statusError, err
	}
	if member == nil {
		return statusSkipped, nil
	}

	endDate := membersync.FormatDate(time.Unix(sub.CurrentTermEnd, 0))
	endReason := membersync.NormalizeCancelReason(sub.CancelReasonCode)
	rt.logger.Info("recording membership end",
		membersync.Field{Key: "member_id", Value: member.ID},
		membersync.Field{Key: "end_date", Value: endDate},
		membersync.Field{Key: "raw_reason", Value: sub.CancelReasonCode},
		membersync.Field{Key: "end_reason", Value: endReason})

	profile, err := rt.profiles.FindByMember(ctx, member.ID)
	switch {
	case errors.Is(err, membersync.ErrProfileNotFound):
		rt.logger.Warn("no profile found for member on cancellation",
			membersync.Field{Key: "member_id", Value: member.ID})
	case err != nil:
		return statusError, fmt.Errorf("find profile %s: %w", member.ID, err)
	default:
		if profile.EndDate != endDate || profile.EndReason != endReason {
			profile.EndDate = endDate
			profile.EndReason = endReason
			note := "Membership end date and reason recorded."
			if err := rt.profiles.SaveProfile(ctx, profile, note); err != nil {
				return statusError, fmt.Errorf("save profile %s: %w", member.ID, err)
			}
			rt.metrics.RecordMemberUpdate("membership_end")
		}
	}

	memberChanged := false
	if member.Paused {
		member.Paused = false
		memberChanged = true
	}
	if rt.memberRoleID == "" {
		rt.logger.Warn("member role id not configured, skipping role update")
	} else if member.RemoveRole(rt.memberRoleID) {
		memberChanged = true
		rt.logger.Info("member role removed",
			membersync.Field{Key: "member_id", Value: member.ID},
			membersync.Field{Key: "role_id", Value: rt.memberRoleID})
	}
	if memberChanged {
		if err := rt.directory.SaveMember(ctx, member); err != nil {
			return statusError, fmt.Errorf("save member %s: %w", member.ID, err)
		}
		rt.metrics.RecordMemberUpdate("role")
	}

	return statusSuccess, nil
}

func stringPtr(s string) *string {
	return &s
}
