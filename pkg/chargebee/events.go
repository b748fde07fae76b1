package chargebee

// Chargebee webhook event types handled by the router. Any other event type
// is acknowledged with a warning and no mutation.
const (
	EventSubscriptionCreated     = "subscription_created"
	EventSubscriptionUpdated     = "subscription_updated"
	EventSubscriptionPaused      = "subscription_paused"
	EventSubscriptionResumed     = "subscription_resumed"
	EventScheduledPauseRemoved   = "subscription_scheduled_pause_removed"
	EventSubscriptionCancelled   = "subscription_cancelled"
	EventSubscriptionReactivated = "subscription_reactivated"
	EventPaymentFailed           = "payment_failed"
	EventPaymentSucceeded        = "payment_succeeded"
)

// eventPayload is the subset of the Chargebee event envelope this service
// reads. Chargebee sends many more fields; they are ignored rather than
// rejected, so decoding must not disallow unknown fields.
type eventPayload struct {
	EventType string `json:"event_type"`

	Content struct {
		Customer struct {
			ID string `json:"id"`
		} `json:"customer"`

		Subscription struct {
			PlanID string `json:"plan_id"`

			// PlanAmount is in minor units (cents). Pointer so a
			// missing amount is distinguishable from zero.
			PlanAmount *int64 `json:"plan_amount"`

			CurrencyCode string `json:"currency_code"`

			// CurrentTermEnd is epoch seconds of the paid-through date.
			CurrentTermEnd int64 `json:"current_term_end"`

			CancelReasonCode string `json:"cancel_reason_code"`
		} `json:"subscription"`
	} `json:"content"`
}

// customerID returns the nested customer id, or "" when absent.
func (p *eventPayload) customerID() string {
	return p.Content.Customer.ID
}
