package chargebee

import "time"

// Metrics defines the interface for tracking webhook processing.
// All methods are optional - the router gracefully handles nil metrics.
type Metrics interface {
	// RecordWebhookEvent records a received webhook event.
	// status: "success", "skipped" (record not found) or "unhandled"
	RecordWebhookEvent(eventType, status string)

	// RecordWebhookProcessingDuration records how long a webhook took.
	RecordWebhookProcessingDuration(eventType string, duration time.Duration)

	// RecordWebhookError records a webhook rejection or processing error.
	// errorType: "auth_failed", "malformed_payload", "missing_customer_id",
	// "payload_too_large" or "store_error"
	RecordWebhookError(errorType string)

	// RecordMemberUpdate records a persisted member or profile field change.
	RecordMemberUpdate(field string)

	// RecordPlanUpsert records a plan registry upsert.
	// outcome: "changed" or "unchanged"
	RecordPlanUpsert(outcome string)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordWebhookEvent(_, _ string)                            {}
func (n *NoopMetrics) RecordWebhookProcessingDuration(_ string, _ time.Duration) {}
func (n *NoopMetrics) RecordWebhookError(_ string)                               {}
func (n *NoopMetrics) RecordMemberUpdate(_ string)                               {}
func (n *NoopMetrics) RecordPlanUpsert(_ string)                                 {}
