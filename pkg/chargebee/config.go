package chargebee

import (
	"time"

	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
)

const (
	providerName             = "chargebee"
	defaultMaxBodyBytes      = 256 * 1024
	defaultRateLimitRequests = 100
	defaultRateLimitWindow   = time.Minute
)

// Config defines the configuration for the webhook router. The secret token
// and member role id are injected here once at construction; the router never
// performs ambient configuration lookups at request time.
type Config struct {
	// Directory is the member-record collaborator (required).
	Directory membersync.Directory

	// Profiles is the profile collaborator (required).
	Profiles membersync.ProfileStore

	// Registry manages plan records and tier mapping (required).
	Registry *membersync.Registry

	// SecretToken is the shared secret compared against the URL token
	// (required). Comparison is constant time.
	SecretToken string

	// MemberRoleID is the role added on reactivation and removed on
	// cancellation. Empty disables role mutation with a warning.
	MemberRoleID string

	// Logger is used for structured logging (default: NoopLogger).
	Logger membersync.Logger

	// Metrics tracks webhook processing (default: NoopMetrics).
	Metrics Metrics

	// MaxBodyBytes limits the request body size (default: 256KB).
	MaxBodyBytes int64

	// RateLimitRequests / RateLimitWindow configure the per-IP limiter on
	// the webhook endpoint (default: 100 requests per minute).
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Now supplies the current time for reactivation dates. Defaults to
	// time.Now; injectable for tests.
	Now func() time.Time
}
