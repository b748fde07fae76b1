package chargebee

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/makehaven/chargebee-status-sync/pkg/chargebee/internal"
	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
)

// Router receives Chargebee webhook deliveries and reconciles member records.
// Each delivery is processed synchronously within the request; the provider's
// redelivery is the only retry mechanism, which is safe because every handler
// is idempotent.
type Router struct {
	directory    membersync.Directory
	profiles     membersync.ProfileStore
	registry     *membersync.Registry
	secretToken  []byte
	memberRoleID string
	logger       membersync.Logger
	metrics      Metrics
	maxBodyBytes int64
	rateLimiter  *internal.RateLimiter
	now          func() time.Time
}

// NewRouter creates a webhook router from the given configuration.
func NewRouter(config Config) (*Router, error) {
	if config.Directory == nil || config.Profiles == nil || config.Registry == nil {
		return nil, fmt.Errorf("chargebee: directory, profiles and registry are required")
	}
	if strings.TrimSpace(config.SecretToken) == "" {
		return nil, fmt.Errorf("chargebee: secret token is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = &membersync.NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	maxBody := config.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	limit := config.RateLimitRequests
	if limit <= 0 {
		limit = defaultRateLimitRequests
	}
	window := config.RateLimitWindow
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Router{
		directory:    config.Directory,
		profiles:     config.Profiles,
		registry:     config.Registry,
		secretToken:  []byte(strings.TrimSpace(config.SecretToken)),
		memberRoleID: config.MemberRoleID,
		logger:       logger,
		metrics:      metrics,
		maxBodyBytes: maxBody,
		rateLimiter:  internal.NewRateLimiter(limit, window),
		now:          now,
	}, nil
}

// Handler returns the HTTP handler for the webhook endpoint, wrapped with
// per-IP rate limiting. The handler expects the shared token as the final
// path segment (POST /chargebee-webhook/{token}).
func (rt *Router) Handler() http.Handler {
	return rt.rateLimiter.Middleware(http.HandlerFunc(rt.handleWebhook))
}

func (rt *Router) handleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !rt.verifyToken(pathToken(r.URL.Path)) {
		rt.logger.Error("access denied: invalid webhook token",
			membersync.Field{Key: "remote_ip", Value: internal.GetClientIP(r)})
		rt.metrics.RecordWebhookError("auth_failed")
		http.Error(w, "access denied: invalid token", http.StatusForbidden)
		return
	}

	body, err := internal.ReadBodyStrict(w, r, rt.maxBodyBytes)
	if err != nil {
		if errors.Is(err, internal.ErrPayloadTooLarge) {
			rt.metrics.RecordWebhookError("payload_too_large")
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		rt.metrics.RecordWebhookError("malformed_payload")
		http.Error(w, "invalid data", http.StatusBadRequest)
		return
	}

	var payload eventPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.EventType == "" {
		rt.logger.Error("invalid data received in the webhook",
			membersync.Field{Key: "error", Value: err})
		rt.metrics.RecordWebhookError("malformed_payload")
		http.Error(w, "invalid data", http.StatusBadRequest)
		return
	}

	if payload.customerID() == "" {
		rt.logger.Error("customer id not found in the event data",
			membersync.Field{Key: "event_type", Value: payload.EventType})
		rt.metrics.RecordWebhookError("missing_customer_id")
		http.Error(w, "customer id not found", http.StatusBadRequest)
		return
	}

	// From here on the provider always gets a 200: a record missing locally
	// or a handler-local failure must not trigger provider retry storms.
	status := rt.dispatch(r.Context(), &payload)

	rt.metrics.RecordWebhookEvent(payload.EventType, status)
	rt.metrics.RecordWebhookProcessingDuration(payload.EventType, time.Since(startTime))

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("received"))
}

// verifyToken compares the URL token against the configured secret in
// constant time.
func (rt *Router) verifyToken(token string) bool {
	if token == "" || len(rt.secretToken) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), rt.secretToken) == 1
}

// pathToken returns the final path segment.
func pathToken(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
