// Package redis provides a Redis implementation of the
// membersync.SettingsStore contract. The admin surface writes the shared
// webhook settings here; the service reads them once at startup.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
)

const (
	fieldSecretToken  = "secret_token"
	fieldMemberRoleID = "member_role_id"
	fieldNotifyEmail  = "notify_email"
)

// Config holds Redis storage configuration
type Config struct {
	// KeyPrefix is prepended to all keys (default: "chargebee_sync:")
	KeyPrefix string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "chargebee_sync:",
	}
}

// Storage implements membersync.SettingsStore using a Redis hash.
type Storage struct {
	client redis.UniversalClient
	config Config
}

// New creates a new Redis settings store
func New(client redis.UniversalClient, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Storage{client: client, config: config}, nil
}

func (s *Storage) settingsKey() string {
	return s.config.KeyPrefix + "settings"
}

// LoadSettings implements membersync.SettingsStore
func (s *Storage) LoadSettings(ctx context.Context) (*membersync.Settings, error) {
	values, err := s.client.HGetAll(ctx, s.settingsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", membersync.ErrStoreUnavailable, err)
	}
	if len(values) == 0 {
		return nil, membersync.ErrSettingsNotFound
	}
	return &membersync.Settings{
		SecretToken:  values[fieldSecretToken],
		MemberRoleID: values[fieldMemberRoleID],
		NotifyEmail:  values[fieldNotifyEmail],
	}, nil
}

// SaveSettings implements membersync.SettingsStore
func (s *Storage) SaveSettings(ctx context.Context, settings *membersync.Settings) error {
	if settings == nil {
		return fmt.Errorf("invalid settings")
	}
	err := s.client.HSet(ctx, s.settingsKey(),
		fieldSecretToken, settings.SecretToken,
		fieldMemberRoleID, settings.MemberRoleID,
		fieldNotifyEmail, settings.NotifyEmail,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", membersync.ErrStoreUnavailable, err)
	}
	return nil
}
