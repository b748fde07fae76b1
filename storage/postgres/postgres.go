// Package postgres provides a PostgreSQL implementation of the membersync
// storage contracts using pgx. Record saves are single-statement upserts, so
// concurrent webhook deliveries for the same record serialize at the row
// level.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
)

// Storage implements membersync.Directory, ProfileStore, PlanStore and
// SettingsStore backed by PostgreSQL.
type Storage struct {
	pool   *pgxpool.Pool
	config Config
}

// Config holds PostgreSQL storage configuration
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL storage adapter
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Storage{pool: pool, config: config}, nil
}

// Close closes the PostgreSQL connection pool
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the schema if it does not exist yet.
func (s *Storage) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS members (
			id TEXT PRIMARY KEY,
			customer_id TEXT UNIQUE NOT NULL,
			paused BOOLEAN NOT NULL DEFAULT FALSE,
			payment_failed BOOLEAN NOT NULL DEFAULT FALSE,
			plan_id TEXT NOT NULL DEFAULT '',
			roles TEXT[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			member_id TEXT PRIMARY KEY,
			membership_tier_id TEXT NOT NULL DEFAULT '',
			end_date TEXT NOT NULL DEFAULT '',
			end_reason TEXT NOT NULL DEFAULT '',
			reactivation_date TEXT NOT NULL DEFAULT '',
			monthly_payment TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS profile_revisions (
			revision_id UUID PRIMARY KEY,
			member_id TEXT NOT NULL,
			note TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS plans (
			plan_id TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL DEFAULT '',
			membership_tier_id TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			secret_token TEXT NOT NULL,
			member_role_id TEXT NOT NULL DEFAULT '',
			notify_email TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// FindByCustomerID implements membersync.Directory
func (s *Storage) FindByCustomerID(ctx context.Context, customerID string) (*membersync.Member, error) {
	return s.findMember(ctx,
		`SELECT id, customer_id, paused, payment_failed, plan_id, roles
			FROM members WHERE customer_id = $1`, customerID)
}

// FindMember implements membersync.Directory
func (s *Storage) FindMember(ctx context.Context, memberID string) (*membersync.Member, error) {
	return s.findMember(ctx,
		`SELECT id, customer_id, paused, payment_failed, plan_id, roles
			FROM members WHERE id = $1`, memberID)
}

func (s *Storage) findMember(ctx context.Context, query, arg string) (*membersync.Member, error) {
	var member membersync.Member
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&member.ID,
		&member.CustomerID,
		&member.Paused,
		&member.PaymentFailed,
		&member.PlanID,
		&member.Roles,
	)
	if err == pgx.ErrNoRows {
		return nil, membersync.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &member, nil
}

// SaveMember implements membersync.Directory
func (s *Storage) SaveMember(ctx context.Context, member *membersync.Member) error {
	if member == nil || member.ID == "" {
		return fmt.Errorf("invalid member")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO members (id, customer_id, paused, payment_failed, plan_id, roles, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (id) DO UPDATE SET
				customer_id = EXCLUDED.customer_id,
				paused = EXCLUDED.paused,
				payment_failed = EXCLUDED.payment_failed,
				plan_id = EXCLUDED.plan_id,
				roles = EXCLUDED.roles,
				updated_at = now()`,
		member.ID, member.CustomerID, member.Paused, member.PaymentFailed,
		member.PlanID, member.Roles,
	)
	if err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}
	return nil
}

// FindByMember implements membersync.ProfileStore
func (s *Storage) FindByMember(ctx context.Context, memberID string) (*membersync.Profile, error) {
	var profile membersync.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT member_id, membership_tier_id, end_date, end_reason, reactivation_date, monthly_payment
			FROM profiles WHERE member_id = $1`,
		memberID).Scan(
		&profile.MemberID,
		&profile.MembershipTierID,
		&profile.EndDate,
		&profile.EndReason,
		&profile.ReactivationDate,
		&profile.MonthlyPayment,
	)
	if err == pgx.ErrNoRows {
		return nil, membersync.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile implements membersync.ProfileStore. The revision note, when
// present, is recorded in profile_revisions within the same transaction as
// the profile write.
func (s *Storage) SaveProfile(ctx context.Context, profile *membersync.Profile, revisionNote string) error {
	if profile == nil || profile.MemberID == "" {
		return fmt.Errorf("invalid profile")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO profiles (member_id, membership_tier_id, end_date, end_reason, reactivation_date, monthly_payment, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (member_id) DO UPDATE SET
				membership_tier_id = EXCLUDED.membership_tier_id,
				end_date = EXCLUDED.end_date,
				end_reason = EXCLUDED.end_reason,
				reactivation_date = EXCLUDED.reactivation_date,
				monthly_payment = EXCLUDED.monthly_payment,
				updated_at = now()`,
		profile.MemberID, profile.MembershipTierID, profile.EndDate,
		profile.EndReason, profile.ReactivationDate, profile.MonthlyPayment,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	if revisionNote != "" {
		_, err = tx.Exec(ctx,
			`INSERT INTO profile_revisions (revision_id, member_id, note) VALUES ($1, $2, $3)`,
			uuid.New(), profile.MemberID, revisionNote,
		)
		if err != nil {
			return fmt.Errorf("failed to record profile revision: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// FindPlan implements membersync.PlanStore
func (s *Storage) FindPlan(ctx context.Context, planID string) (*membersync.Plan, error) {
	var plan membersync.Plan
	err := s.pool.QueryRow(ctx,
		`SELECT plan_id, label, provider, currency, amount, membership_tier_id
			FROM plans WHERE plan_id = $1`,
		planID).Scan(
		&plan.PlanID,
		&plan.Label,
		&plan.Provider,
		&plan.Currency,
		&plan.Amount,
		&plan.MembershipTierID,
	)
	if err == pgx.ErrNoRows {
		return nil, membersync.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

// SavePlan implements membersync.PlanStore. The membership tier mapping is
// admin-curated and is written only on first insert, never overwritten by a
// later sync.
func (s *Storage) SavePlan(ctx context.Context, plan *membersync.Plan) error {
	if plan == nil || plan.PlanID == "" {
		return fmt.Errorf("invalid plan")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO plans (plan_id, label, provider, currency, amount, membership_tier_id, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (plan_id) DO UPDATE SET
				label = EXCLUDED.label,
				provider = EXCLUDED.provider,
				currency = EXCLUDED.currency,
				amount = EXCLUDED.amount,
				updated_at = now()`,
		plan.PlanID, plan.Label, plan.Provider, plan.Currency, plan.Amount,
		plan.MembershipTierID,
	)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

// LoadSettings implements membersync.SettingsStore
func (s *Storage) LoadSettings(ctx context.Context) (*membersync.Settings, error) {
	var settings membersync.Settings
	err := s.pool.QueryRow(ctx,
		`SELECT secret_token, member_role_id, notify_email FROM settings WHERE id = 1`).Scan(
		&settings.SecretToken,
		&settings.MemberRoleID,
		&settings.NotifyEmail,
	)
	if err == pgx.ErrNoRows {
		return nil, membersync.ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings implements membersync.SettingsStore
func (s *Storage) SaveSettings(ctx context.Context, settings *membersync.Settings) error {
	if settings == nil {
		return fmt.Errorf("invalid settings")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO settings (id, secret_token, member_role_id, notify_email, updated_at)
			VALUES (1, $1, $2, $3, now())
			ON CONFLICT (id) DO UPDATE SET
				secret_token = EXCLUDED.secret_token,
				member_role_id = EXCLUDED.member_role_id,
				notify_email = EXCLUDED.notify_email,
				updated_at = now()`,
		settings.SecretToken, settings.MemberRoleID, settings.NotifyEmail,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
