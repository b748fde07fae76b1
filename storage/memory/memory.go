// Package memory provides an in-memory implementation of the membersync
// storage contracts. This implementation is primarily intended for testing
// and development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
)

// Storage implements membersync.Directory, ProfileStore, PlanStore and
// SettingsStore using in-memory maps. A single mutex serializes writes, so
// each read-modify-write cycle against the same record is race free.
type Storage struct {
	mu         sync.RWMutex
	members    map[string]*membersync.Member // keyed by member id
	byCustomer map[string]string             // customer id -> member id
	profiles   map[string]*membersync.Profile
	plans      map[string]*membersync.Plan
	settings   *membersync.Settings
}

// New creates a new in-memory storage adapter.
func New() *Storage {
	return &Storage{
		members:    make(map[string]*membersync.Member),
		byCustomer: make(map[string]string),
		profiles:   make(map[string]*membersync.Profile),
		plans:      make(map[string]*membersync.Plan),
	}
}

// FindByCustomerID implements membersync.Directory.
func (s *Storage) FindByCustomerID(ctx context.Context, customerID string) (*membersync.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCustomer[customerID]
	if !ok {
		return nil, membersync.ErrMemberNotFound
	}
	return copyMember(s.members[id]), nil
}

// FindMember implements membersync.Directory.
func (s *Storage) FindMember(ctx context.Context, memberID string) (*membersync.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[memberID]
	if !ok {
		return nil, membersync.ErrMemberNotFound
	}
	return copyMember(member), nil
}

// SaveMember implements membersync.Directory.
func (s *Storage) SaveMember(ctx context.Context, member *membersync.Member) error {
	if member == nil || member.ID == "" {
		return fmt.Errorf("invalid member")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.members[member.ID] = copyMember(member)
	if member.CustomerID != "" {
		s.byCustomer[member.CustomerID] = member.ID
	}
	return nil
}

// FindByMember implements membersync.ProfileStore.
func (s *Storage) FindByMember(ctx context.Context, memberID string) (*membersync.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[memberID]
	if !ok {
		return nil, membersync.ErrProfileNotFound
	}
	profileCopy := *profile
	return &profileCopy, nil
}

// SaveProfile implements membersync.ProfileStore. The revision note is
// discarded; the memory backend keeps no revision history.
func (s *Storage) SaveProfile(ctx context.Context, profile *membersync.Profile, revisionNote string) error {
	if profile == nil || profile.MemberID == "" {
		return fmt.Errorf("invalid profile")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profileCopy := *profile
	s.profiles[profile.MemberID] = &profileCopy
	return nil
}

// FindPlan implements membersync.PlanStore.
func (s *Storage) FindPlan(ctx context.Context, planID string) (*membersync.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.plans[planID]
	if !ok {
		return nil, membersync.ErrPlanNotFound
	}
	planCopy := *plan
	return &planCopy, nil
}

// SavePlan implements membersync.PlanStore.
func (s *Storage) SavePlan(ctx context.Context, plan *membersync.Plan) error {
	if plan == nil || plan.PlanID == "" {
		return fmt.Errorf("invalid plan")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	planCopy := *plan
	s.plans[plan.PlanID] = &planCopy
	return nil
}

// LoadSettings implements membersync.SettingsStore.
func (s *Storage) LoadSettings(ctx context.Context) (*membersync.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return nil, membersync.ErrSettingsNotFound
	}
	settingsCopy := *s.settings
	return &settingsCopy, nil
}

// SaveSettings implements membersync.SettingsStore.
func (s *Storage) SaveSettings(ctx context.Context, settings *membersync.Settings) error {
	if settings == nil {
		return fmt.Errorf("invalid settings")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settingsCopy := *settings
	s.settings = &settingsCopy
	return nil
}

// copyMember returns a deep copy so callers cannot mutate stored state.
func copyMember(m *membersync.Member) *membersync.Member {
	memberCopy := *m
	memberCopy.Roles = append([]string(nil), m.Roles...)
	return &memberCopy
}
