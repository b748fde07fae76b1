package membersync_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
	"github.com/makehaven/chargebee-status-sync/storage/memory"
)

// countingStore wraps the memory backend and counts persisted writes so tests
// can assert that unchanged upserts do not touch storage.
type countingStore struct {
	*memory.Storage
	planSaves    int
	profileSaves int
	memberSaves  int
}

func newCountingStore() *countingStore {
	return &countingStore{Storage: memory.New()}
}

func (c *countingStore) SavePlan(ctx context.Context, plan *membersync.Plan) error {
	c.planSaves++
	return c.Storage.SavePlan(ctx, plan)
}

func (c *countingStore) SaveProfile(ctx context.Context, profile *membersync.Profile, revisionNote string) error {
	c.profileSaves++
	return c.Storage.SaveProfile(ctx, profile, revisionNote)
}

func (c *countingStore) SaveMember(ctx context.Context, member *membersync.Member) error {
	c.memberSaves++
	return c.Storage.SaveMember(ctx, member)
}

func floatPtr(f float64) *float64 { return &f }

func strPtr(s string) *string { return &s }

func TestRegistry_UpsertPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("creates plan with label defaulting to plan id", func(t *testing.T) {
		store := newCountingStore()
		registry := membersync.NewRegistry(store, store, nil)

		plan, changed, err := registry.UpsertPlan(ctx, "maker-monthly", membersync.PlanMetadata{
			Provider: strPtr("chargebee"),
			Currency: strPtr("usd"),
			Amount:   floatPtr(19.99),
		})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "maker-monthly", plan.PlanID)
		assert.Equal(t, "maker-monthly", plan.Label)
		assert.Equal(t, "chargebee", plan.Provider)
		assert.Equal(t, "USD", plan.Currency)
		assert.Equal(t, "19.99", plan.Amount)
		assert.Equal(t, 1, store.planSaves)
	})

	t.Run("repeated identical upsert saves once", func(t *testing.T) {
		store := newCountingStore()
		registry := membersync.NewRegistry(store, store, nil)

		meta := membersync.PlanMetadata{
			Provider: strPtr("chargebee"),
			Currency: strPtr("USD"),
			Amount:   floatPtr(19.99),
		}

		_, changed, err := registry.UpsertPlan(ctx, "maker-monthly", meta)
		require.NoError(t, err)
		assert.True(t, changed)

		_, changed, err = registry.UpsertPlan(ctx, "maker-monthly", meta)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, 1, store.planSaves)
	})

	t.Run("updates changed fields in place", func(t *testing.T) {
		store := newCountingStore()
		registry := membersync.NewRegistry(store, store, nil)

		_, _, err := registry.UpsertPlan(ctx, "maker-monthly", membersync.PlanMetadata{Amount: floatPtr(19.99)})
		require.NoError(t, err)

		plan, changed, err := registry.UpsertPlan(ctx, "maker-monthly", membersync.PlanMetadata{Amount: floatPtr(24.99)})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "24.99", plan.Amount)
		assert.Equal(t, 2, store.planSaves)
	})

	t.Run("nil metadata fields leave stored values alone", func(t *testing.T) {
		store := newCountingStore()
		registry := membersync.NewRegistry(store, store, nil)

		_, _, err := registry.UpsertPlan(ctx, "maker-monthly", membersync.PlanMetadata{
			Currency: strPtr("USD"),
			Amount:   floatPtr(19.99),
		})
		require.NoError(t, err)

		plan, changed, err := registry.UpsertPlan(ctx, "maker-monthly", membersync.PlanMetadata{})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "USD", plan.Currency)
		assert.Equal(t, "19.99", plan.Amount)
	})

	t.Run("upsert never touches the tier mapping", func(t *testing.T) {
		store := newCountingStore()
		require.NoError(t, store.SavePlan(ctx, &membersync.Plan{
			PlanID:           "maker-monthly",
			Label:            "Maker Monthly",
			MembershipTierID: "tier_maker",
		}))
		registry := membersync.NewRegistry(store, store, nil)

		plan, _, err := registry.UpsertPlan(ctx, "maker-monthly", membersync.PlanMetadata{Amount: floatPtr(19.99)})
		require.NoError(t, err)
		assert.Equal(t, "tier_maker", plan.MembershipTierID)
		assert.Equal(t, "Maker Monthly", plan.Label)
	})

	t.Run("empty plan id fails", func(t *testing.T) {
		store := newCountingStore()
		registry := membersync.NewRegistry(store, store, nil)

		_, _, err := registry.UpsertPlan(ctx, "  ", membersync.PlanMetadata{})
		assert.Error(t, err)
	})
}

func TestRegistry_AssignMembershipTier(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, tierID string) (*countingStore, *membersync.Registry, *membersync.Member) {
		t.Helper()
		store := newCountingStore()
		member := &membersync.Member{ID: "m1", CustomerID: "cust_1"}
		require.NoError(t, store.SaveMember(ctx, member))
		require.NoError(t, store.SaveProfile(ctx, &membersync.Profile{MemberID: "m1"}, ""))
		require.NoError(t, store.SavePlan(ctx, &membersync.Plan{
			PlanID:           "maker-monthly",
			MembershipTierID: tierID,
		}))
		store.profileSaves = 0
		return store, membersync.NewRegistry(store, store, nil), member
	}

	t.Run("applies mapped tier to the profile", func(t *testing.T) {
		store, registry, member := setup(t, "tier_maker")

		changed, err := registry.AssignMembershipTierByPlanID(ctx, member, "maker-monthly")
		require.NoError(t, err)
		assert.True(t, changed)

		profile, err := store.FindByMember(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "tier_maker", profile.MembershipTierID)
	})

	t.Run("second apply is a no-op", func(t *testing.T) {
		store, registry, member := setup(t, "tier_maker")

		_, err := registry.AssignMembershipTierByPlanID(ctx, member, "maker-monthly")
		require.NoError(t, err)

		changed, err := registry.AssignMembershipTierByPlanID(ctx, member, "maker-monthly")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, 1, store.profileSaves)
	})

	t.Run("unmapped plan is skipped", func(t *testing.T) {
		store, registry, member := setup(t, "")

		changed, err := registry.AssignMembershipTierByPlanID(ctx, member, "maker-monthly")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, 0, store.profileSaves)
	})

	t.Run("missing plan record is skipped", func(t *testing.T) {
		_, registry, member := setup(t, "tier_maker")

		changed, err := registry.AssignMembershipTierByPlanID(ctx, member, "no-such-plan")
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("missing profile is skipped", func(t *testing.T) {
		store := newCountingStore()
		member := &membersync.Member{ID: "m2", CustomerID: "cust_2"}
		require.NoError(t, store.SaveMember(ctx, member))
		require.NoError(t, store.SavePlan(ctx, &membersync.Plan{
			PlanID:           "maker-monthly",
			MembershipTierID: "tier_maker",
		}))
		registry := membersync.NewRegistry(store, store, nil)

		changed, err := registry.AssignMembershipTier(ctx, member, &membersync.Plan{
			PlanID:           "maker-monthly",
			MembershipTierID: "tier_maker",
		})
		require.NoError(t, err)
		assert.False(t, changed)
	})
}
