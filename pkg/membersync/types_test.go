package membersync_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
)

func TestMember_Roles(t *testing.T) {
	t.Run("add role", func(t *testing.T) {
		member := &membersync.Member{ID: "m1", Roles: []string{"authenticated"}}
		assert.True(t, member.AddRole("member"))
		assert.True(t, member.HasRole("member"))
		assert.Equal(t, []string{"authenticated", "member"}, member.Roles)
	})

	t.Run("add existing role is a no-op", func(t *testing.T) {
		member := &membersync.Member{ID: "m1", Roles: []string{"member"}}
		assert.False(t, member.AddRole("member"))
		assert.Equal(t, []string{"member"}, member.Roles)
	})

	t.Run("add empty role id is a no-op", func(t *testing.T) {
		member := &membersync.Member{ID: "m1"}
		assert.False(t, member.AddRole(""))
		assert.Empty(t, member.Roles)
	})

	t.Run("remove role", func(t *testing.T) {
		member := &membersync.Member{ID: "m1", Roles: []string{"authenticated", "member"}}
		assert.True(t, member.RemoveRole("member"))
		assert.False(t, member.HasRole("member"))
		assert.Equal(t, []string{"authenticated"}, member.Roles)
	})

	t.Run("remove absent role is a no-op", func(t *testing.T) {
		member := &membersync.Member{ID: "m1", Roles: []string{"authenticated"}}
		assert.False(t, member.RemoveRole("member"))
		assert.Equal(t, []string{"authenticated"}, member.Roles)
	})
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "19.99", membersync.FormatAmount(19.99))
	assert.Equal(t, "20.00", membersync.FormatAmount(20))
	assert.Equal(t, "0.50", membersync.FormatAmount(0.5))
	assert.Equal(t, "0.00", membersync.FormatAmount(0))
}

func TestFormatMinorUnits(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{1999, "19.99"},
		{2000, "20.00"},
		{50, "0.50"},
		{5, "0.05"},
		{0, "0.00"},
		{100000, "1000.00"},
		{-1999, "-19.99"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, membersync.FormatMinorUnits(tt.minor), "minor units %d", tt.minor)
	}
}

func TestFormatDate(t *testing.T) {
	// 2023-11-14T22:13:20Z
	assert.Equal(t, "2023-11-14", membersync.FormatDate(time.Unix(1700000000, 0)))

	// A timestamp late in the day in a western zone still renders the UTC date.
	loc := time.FixedZone("UTC-8", -8*60*60)
	assert.Equal(t, "2024-01-02", membersync.FormatDate(time.Date(2024, 1, 1, 20, 0, 0, 0, loc)))
}
