package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
)

func TestStorage_Members(t *testing.T) {
	ctx := context.Background()
	storage := New()

	member := &membersync.Member{
		ID:         "m1",
		CustomerID: "cust_1",
		Roles:      []string{"authenticated"},
	}
	if err := storage.SaveMember(ctx, member); err != nil {
		t.Fatalf("SaveMember failed: %v", err)
	}

	t.Run("find by member id", func(t *testing.T) {
		got, err := storage.FindMember(ctx, "m1")
		if err != nil {
			t.Fatalf("FindMember failed: %v", err)
		}
		if got.CustomerID != "cust_1" {
			t.Errorf("Expected customer id cust_1, got %q", got.CustomerID)
		}
	})

	t.Run("find by customer id", func(t *testing.T) {
		got, err := storage.FindByCustomerID(ctx, "cust_1")
		if err != nil {
			t.Fatalf("FindByCustomerID failed: %v", err)
		}
		if got.ID != "m1" {
			t.Errorf("Expected member id m1, got %q", got.ID)
		}
	})

	t.Run("missing member returns sentinel", func(t *testing.T) {
		if _, err := storage.FindMember(ctx, "nope"); !errors.Is(err, membersync.ErrMemberNotFound) {
			t.Errorf("Expected ErrMemberNotFound, got %v", err)
		}
		if _, err := storage.FindByCustomerID(ctx, "nope"); !errors.Is(err, membersync.ErrMemberNotFound) {
			t.Errorf("Expected ErrMemberNotFound, got %v", err)
		}
	})

	t.Run("returned member is a copy", func(t *testing.T) {
		got, err := storage.FindMember(ctx, "m1")
		if err != nil {
			t.Fatalf("FindMember failed: %v", err)
		}
		got.Paused = true
		got.Roles[0] = "mutated"

		fresh, err := storage.FindMember(ctx, "m1")
		if err != nil {
			t.Fatalf("FindMember failed: %v", err)
		}
		if fresh.Paused {
			t.Error("Mutating a returned member should not affect stored state")
		}
		if fresh.Roles[0] != "authenticated" {
			t.Error("Mutating a returned role slice should not affect stored state")
		}
	})

	t.Run("save validates input", func(t *testing.T) {
		if err := storage.SaveMember(ctx, nil); err == nil {
			t.Error("Expected error for nil member")
		}
		if err := storage.SaveMember(ctx, &membersync.Member{}); err == nil {
			t.Error("Expected error for member without id")
		}
	})
}

func TestStorage_Profiles(t *testing.T) {
	ctx := context.Background()
	storage := New()

	if _, err := storage.FindByMember(ctx, "m1"); !errors.Is(err, membersync.ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound, got %v", err)
	}

	profile := &membersync.Profile{MemberID: "m1", MonthlyPayment: "19.99"}
	if err := storage.SaveProfile(ctx, profile, "initial import"); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	got, err := storage.FindByMember(ctx, "m1")
	if err != nil {
		t.Fatalf("FindByMember failed: %v", err)
	}
	if got.MonthlyPayment != "19.99" {
		t.Errorf("Expected monthly payment 19.99, got %q", got.MonthlyPayment)
	}

	// Returned profile is a copy
	got.EndDate = "2024-01-01"
	fresh, err := storage.FindByMember(ctx, "m1")
	if err != nil {
		t.Fatalf("FindByMember failed: %v", err)
	}
	if fresh.EndDate != "" {
		t.Error("Mutating a returned profile should not affect stored state")
	}
}

func TestStorage_Plans(t *testing.T) {
	ctx := context.Background()
	storage := New()

	if _, err := storage.FindPlan(ctx, "p1"); !errors.Is(err, membersync.ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound, got %v", err)
	}

	plan := &membersync.Plan{PlanID: "p1", Label: "Plan One", Amount: "10.00"}
	if err := storage.SavePlan(ctx, plan); err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}

	got, err := storage.FindPlan(ctx, "p1")
	if err != nil {
		t.Fatalf("FindPlan failed: %v", err)
	}
	if got.Label != "Plan One" {
		t.Errorf("Expected label Plan One, got %q", got.Label)
	}
}

func TestStorage_Settings(t *testing.T) {
	ctx := context.Background()
	storage := New()

	if _, err := storage.LoadSettings(ctx); !errors.Is(err, membersync.ErrSettingsNotFound) {
		t.Errorf("Expected ErrSettingsNotFound, got %v", err)
	}

	settings := &membersync.Settings{SecretToken: "tok", MemberRoleID: "member"}
	if err := storage.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	got, err := storage.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if got.SecretToken != "tok" || got.MemberRoleID != "member" {
		t.Errorf("Unexpected settings: %+v", got)
	}
}
