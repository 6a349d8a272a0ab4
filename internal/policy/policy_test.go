package policy

import (
	"testing"

	"github.com/mlecanu/ilconto/internal/model"
)

func TestCanViewOrEditBoard(t *testing.T) {
	member := &model.Identity{ID: "id-member"}
	staff := &model.Identity{ID: "id-staff", IsStaff: true}
	outsider := &model.Identity{ID: "id-outsider"}

	members := []model.Membership{
		{ID: "m1", IdentityID: "id-member"},
		{ID: "m2", IdentityID: "id-other"},
	}

	tests := []struct {
		name    string
		caller  *model.Identity
		members []model.Membership
		want    bool
	}{
		{"member sees their board", member, members, true},
		{"staff sees any board", staff, members, true},
		{"staff sees empty board", staff, nil, true},
		{"outsider denied", outsider, members, false},
		{"member denied on empty board", member, nil, false},
		{"nil caller denied", nil, members, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanViewOrEditBoard(tt.caller, tt.members); got != tt.want {
				t.Errorf("CanViewOrEditBoard() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanMutateMembership(t *testing.T) {
	owner := &model.Identity{ID: "id-owner"}
	staff := &model.Identity{ID: "id-staff", IsStaff: true}
	other := &model.Identity{ID: "id-other"}

	m := &model.Membership{ID: "m1", IdentityID: "id-owner"}

	tests := []struct {
		name       string
		caller     *model.Identity
		membership *model.Membership
		want       bool
	}{
		{"owner mutates own membership", owner, m, true},
		{"other member denied", other, m, false},
		// Staff visibility does not extend to rewriting someone's record.
		{"staff denied on others", staff, m, false},
		{"nil caller denied", nil, m, false},
		{"nil membership denied", owner, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanMutateMembership(tt.caller, tt.membership); got != tt.want {
				t.Errorf("CanMutateMembership() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsOnboardingEligible(t *testing.T) {
	const hash = "abcdefghijklmnopqrst"

	provisioned := &model.Identity{ID: "id-1", ActivationHash: hash}
	activated := &model.Identity{ID: "id-2", IsActivated: true, ActivationHash: hash}
	burned := &model.Identity{ID: "id-3", IsActivated: true} // hash already cleared

	tests := []struct {
		name     string
		identity *model.Identity
		hash     string
		want     bool
	}{
		{"matching hash on provisioned identity", provisioned, hash, true},
		{"wrong hash", provisioned, "tsrqponmlkjihgfedcba", false},
		{"case matters", provisioned, "ABCDEFGHIJKLMNOPQRST", false},
		{"empty supplied hash", provisioned, "", false},
		{"already activated", activated, hash, false},
		{"activated with cleared hash", burned, "", false},
		{"nil identity", nil, hash, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := IsOnboardingEligible(tt.identity, tt.hash)
			if got != tt.want {
				t.Errorf("IsOnboardingEligible() = %v (%s), want %v", got, reason, tt.want)
			}
			if !got && reason == "" {
				t.Error("expected a reason when ineligible")
			}
		})
	}
}
