package policy_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mealdash/api/internal/policy"
)

func TestCanActOnOrder(t *testing.T) {
	customer := uuid.New()
	owner := uuid.New()
	courier := uuid.New()
	stranger := uuid.New()

	facts := policy.OrderFacts{
		CustomerID:        customer,
		RestaurantOwnerID: owner,
		CourierID:         courier,
	}

	tests := []struct {
		name    string
		role    string
		actorID uuid.UUID
		facts   policy.OrderFacts
		want    bool
	}{
		{"admin always allowed", "admin", stranger, facts, true},
		{"customer on own order", "customer", customer, facts, true},
		{"customer on someone else's order", "customer", stranger, facts, false},
		{"restaurant owner on own restaurant", "restaurant", owner, facts, true},
		{"restaurant owner on other restaurant", "restaurant", stranger, facts, false},
		{"assigned courier", "courier", courier, facts, true},
		{"other courier", "courier", stranger, facts, false},
		{"courier with no claimed delivery", "courier", courier, policy.OrderFacts{CustomerID: customer, RestaurantOwnerID: owner}, false},
		{"unknown role denied", "auditor", customer, facts, false},
		{"zero actor id denied", "customer", uuid.Nil, policy.OrderFacts{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.CanActOnOrder(tt.role, tt.actorID, tt.facts); got != tt.want {
				t.Errorf("CanActOnOrder(%q, %s) = %v, want %v", tt.role, tt.actorID, got, tt.want)
			}
		})
	}
}

func TestCanActOnDelivery(t *testing.T) {
	courier := uuid.New()
	other := uuid.New()

	tests := []struct {
		name     string
		role     string
		actorID  uuid.UUID
		assigned uuid.UUID
		want     bool
	}{
		{"assigned courier", "courier", courier, courier, true},
		{"other courier", "courier", other, courier, false},
		{"admin", "admin", other, courier, true},
		{"customer never", "customer", courier, courier, false},
		{"unclaimed delivery", "courier", courier, uuid.Nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.CanActOnDelivery(tt.role, tt.actorID, tt.assigned); got != tt.want {
				t.Errorf("CanActOnDelivery(%q) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}
