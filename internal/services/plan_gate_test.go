package services

import (
	"context"
	"errors"
	"testing"

	"github.com/saeid-a/GymSessionsBack/internal/models"
)

type stubPlans struct {
	plans    map[int64]*models.PricingPlanFact
	accepted map[int64][]string
	err      error
}

func (s *stubPlans) GetActivePlan(_ context.Context, userID int64) (*models.PricingPlanFact, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.plans[userID], nil
}

func (s *stubPlans) GetAcceptedPlans(_ context.Context, trainerID int64) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.accepted[trainerID], nil
}

func newStubGate(plans *stubPlans) *PlanGate {
	return NewPlanGate(plans, plans)
}

func TestCanJoinRequiresPlanInAcceptedSet(t *testing.T) {
	plans := &stubPlans{
		plans: map[int64]*models.PricingPlanFact{
			1: {UserID: 1, PlanName: "Silver", IsActive: true},
		},
		accepted: map[int64][]string{7: {"Gold"}},
	}
	gate := newStubGate(plans)

	ok, err := gate.CanJoin(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("CanJoin: %v", err)
	}
	if ok {
		t.Fatal("expected Silver to be rejected by a Gold-only trainer")
	}

	plans.plans[1] = &models.PricingPlanFact{UserID: 1, PlanName: "Gold", IsActive: true}
	ok, err = gate.CanJoin(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("CanJoin after upgrade: %v", err)
	}
	if !ok {
		t.Fatal("expected Gold to be accepted after upgrade")
	}
}

func TestCanJoinDeniesWithoutActivePlan(t *testing.T) {
	gate := newStubGate(&stubPlans{
		plans: map[int64]*models.PricingPlanFact{
			2: {UserID: 2, PlanName: "Gold", IsActive: false},
		},
		accepted: map[int64][]string{7: {"Gold"}},
	})

	for _, userID := range []int64{2, 3} {
		ok, err := gate.CanJoin(context.Background(), userID, 7)
		if err != nil {
			t.Fatalf("CanJoin(%d): %v", userID, err)
		}
		if ok {
			t.Fatalf("expected member %d without an active plan to be denied", userID)
		}
	}
}

func TestCanJoinDeniesWhenTrainerAcceptsNothing(t *testing.T) {
	gate := newStubGate(&stubPlans{
		plans: map[int64]*models.PricingPlanFact{
			1: {UserID: 1, PlanName: "Gold", IsActive: true},
		},
	})

	ok, err := gate.CanJoin(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("CanJoin: %v", err)
	}
	if ok {
		t.Fatal("expected empty accepted set to deny the strict gate")
	}

	decision, err := gate.Evaluate(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Gated {
		t.Fatal("expected an empty accepted set to mean the trainer is not gated")
	}
}

func TestPlanNamesCompareCaseInsensitively(t *testing.T) {
	gate := newStubGate(&stubPlans{
		plans: map[int64]*models.PricingPlanFact{
			1: {UserID: 1, PlanName: " gold ", IsActive: true},
		},
		accepted: map[int64][]string{7: {"Gold", "Platinum"}},
	})

	decision, err := gate.Evaluate(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !decision.Allowed || !decision.Gated {
		t.Fatalf("expected allowed gated decision, got %+v", decision)
	}
	if decision.MemberPlan == nil || *decision.MemberPlan != " gold " {
		t.Fatalf("expected raw member plan to be reported, got %v", decision.MemberPlan)
	}
}

func TestPlanGatePropagatesCollaboratorErrors(t *testing.T) {
	boom := errors.New("payments unavailable")
	gate := newStubGate(&stubPlans{err: boom})

	if _, err := gate.CanJoin(context.Background(), 1, 7); !errors.Is(err, boom) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
}
