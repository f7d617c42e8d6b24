package services

import (
	"context"
	"strings"

	"github.com/saeid-a/GymSessionsBack/internal/models"
)

type activePlanReader interface {
	GetActivePlan(ctx context.Context, userID int64) (*models.PricingPlanFact, error)
}

type acceptedPlansReader interface {
	GetAcceptedPlans(ctx context.Context, trainerID int64) ([]string, error)
}

type PlanGate struct {
	plans    activePlanReader
	accepted acceptedPlansReader
}

func NewPlanGate(plans activePlanReader, accepted acceptedPlansReader) *PlanGate {
	return &PlanGate{plans: plans, accepted: accepted}
}

// PlanDecision is the outcome of comparing a member's plan with a trainer's
// accepted set. Gated is false when the trainer accepts no plans at all.
type PlanDecision struct {
	Allowed       bool
	Gated         bool
	MemberPlan    *string
	AcceptedPlans []string
}

func (g *PlanGate) Evaluate(ctx context.Context, userID, trainerID int64) (PlanDecision, error) {
	accepted, err := g.accepted.GetAcceptedPlans(ctx, trainerID)
	if err != nil {
		return PlanDecision{}, err
	}
	plan, err := g.plans.GetActivePlan(ctx, userID)
	if err != nil {
		return PlanDecision{}, err
	}

	decision := PlanDecision{
		Gated:         len(accepted) > 0,
		AcceptedPlans: accepted,
	}
	if plan == nil || !plan.IsActive {
		return decision, nil
	}
	name := plan.PlanName
	decision.MemberPlan = &name
	decision.Allowed = planAccepted(name, accepted)
	return decision, nil
}

// CanJoin is the strict gate: no active plan or an empty accepted set
// both deny.
func (g *PlanGate) CanJoin(ctx context.Context, userID, trainerID int64) (bool, error) {
	decision, err := g.Evaluate(ctx, userID, trainerID)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

func planAccepted(planName string, accepted []string) bool {
	name := normalizePlanName(planName)
	if name == "" {
		return false
	}
	for _, candidate := range accepted {
		if normalizePlanName(candidate) == name {
			return true
		}
	}
	return false
}

func normalizePlanName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
