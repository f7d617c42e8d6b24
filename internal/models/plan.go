package models

// PricingPlanFact is the payments side's projection of a member's plan.
type PricingPlanFact struct {
	UserID   int64  `json:"user_id"`
	PlanName string `json:"plan_name"`
	IsActive bool   `json:"is_active"`
}

type Eligibility struct {
	SessionID     int64    `json:"session_id"`
	CanJoin       bool     `json:"can_join"`
	PlanGated     bool     `json:"plan_gated"`
	MemberPlan    *string  `json:"member_plan,omitempty"`
	AcceptedPlans []string `json:"accepted_plans"`
}
