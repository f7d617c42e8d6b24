package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/GymSessionsBack/internal/models"
)

// PlanRepository reads the plan projections maintained by the payments
// and trainer-profile services. It never writes them.
type PlanRepository struct {
	db DBTX
}

func NewPlanRepository(db DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetActivePlan returns nil, nil when the member holds no active plan.
func (r *PlanRepository) GetActivePlan(ctx context.Context, userID int64) (*models.PricingPlanFact, error) {
	query := `
		SELECT user_id, plan_name, is_active
		FROM member_plans
		WHERE user_id = $1 AND is_active
	`
	var plan models.PricingPlanFact
	err := r.db.QueryRow(ctx, query, userID).Scan(&plan.UserID, &plan.PlanName, &plan.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) GetAcceptedPlans(ctx context.Context, trainerID int64) ([]string, error) {
	query := `
		SELECT plan_name
		FROM trainer_accepted_plans
		WHERE trainer_id = $1
		ORDER BY plan_name ASC
	`
	rows, err := r.db.Query(ctx, query, trainerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		plans = append(plans, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}
