package repository

import (
	"errors"

	"github.com/ManuelReschke/PlanFox/app/models"
	"gorm.io/gorm"
)

// planRepository implements the PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// Create creates a new plan in the database
func (r *planRepository) Create(plan *models.Plan) error {
	return r.db.Create(plan).Error
}

// GetByID retrieves a plan by its ID
func (r *planRepository) GetByID(id uint) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindMatching returns the plan whose matching-key tuple exactly equals the
// normalized params, or nil when no such plan exists. Exact equality only;
// decimals are compared as stored, strings including case.
func (r *planRepository) FindMatching(params models.PlanParams) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.Where(
		"name = ? AND billing_amount = ? AND cycle_number = ? AND cycle_period = ? AND initial_payment = ? AND trial_amount = ? AND trial_limit = ? AND billing_limit = ? AND expiration_number = ? AND expiration_period = ?",
		params.Name,
		params.BillingAmount,
		params.CycleNumber,
		params.CyclePeriod,
		params.InitialPayment,
		params.TrialAmount,
		params.TrialLimit,
		params.BillingLimit,
		params.ExpirationNumber,
		params.ExpirationPeriod,
	).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// Update updates an existing plan
func (r *planRepository) Update(plan *models.Plan) error {
	return r.db.Save(plan).Error
}

// Delete deletes a plan by ID
func (r *planRepository) Delete(id uint) error {
	return r.db.Delete(&models.Plan{}, id).Error
}

// List retrieves plans with pagination
func (r *planRepository) List(offset, limit int) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Offset(offset).Limit(limit).Order("id DESC").Find(&plans).Error
	return plans, err
}

// Count returns the total number of plans
func (r *planRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Plan{}).Count(&count).Error
	return count, err
}
