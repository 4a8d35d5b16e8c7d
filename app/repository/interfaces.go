package repository

import (
	"time"

	"github.com/ManuelReschke/PlanFox/app/models"
	"gorm.io/gorm"
)

// PlanRepository defines the interface for plan-related database operations
type PlanRepository interface {
	Create(plan *models.Plan) error
	GetByID(id uint) (*models.Plan, error)
	FindMatching(params models.PlanParams) (*models.Plan, error)
	Update(plan *models.Plan) error
	Delete(id uint) error
	List(offset, limit int) ([]models.Plan, error)
	Count() (int64, error)
}

// GroupRepository defines the interface for plan group operations
type GroupRepository interface {
	GetByName(name string) (*models.PlanGroup, error)
	Create(group *models.PlanGroup) error
	FindOrCreate(name string) (*models.PlanGroup, error)
	LinkPlan(groupID, planID uint) error
	PlansInGroup(groupID uint) ([]models.Plan, error)
}

// ContentRepository defines the interface for protected-resource operations
type ContentRepository interface {
	ResourceExists(id uint, resourceType string) (bool, error)
	AddRestriction(resourceID, planID uint) error
	RestrictedPlans(resourceID uint) ([]uint, error)
}

// TokenRepository defines the interface for access token persistence
type TokenRepository interface {
	Create(token *models.AccessToken) error
	GetByID(id string) (*models.AccessToken, error)
	GetAll() ([]models.AccessToken, error)
	Update(token *models.AccessToken) error
	Delete(id string) (bool, error)
	TouchLastUsed(id string, when time.Time) error
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Plan    PlanRepository
	Group   GroupRepository
	Content ContentRepository
	Token   TokenRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Plan:    NewPlanRepository(db),
		Group:   NewGroupRepository(db),
		Content: NewContentRepository(db),
		Token:   NewTokenRepository(db),
	}
}
