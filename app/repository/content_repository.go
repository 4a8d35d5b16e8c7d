package repository

import (
	"errors"

	"github.com/ManuelReschke/PlanFox/app/models"
	"gorm.io/gorm"
)

// contentRepository implements the ContentRepository interface
type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository instance
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

// ResourceExists reports whether a resource with the given id and type exists
func (r *contentRepository) ResourceExists(id uint, resourceType string) (bool, error) {
	var count int64
	err := r.db.Model(&models.ContentResource{}).
		Where("id = ? AND type = ?", id, resourceType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddRestriction extends the restriction set of a resource with a plan.
// Existing restrictions are never replaced; duplicates are no-ops.
func (r *contentRepository) AddRestriction(resourceID, planID uint) error {
	err := r.db.Create(&models.ContentRestriction{
		ResourceID: resourceID,
		PlanID:     planID,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// RestrictedPlans returns the plan ids a resource is restricted to
func (r *contentRepository) RestrictedPlans(resourceID uint) ([]uint, error) {
	var planIDs []uint
	err := r.db.Model(&models.ContentRestriction{}).
		Where("resource_id = ?", resourceID).
		Order("plan_id").
		Pluck("plan_id", &planIDs).Error
	return planIDs, err
}
