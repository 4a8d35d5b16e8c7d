package repository

import (
	"errors"

	"github.com/ManuelReschke/PlanFox/app/models"
	"gorm.io/gorm"
)

// groupRepository implements the GroupRepository interface
type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new group repository instance
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

// GetByName retrieves a group by its exact name
func (r *groupRepository) GetByName(name string) (*models.PlanGroup, error) {
	var group models.PlanGroup
	err := r.db.Where("name = ?", name).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Create creates a new plan group
func (r *groupRepository) Create(group *models.PlanGroup) error {
	return r.db.Create(group).Error
}

// FindOrCreate returns the group with the given name, creating it on first
// use. A concurrent create loses the race on the unique name index and falls
// back to re-reading the winner.
func (r *groupRepository) FindOrCreate(name string) (*models.PlanGroup, error) {
	group, err := r.GetByName(name)
	if err == nil {
		return group, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := &models.PlanGroup{Name: name}
	if err := r.db.Create(created).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.GetByName(name)
		}
		return nil, err
	}
	return created, nil
}

// LinkPlan assigns a plan to a group. Linking twice is a no-op.
func (r *groupRepository) LinkPlan(groupID, planID uint) error {
	var count int64
	err := r.db.Model(&models.PlanGroupLink{}).
		Where("group_id = ? AND plan_id = ?", groupID, planID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	err = r.db.Create(&models.PlanGroupLink{GroupID: groupID, PlanID: planID}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// PlansInGroup lists the plans linked to a group
func (r *groupRepository) PlansInGroup(groupID uint) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.
		Joins("JOIN plan_group_links ON plan_group_links.plan_id = plans.id").
		Where("plan_group_links.group_id = ?", groupID).
		Find(&plans).Error
	return plans, err
}
