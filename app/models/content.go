package models

import "time"

const (
	ResourceTypeCategory = "category"
	ResourceTypePage     = "page"
	ResourceTypePost     = "post"
)

// ContentResource mirrors the protected resources of the external content
// store (categories, pages, posts). Only existence and type are relevant to
// validation.
type ContentResource struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"type:varchar(20);not null;index" json:"type"`
	Title     string    `gorm:"type:varchar(191)" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ContentRestriction limits a resource to members of a plan. Restrictions are
// additive; the unique index makes repeated inserts no-ops.
type ContentRestriction struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	ResourceID uint `gorm:"not null;index:ux_content_restrictions,unique,priority:1" json:"resource_id"`
	PlanID     uint `gorm:"not null;index:ux_content_restrictions,unique,priority:2" json:"plan_id"`
}
