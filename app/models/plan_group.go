package models

import (
	"strings"
	"time"
)

// GroupSeparator splits a plan name into its group prefix and the tier part,
// e.g. "Gold - Monthly" belongs to group "Gold".
const GroupSeparator = " - "

// PlanGroup is a named bucket of plans, created lazily on first use.
type PlanGroup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// PlanGroupLink associates a plan with its group. The unique index keeps the
// link idempotent.
type PlanGroupLink struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	GroupID uint `gorm:"not null;index:ux_plan_group_links,unique,priority:1" json:"group_id"`
	PlanID  uint `gorm:"not null;index:ux_plan_group_links,unique,priority:2" json:"plan_id"`
}

// ExtractGroupName returns the trimmed prefix before the first group
// separator, or "" when the name carries no group.
func ExtractGroupName(planName string) string {
	if !strings.Contains(planName, GroupSeparator) {
		return ""
	}
	parts := strings.SplitN(planName, GroupSeparator, 2)
	return strings.TrimSpace(parts[0])
}
