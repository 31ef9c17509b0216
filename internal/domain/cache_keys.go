package domain

import "github.com/google/uuid"

// FloorPlanCacheKey addresses a whole floor plan.
func FloorPlanCacheKey(floorPlanID uuid.UUID) string {
	return "cache:floor_plan:" + floorPlanID.String()
}

// FloorPlanListCacheKey addresses the list of a tenant's floor plans.
func FloorPlanListCacheKey(tenantID uuid.UUID) string {
	return "cache:all_floor_plans:" + tenantID.String()
}

// FloorPlanStatusCacheKey addresses the live occupancy view of a floor plan.
func FloorPlanStatusCacheKey(floorPlanID uuid.UUID) string {
	return "cache:floor_plan_status:" + floorPlanID.String()
}
