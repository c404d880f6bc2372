package types

// Plan is a subscription tier.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanPro     Plan = "pro"
	PlanPremium Plan = "premium"
)

var planLimits = map[Plan]int{
	PlanFree:    3,
	PlanBasic:   10,
	PlanPro:     30,
	PlanPremium: 50,
}

// LimitForPlan returns the daily recipe allowance of plan. Unknown plans get
// zero.
func LimitForPlan(plan Plan) int {
	return planLimits[plan]
}

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	_, ok := planLimits[p]
	return ok
}
