// Package models defines the data models for the affiliate program API.
package models

// PlanID identifies a purchasable affiliate plan.
type PlanID string

const (
	PlanStandard PlanID = "standard"
	PlanPremium  PlanID = "premium"
)

// Plan describes a plan in the static catalog. Prices are in cents.
type Plan struct {
	ID           PlanID   `json:"id"`
	Name         string   `json:"name"`
	Price        int64    `json:"price"`
	PriceDisplay string   `json:"price_display"`
	Features     []string `json:"features"`
	Excluded     []string `json:"excluded,omitempty"`
}

// plans is the static plan catalog. There is no database table behind it;
// plan contents only change with a deploy.
var plans = map[PlanID]Plan{
	PlanStandard: {
		ID:           PlanStandard,
		Name:         "Standard Plan",
		Price:        50000,
		PriceDisplay: "$500",
		Features: []string{
			"Hotels",
			"Car Rentals",
			"Flights",
			"Buy Now Pay Later (BNPL)",
			"Built-in CRM",
			"Deals & Proposals",
			"Track User Activity",
			"Secured User Flow",
			"Multi-Currency",
			"Crypto Payments",
		},
		Excluded: []string{"Activities", "Resorts", "Cruises"},
	},
	PlanPremium: {
		ID:           PlanPremium,
		Name:         "Premium Plan",
		Price:        100000,
		PriceDisplay: "$1,000",
		Features: []string{
			"Activities",
			"Resorts",
			"Cruises",
		},
	},
}

// PlanByID looks up a plan in the catalog.
func PlanByID(id PlanID) (Plan, bool) {
	p, ok := plans[id]
	return p, ok
}

// AllPlans returns the catalog in a stable order.
func AllPlans() []Plan {
	return []Plan{plans[PlanStandard], plans[PlanPremium]}
}

// ValidPlanID reports whether id names a catalog plan.
func ValidPlanID(id PlanID) bool {
	_, ok := plans[id]
	return ok
}
