package domain

import "errors"

// Common validation errors for Plan
var (
	ErrEmptyPlan        = errors.New("plan must contain at least one day")
	ErrEmptyPlanDay     = errors.New("plan day must contain at least one place")
	ErrInvalidPlanPlace = errors.New("plan place is missing required fields")
)

// Plan is the structured day-by-day itinerary produced by the generation
// provider. Days and places keep the order the provider returned them in.
type Plan struct {
	Days []PlanDay `json:"days"`
}

// PlanDay is one day of the itinerary.
type PlanDay struct {
	Day    int         `json:"day"`
	Places []PlanPlace `json:"places"`
}

// PlanPlace is a single attraction within a day.
type PlanPlace struct {
	Name        string `json:"name"`
	TimeToSpend string `json:"timeToSpend"`
	Address     string `json:"address"`
	ThingsToDo  string `json:"thingsToDo"`
}

// Validate checks that the plan is structurally usable: at least one day,
// each day has at least one place, and every place names itself and what to
// do there. A plan that fails validation is treated as a generation failure,
// never persisted.
func (p *Plan) Validate() error {
	if len(p.Days) == 0 {
		return ErrEmptyPlan
	}

	for _, day := range p.Days {
		if len(day.Places) == 0 {
			return ErrEmptyPlanDay
		}
		for _, place := range day.Places {
			if place.Name == "" || place.ThingsToDo == "" {
				return ErrInvalidPlanPlace
			}
		}
	}

	return nil
}
