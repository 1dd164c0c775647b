// internal/models/profile.go
package models

import "sort"

type LivingSituation string

const (
	LivingAlone          LivingSituation = "alone"
	LivingWithPartner    LivingSituation = "with-partner"
	LivingWithFamily     LivingSituation = "with-family"
	LivingAssistedLiving LivingSituation = "assisted-living"
	LivingOther          LivingSituation = "other"
)

type MaritalStatus string

const (
	MaritalSingle    MaritalStatus = "single"
	MaritalMarried   MaritalStatus = "married"
	MaritalPartnered MaritalStatus = "partnered"
	MaritalDivorced  MaritalStatus = "divorced"
	MaritalWidowed   MaritalStatus = "widowed"
)

type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthOkay      HealthStatus = "okay"
	HealthNeedsHelp HealthStatus = "needs-help"
)

type InsuranceType string

const (
	InsuranceHealth       InsuranceType = "health"
	InsuranceLife         InsuranceType = "life"
	InsuranceLongTermCare InsuranceType = "long-term-care"
	InsuranceDisability   InsuranceType = "disability"
	InsuranceHome         InsuranceType = "home"
	InsuranceSupplemental InsuranceType = "supplemental"
)

// Planning confidence scale. Zero means the question was not answered yet.
const (
	MinPlanningConfidence = 1
	MaxPlanningConfidence = 5
)

// Profile holds the answers a user gives during onboarding and the
// readiness flow. IncomeRange is a monthly estimate.
type Profile struct {
	Age                int             `json:"age"`
	LivingSituation    LivingSituation `json:"livingSituation,omitempty"`
	MaritalStatus      MaritalStatus   `json:"maritalStatus,omitempty"`
	IncomeRange        float64         `json:"incomeRange"`
	PensionSavings     float64         `json:"pensionSavings"`
	HouseholdSavings   float64         `json:"householdSavings"`
	HasInsurance       bool            `json:"hasInsurance"`
	InsuranceTypes     []InsuranceType `json:"insuranceTypes"`
	HealthStatus       HealthStatus    `json:"healthStatus,omitempty"`
	PlanningConfidence int             `json:"planningConfidence"`
}

// Normalize returns a copy of p that satisfies the profile invariants:
// numeric fields are non-negative, an answered planning confidence sits on
// the 1-5 scale and insurance types are unique and sorted.
func (p Profile) Normalize() Profile {
	out := p
	if out.Age < 0 {
		out.Age = 0
	}
	out.IncomeRange = nonNegative(out.IncomeRange)
	out.PensionSavings = nonNegative(out.PensionSavings)
	out.HouseholdSavings = nonNegative(out.HouseholdSavings)

	switch {
	case out.PlanningConfidence <= 0:
		out.PlanningConfidence = 0
	case out.PlanningConfidence > MaxPlanningConfidence:
		out.PlanningConfidence = MaxPlanningConfidence
	}

	out.InsuranceTypes = UniqueInsuranceTypes(p.InsuranceTypes)
	return out
}

// NormalizeComplete normalizes a finished readiness profile. Planning
// confidence is required there, so a missing answer becomes the bottom of
// the scale.
func (p Profile) NormalizeComplete() Profile {
	out := p.Normalize()
	if out.PlanningConfidence < MinPlanningConfidence {
		out.PlanningConfidence = MinPlanningConfidence
	}
	return out
}

// UniqueInsuranceTypes drops blanks and duplicates and sorts the result.
// It never returns nil so the JSON form is always an array.
func UniqueInsuranceTypes(types []InsuranceType) []InsuranceType {
	seen := make(map[InsuranceType]struct{}, len(types))
	out := make([]InsuranceType, 0, len(types))
	for _, t := range types {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func nonNegative(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	return v
}
