// Package scoring turns a Profile into a ReadinessScore.
//
// The four sub-scores are bucketed sums over fixed thresholds and the
// overall score is their weighted mean:
//
//	overall = round(0.30*finance + 0.25*coverage + 0.25*health + 0.20*planning)
//
// Compute never fails. Unknown categorical answers land in a default
// bucket so callers always get a number back.
package scoring

import (
	"nest-readiness/internal/models"
)

// Weights in percent; they sum to 100.
const (
	WeightFinance  = 30
	WeightCoverage = 25
	WeightHealth   = 25
	WeightPlanning = 20
)

const (
	MinScore = 0
	MaxScore = 100

	uninsuredCoverage   = 20
	insuredBaseCoverage = 50
	perInsuranceType    = 15
	maxInsuranceBonus   = 50
	defaultHealthScore  = 50
	pointsPerConfidence = 20
	retirementAge       = 65
)

// Compute scores p. It has no side effects and the same profile always
// yields the same score.
func Compute(p models.Profile) models.ReadinessScore {
	finance := FinanceScore(p)
	coverage := CoverageScore(p)
	health := HealthScore(p.HealthStatus)
	planning := PlanningScore(p.PlanningConfidence)

	overall := Overall(finance, coverage, health, planning)

	return models.ReadinessScore{
		Finance:  finance,
		Coverage: coverage,
		Health:   health,
		Planning: planning,
		Overall:  overall,
		Level:    ClassifyLevel(overall),
	}
}

// FinanceScore adds income, pension savings and age contributions.
func FinanceScore(p models.Profile) int {
	score := 0

	// Monthly income (max 40 points)
	switch {
	case p.IncomeRange >= 3000:
		score += 40
	case p.IncomeRange >= 2000:
		score += 30
	default:
		score += 20
	}

	// Pension savings (max 40 points)
	switch {
	case p.PensionSavings >= 100000:
		score += 40
	case p.PensionSavings >= 50000:
		score += 30
	case p.PensionSavings >= 20000:
		score += 20
	default:
		score += 10
	}

	// Years left before retirement age (max 20 points)
	if p.Age < retirementAge {
		score += 20
	} else {
		score += 10
	}

	return clamp(score, MinScore, MaxScore)
}

// CoverageScore is a flat 20 without insurance, otherwise 50 plus 15 per
// distinct insurance type capped at +50.
func CoverageScore(p models.Profile) int {
	if !p.HasInsurance {
		return uninsuredCoverage
	}
	bonus := perInsuranceType * len(models.UniqueInsuranceTypes(p.InsuranceTypes))
	if bonus > maxInsuranceBonus {
		bonus = maxInsuranceBonus
	}
	return clamp(insuredBaseCoverage+bonus, MinScore, MaxScore)
}

// HealthScore maps the self-reported status; anything unrecognised scores 50.
func HealthScore(status models.HealthStatus) int {
	switch status {
	case models.HealthExcellent:
		return 90
	case models.HealthGood:
		return 75
	case models.HealthOkay:
		return 60
	case models.HealthNeedsHelp:
		return 40
	default:
		return defaultHealthScore
	}
}

func PlanningScore(confidence int) int {
	return clamp(confidence*pointsPerConfidence, MinScore, MaxScore)
}

// Overall combines clamped sub-scores with round-half-up, in integer
// arithmetic so .5 boundaries are exact.
func Overall(finance, coverage, health, planning int) int {
	weighted := WeightFinance*clamp(finance, MinScore, MaxScore) +
		WeightCoverage*clamp(coverage, MinScore, MaxScore) +
		WeightHealth*clamp(health, MinScore, MaxScore) +
		WeightPlanning*clamp(planning, MinScore, MaxScore)
	return clamp((weighted+50)/100, MinScore, MaxScore)
}

func ClassifyLevel(overall int) models.ReadinessLevel {
	switch {
	case overall >= 80:
		return models.LevelOnTrack
	case overall >= 60:
		return models.LevelSteady
	case overall >= 40:
		return models.LevelNeedsAttention
	default:
		return models.LevelAtRisk
	}
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
