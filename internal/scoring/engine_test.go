package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/observability"
	"nest-readiness/internal/models"
)

func referenceProfile() models.Profile {
	return models.Profile{
		Age:                65,
		IncomeRange:        2000,
		PensionSavings:     50000,
		HasInsurance:       true,
		InsuranceTypes:     []models.InsuranceType{models.InsuranceLife, models.InsuranceHealth},
		HealthStatus:       models.HealthGood,
		PlanningConfidence: 3,
	}
}

func TestCompute_ReferenceScenario(t *testing.T) {
	got := Compute(referenceProfile())

	assert.Equal(t, models.ReadinessScore{
		Finance:  70,
		Coverage: 80,
		Health:   75,
		Planning: 60,
		Overall:  72,
		Level:    models.LevelSteady,
	}, got)
}

func TestCompute_Deterministic(t *testing.T) {
	p := referenceProfile()
	assert.Equal(t, Compute(p), Compute(p))
}

func TestFinanceScore(t *testing.T) {
	tests := []struct {
		name    string
		income  float64
		pension float64
		age     int
		want    int
	}{
		{"lowest buckets", 0, 0, 70, 40},
		{"income 2000 savings 20000", 2000, 20000, 64, 70},
		{"income 2999 savings 49999", 2999, 49999, 65, 60},
		{"top buckets", 3000, 100000, 40, 100},
		{"just below every threshold", 1999.99, 19999.99, 65, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FinanceScore(models.Profile{IncomeRange: tt.income, PensionSavings: tt.pension, Age: tt.age})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFinanceScore_Monotonic(t *testing.T) {
	amounts := []float64{0, 1000, 1999, 2000, 2500, 3000, 10000, 19999, 20000, 49999, 50000, 99999, 100000, 1e7}
	for _, age := range []int{50, 65, 80} {
		prev := -1
		for _, income := range amounts {
			got := FinanceScore(models.Profile{Age: age, IncomeRange: income, PensionSavings: 30000})
			assert.GreaterOrEqual(t, got, prev, "income %v age %d", income, age)
			prev = got
		}
		prev = -1
		for _, savings := range amounts {
			got := FinanceScore(models.Profile{Age: age, IncomeRange: 2500, PensionSavings: savings})
			assert.GreaterOrEqual(t, got, prev, "savings %v age %d", savings, age)
			prev = got
		}
	}
}

func TestCoverageScore(t *testing.T) {
	all := []models.InsuranceType{
		models.InsuranceHealth, models.InsuranceLife, models.InsuranceLongTermCare,
		models.InsuranceDisability, models.InsuranceHome, models.InsuranceSupplemental,
	}

	tests := []struct {
		name  string
		has   bool
		types []models.InsuranceType
		want  int
	}{
		{"uninsured without types", false, nil, 20},
		{"uninsured ignores listed types", false, all, 20},
		{"insured without types", true, nil, 50},
		{"one type", true, all[:1], 65},
		{"duplicates count once", true, []models.InsuranceType{"life", "life", "health"}, 80},
		{"three types", true, all[:3], 95},
		{"bonus capped", true, all, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoverageScore(models.Profile{HasInsurance: tt.has, InsuranceTypes: tt.types}))
		})
	}
}

func TestHealthScore(t *testing.T) {
	tests := map[models.HealthStatus]int{
		models.HealthExcellent: 90,
		models.HealthGood:      75,
		models.HealthOkay:      60,
		models.HealthNeedsHelp: 40,
		"":                     50,
		"fantastic":            50,
	}
	for status, want := range tests {
		assert.Equal(t, want, HealthScore(status), "status %q", status)
	}
}

func TestPlanningScore(t *testing.T) {
	tests := []struct{ in, want int }{
		{-1, 0}, {0, 0}, {1, 20}, {3, 60}, {5, 100}, {9, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlanningScore(tt.in), "confidence %d", tt.in)
	}
}

func TestOverall_RoundsHalfUp(t *testing.T) {
	// 0.25*2 = 0.5
	assert.Equal(t, 1, Overall(0, 2, 0, 0))
	// 0.30*1 = 0.3
	assert.Equal(t, 0, Overall(1, 0, 0, 0))
	assert.Equal(t, 100, Overall(100, 100, 100, 100))
	assert.Equal(t, 100, Overall(500, 500, 500, 500))
	assert.Equal(t, 0, Overall(-10, -10, -10, -10))
}

func TestCompute_RangeInvariant(t *testing.T) {
	healths := []models.HealthStatus{models.HealthExcellent, models.HealthNeedsHelp, "unknown"}
	for _, age := range []int{0, 50, 64, 65, 90, 200} {
		for _, money := range []float64{-5, 0, 2500, 1e9} {
			for _, conf := range []int{-3, 0, 1, 5, 50} {
				for _, h := range healths {
					for _, insured := range []bool{true, false} {
						s := Compute(models.Profile{
							Age:                age,
							IncomeRange:        money,
							PensionSavings:     money,
							HasInsurance:       insured,
							InsuranceTypes:     []models.InsuranceType{"life", "home", "health", "disability"},
							HealthStatus:       h,
							PlanningConfidence: conf,
						})
						for _, v := range []int{s.Finance, s.Coverage, s.Health, s.Planning, s.Overall} {
							assert.GreaterOrEqual(t, v, MinScore)
							assert.LessOrEqual(t, v, MaxScore)
						}
					}
				}
			}
		}
	}
}

func TestClassifyLevel(t *testing.T) {
	tests := []struct {
		overall int
		want    models.ReadinessLevel
	}{
		{100, models.LevelOnTrack},
		{80, models.LevelOnTrack},
		{79, models.LevelSteady},
		{60, models.LevelSteady},
		{59, models.LevelNeedsAttention},
		{40, models.LevelNeedsAttention},
		{39, models.LevelAtRisk},
		{0, models.LevelAtRisk},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyLevel(tt.overall), "overall %d", tt.overall)
	}
}

func TestEngine_ScoreNormalizesInput(t *testing.T) {
	e := NewEngine(logger.NewTestLogger(t), observability.Noop())

	p := referenceProfile()
	p.InsuranceTypes = append(p.InsuranceTypes, models.InsuranceLife)
	p.PlanningConfidence = 12

	got := e.Score(context.Background(), p)

	assert.Equal(t, 80, got.Coverage)
	assert.Equal(t, 100, got.Planning)
}

func TestEngine_ScoreTreatsMissingConfidenceAsLowest(t *testing.T) {
	e := NewEngine(logger.NewTestLogger(t), observability.Noop())

	for _, conf := range []int{-1, 0} {
		p := referenceProfile()
		p.PlanningConfidence = conf

		got := e.Score(context.Background(), p)
		assert.Equal(t, 20, got.Planning, "confidence %d", conf)
	}
}
