package stats

import (
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

func employee(name string) *model.Employee {
	return &model.Employee{
		BaseModel: model.BaseModel{ID: uuid.New()},
		Name:      name,
		Role:      model.RoleNurse,
		Status:    "active",
	}
}

func TestAnalyze_EqualDistribution(t *testing.T) {
	empA := employee("护士A")
	empB := employee("护士B")
	empC := employee("护士C")

	counts := map[uuid.UUID]int{empA.ID: 5, empB.ID: 5, empC.ID: 5}
	nights := map[uuid.UUID]int{empA.ID: 1, empB.ID: 1, empC.ID: 1}

	metrics := NewFairnessAnalyzer().Analyze([]*model.Employee{empA, empB, empC}, counts, nights)

	if metrics.ShiftGini != 0 {
		t.Errorf("Expected gini 0 for equal distribution, got %.4f", metrics.ShiftGini)
	}
	if metrics.NightShiftGini != 0 {
		t.Errorf("Expected night gini 0, got %.4f", metrics.NightShiftGini)
	}
	if metrics.ShiftStdDev != 0 {
		t.Errorf("Expected std dev 0, got %.4f", metrics.ShiftStdDev)
	}
	if metrics.AvgShiftsPerEmployee != 5 {
		t.Errorf("Expected average 5, got %.1f", metrics.AvgShiftsPerEmployee)
	}
	if metrics.OverallFairnessScore != 100 {
		t.Errorf("Expected fairness score 100, got %.1f", metrics.OverallFairnessScore)
	}
}

func TestAnalyze_SkewedDistribution(t *testing.T) {
	empA := employee("护士A")
	empB := employee("护士B")

	counts := map[uuid.UUID]int{empA.ID: 10, empB.ID: 0}
	metrics := NewFairnessAnalyzer().Analyze([]*model.Employee{empA, empB}, counts, map[uuid.UUID]int{})

	// 两人中一人独占全部班次：基尼系数 0.5
	if math.Abs(metrics.ShiftGini-0.5) > 1e-9 {
		t.Errorf("Expected gini 0.5, got %.4f", metrics.ShiftGini)
	}
	if metrics.MaxShifts != 10 || metrics.MinShifts != 0 {
		t.Errorf("Expected max 10 / min 0, got %d / %d", metrics.MaxShifts, metrics.MinShifts)
	}
	if metrics.OverallFairnessScore != 50 {
		t.Errorf("Expected fairness score 50, got %.1f", metrics.OverallFairnessScore)
	}

	// 偏差百分比：平均5，A +100%，B -100%
	for _, s := range metrics.EmployeeStats {
		switch s.EmployeeID {
		case empA.ID:
			if s.Deviation != 100 {
				t.Errorf("Expected deviation +100 for A, got %.1f", s.Deviation)
			}
		case empB.ID:
			if s.Deviation != -100 {
				t.Errorf("Expected deviation -100 for B, got %.1f", s.Deviation)
			}
		}
	}
}

func TestAnalyze_EmptyPool(t *testing.T) {
	metrics := NewFairnessAnalyzer().Analyze(nil, nil, nil)
	if metrics.OverallFairnessScore != 100 {
		t.Errorf("Expected perfect score for empty pool, got %.1f", metrics.OverallFairnessScore)
	}
	if len(metrics.EmployeeStats) != 0 {
		t.Errorf("Expected no employee stats, got %d", len(metrics.EmployeeStats))
	}
}

func TestRecommendations(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	// 均衡分布不触发建议
	empA := employee("护士A")
	empB := employee("护士B")
	even := analyzer.Analyze([]*model.Employee{empA, empB},
		map[uuid.UUID]int{empA.ID: 5, empB.ID: 5}, map[uuid.UUID]int{})
	if recs := analyzer.Recommendations(even); len(recs) != 0 {
		t.Errorf("Expected no recommendations for even spread, got %v", recs)
	}

	// 严重倾斜触发基尼与低负载建议
	empC := employee("护士C")
	skewed := analyzer.Analyze([]*model.Employee{empA, empB, empC},
		map[uuid.UUID]int{empA.ID: 10, empB.ID: 0, empC.ID: 0},
		map[uuid.UUID]int{empA.ID: 4})
	recs := analyzer.Recommendations(skewed)
	if len(recs) == 0 {
		t.Fatal("Expected recommendations for skewed distribution")
	}

	joined := strings.Join(recs, "\n")
	if !strings.Contains(joined, "护士B") {
		t.Errorf("Light-load employee should be named, got %v", recs)
	}
	if !strings.Contains(joined, "夜间班次") {
		t.Errorf("Night shift concentration should be flagged, got %v", recs)
	}
}
