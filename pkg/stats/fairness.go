// Package stats 提供排班公平性统计分析
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

// EmployeeStat 员工负载统计
type EmployeeStat struct {
	EmployeeID   uuid.UUID `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	ShiftCount   int       `json:"shift_count"`
	NightShifts  int       `json:"night_shifts"`
	Deviation    float64   `json:"deviation"` // 与平均值的偏差百分比
}

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	ShiftGini            float64        `json:"shift_gini"`      // 班次基尼系数 (0=完全公平)
	ShiftStdDev          float64        `json:"shift_std_dev"`   // 班次标准差
	AvgShiftsPerEmployee float64        `json:"avg_shifts_per_employee"`
	MaxShifts            int            `json:"max_shifts"`
	MinShifts            int            `json:"min_shifts"`
	NightShiftGini       float64        `json:"night_shift_gini"`
	EmployeeStats        []EmployeeStat `json:"employee_stats"`
	OverallFairnessScore float64        `json:"overall_fairness_score"` // 0-100
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 基于员工池与月度班次计数计算公平性指标
func (a *FairnessAnalyzer) Analyze(employees []*model.Employee, monthCounts map[uuid.UUID]int, nightCounts map[uuid.UUID]int) *FairnessMetrics {
	metrics := &FairnessMetrics{
		EmployeeStats: make([]EmployeeStat, 0, len(employees)),
	}
	if len(employees) == 0 {
		metrics.OverallFairnessScore = 100
		return metrics
	}

	counts := make([]float64, 0, len(employees))
	nights := make([]float64, 0, len(employees))
	total := 0
	minShifts := math.MaxInt
	maxShifts := 0

	for _, e := range employees {
		c := monthCounts[e.ID]
		counts = append(counts, float64(c))
		nights = append(nights, float64(nightCounts[e.ID]))
		total += c
		if c < minShifts {
			minShifts = c
		}
		if c > maxShifts {
			maxShifts = c
		}
	}

	avg := float64(total) / float64(len(employees))
	metrics.AvgShiftsPerEmployee = avg
	metrics.MaxShifts = maxShifts
	metrics.MinShifts = minShifts
	metrics.ShiftGini = gini(counts)
	metrics.ShiftStdDev = stdDev(counts, avg)
	metrics.NightShiftGini = gini(nights)

	for _, e := range employees {
		c := monthCounts[e.ID]
		deviation := 0.0
		if avg > 0 {
			deviation = (float64(c) - avg) / avg * 100
		}
		metrics.EmployeeStats = append(metrics.EmployeeStats, EmployeeStat{
			EmployeeID:   e.ID,
			EmployeeName: e.Name,
			ShiftCount:   c,
			NightShifts:  nightCounts[e.ID],
			Deviation:    deviation,
		})
	}

	// 综合评分：基尼系数越低越公平
	score := 100 * (1 - metrics.ShiftGini)
	if score < 0 {
		score = 0
	}
	metrics.OverallFairnessScore = score

	return metrics
}

// Recommendations 基于指标生成排班建议
func (a *FairnessAnalyzer) Recommendations(metrics *FairnessMetrics) []string {
	recs := make([]string, 0)

	if metrics.ShiftGini > 0.3 {
		recs = append(recs, fmt.Sprintf("班次分布不均（基尼系数 %.2f），建议优先向低负载员工分配", metrics.ShiftGini))
	}

	// 找出低负载员工
	var light []string
	for _, s := range metrics.EmployeeStats {
		if s.Deviation < -30 {
			light = append(light, s.EmployeeName)
		}
	}
	sort.Strings(light)
	if len(light) > 0 && len(light) <= 5 {
		recs = append(recs, fmt.Sprintf("员工负载明显低于平均，可承接更多班次: %v", light))
	}

	if metrics.NightShiftGini > 0.5 {
		recs = append(recs, fmt.Sprintf("夜间班次集中于少数员工（基尼系数 %.2f），建议轮换", metrics.NightShiftGini))
	}

	return recs
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum, weighted float64
	for i, v := range sorted {
		sum += v
		weighted += v * float64(i+1)
	}
	if sum == 0 {
		return 0
	}

	return (2*weighted)/(float64(n)*sum) - float64(n+1)/float64(n)
}

// stdDev 计算标准差
func stdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}
