// Package engine 提供两阶段排班优化引擎（贪心分配 + 回溯修复）
package engine

import (
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/rule"
)

// 适配分调整项
const (
	scoreBaseline = 50

	scorePreferredRole = 25

	experienceHighShifts = 5 // 超过此数视为熟悉科室
	scoreExperienceHigh  = 20
	scoreExperienceSome  = 10

	workloadLightShifts  = 10
	workloadMediumShifts = 15
	workloadHeavyShifts  = 20
	scoreWorkloadLight   = 15
	scoreWorkloadMedium  = 10
	scoreWorkloadHeavy   = -20

	scoreFatigueAtCap   = -30
	scoreFatigueNearCap = -15
)

// Scorer 适配度评分器
// 对 (员工, 槽位请求) 输出 0-100 的启发式适配分，纯函数、无副作用
type Scorer struct {
	cfg *Config
}

// NewScorer 创建评分器
func NewScorer(cfg *Config) *Scorer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Scorer{cfg: cfg}
}

// Score 计算适配分
// 校验结果中存在时间冲突/休息不足类硬违反时强制置零
func (s *Scorer) Score(bc *BatchContext, emp *model.Employee, req *model.SlotRequest, res *rule.Result) int {
	if res != nil && res.HasAvailabilityConflict() {
		return 0
	}

	score := scoreBaseline

	// 角色偏好
	if req.PrefersRole(emp.Role) {
		score += scorePreferredRole
	}

	// 科室经验
	experience := bc.LocationExperience(emp.ID, req.Location)
	switch {
	case experience > experienceHighShifts:
		score += scoreExperienceHigh
	case experience >= 1:
		score += scoreExperienceSome
	}

	// 工作量平衡
	monthShifts := bc.MonthCount(emp.ID, model.MonthOf(req.Date))
	switch {
	case monthShifts < workloadLightShifts:
		score += scoreWorkloadLight
	case monthShifts < workloadMediumShifts:
		score += scoreWorkloadMedium
	case monthShifts > workloadHeavyShifts:
		score += scoreWorkloadHeavy
	}

	// 疲劳度
	consecutive := bc.ConsecutiveDaysBefore(emp.ID, req.Date)
	maxDays := s.cfg.Rule.MaxConsecutiveDays
	switch {
	case consecutive >= maxDays:
		score += scoreFatigueAtCap
	case consecutive == maxDays-1:
		score += scoreFatigueNearCap
	}

	return clampScore(score)
}

// Eligible 检查候选人是否可进入贪心选择
func (s *Scorer) Eligible(score int, res *rule.Result) bool {
	return res != nil && res.Valid && score >= s.cfg.ScoreThreshold
}

// clampScore 将分数收敛到 [0,100]
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
