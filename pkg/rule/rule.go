// Package rule 定义候选人硬/软约束规则与校验器
package rule

import (
	"github.com/yipai/yipai/pkg/model"
)

// Type 规则类型标识
type Type string

const (
	// 硬规则类型（任一违反即排除候选人）
	TypeRoleCompatibility Type = "role_compatibility"
	TypeLocationAccess    Type = "location_access"
	TypeTimeConflict      Type = "time_conflict"
	TypeMinRest           Type = "min_rest"
	TypeConsecutiveDays   Type = "consecutive_days"
	TypeNightShiftWeekly  Type = "night_shift_weekly"
	TypeMonthlyCeiling    Type = "monthly_ceiling"
	TypeLocationCapacity  Type = "location_capacity"

	// 软规则类型（仅产生警告）
	TypeFairness   Type = "fairness"
	TypePreference Type = "preference"
)

// Category 规则类别
type Category string

const (
	CategoryHard Category = "hard" // 硬规则（必须满足）
	CategorySoft Category = "soft" // 软规则（尽量满足）
)

// Violation 规则违反详情
type Violation struct {
	Rule     Type   `json:"rule"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // error/warning
}

// Result 校验结果
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
	Warnings   []Violation `json:"warnings"`
}

// ViolationMessages 返回违反消息列表（顺序与规则评估顺序一致）
func (r *Result) ViolationMessages() []string {
	msgs := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		msgs = append(msgs, v.Message)
	}
	return msgs
}

// WarningMessages 返回警告消息列表
func (r *Result) WarningMessages() []string {
	msgs := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		msgs = append(msgs, w.Message)
	}
	return msgs
}

// Has 检查结果中是否包含某类型的硬违反
func (r *Result) Has(t Type) bool {
	for _, v := range r.Violations {
		if v.Rule == t {
			return true
		}
	}
	return false
}

// HasAvailabilityConflict 检查是否存在时间冲突/休息不足类违反
// 评分器对这类违反强制置零
func (r *Result) HasAvailabilityConflict() bool {
	return r.Has(TypeTimeConflict) || r.Has(TypeMinRest)
}

// Candidate 候选人评估输入
// 由批次上下文构建，规则本身保持纯函数
type Candidate struct {
	Employee *model.Employee
	Request  *model.SlotRequest

	// 员工在相关窗口内的已有班次（含本批次已接受的分配）
	ExistingShifts []*model.Shift

	// 请求日期所在月份的班次数（含本批次）
	MonthShiftCount int

	// 请求日期所在 ISO 周的夜间班次数（含本批次）
	WeekNightCount int

	// 截至请求日期前一天的连续工作天数
	ConsecutiveDays int

	// 团队当月平均班次数
	TeamAverage float64

	// 是否存在生效中的加班豁免
	OverworkOverride bool

	// 请求 (科室, 日期, 班次类型) 的当前占用人数与容量配置
	Occupancy int
	Capacity  *model.LocationCapacity
}

// Config 规则配置
type Config struct {
	MinRestHours          int     `yaml:"min_rest_hours" json:"min_rest_hours"`
	MaxConsecutiveDays    int     `yaml:"max_consecutive_days" json:"max_consecutive_days"`
	MaxNightShiftsPerWeek int     `yaml:"max_night_shifts_per_week" json:"max_night_shifts_per_week"`
	CeilingWarnRatio      float64 `yaml:"ceiling_warn_ratio" json:"ceiling_warn_ratio"`
	FairnessDelta         float64 `yaml:"fairness_delta" json:"fairness_delta"`
}

// DefaultConfig 返回默认规则配置
func DefaultConfig() *Config {
	return &Config{
		MinRestHours:          8,
		MaxConsecutiveDays:    3,
		MaxNightShiftsPerWeek: 2,
		CeilingWarnRatio:      0.9,
		FairnessDelta:         5,
	}
}

// Rule 规则接口
type Rule interface {
	// Type 返回规则类型
	Type() Type

	// Category 返回规则类别
	Category() Category

	// Check 评估候选人，通过时返回 nil
	Check(cand *Candidate, cfg *Config) *Violation
}

// Validator 候选人校验器
// 硬规则相互独立，评估顺序不影响有效性结论，但固定顺序以保证消息稳定
type Validator struct {
	rules []Rule
	cfg   *Config
}

// NewValidator 创建校验器，按规约顺序注册内置规则
func NewValidator(cfg *Config) *Validator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Validator{
		cfg: cfg,
		rules: []Rule{
			&roleCompatibilityRule{},
			&locationAccessRule{},
			&timeConflictRule{},
			&minRestRule{},
			&consecutiveDaysRule{},
			&nightShiftWeeklyRule{},
			&monthlyCeilingRule{},
			&locationCapacityRule{},
			&fairnessRule{},
			&preferenceRule{},
		},
	}
}

// Config 返回校验器使用的规则配置
func (v *Validator) Config() *Config {
	return v.cfg
}

// Validate 评估候选人与槽位请求的匹配性
func (v *Validator) Validate(cand *Candidate) *Result {
	result := &Result{
		Valid:      true,
		Violations: make([]Violation, 0),
		Warnings:   make([]Violation, 0),
	}

	for _, r := range v.rules {
		violation := r.Check(cand, v.cfg)
		if violation == nil {
			continue
		}

		if r.Category() == CategoryHard {
			result.Valid = false
			result.Violations = append(result.Violations, *violation)
		} else {
			result.Warnings = append(result.Warnings, *violation)
		}
	}

	return result
}
