// Package rule 定义候选人硬/软约束规则与校验器
package rule

import (
	"fmt"
)

// fairnessRule 公平性规则：班次数明显高于团队平均时提示
type fairnessRule struct{}

func (r *fairnessRule) Type() Type         { return TypeFairness }
func (r *fairnessRule) Category() Category { return CategorySoft }

func (r *fairnessRule) Check(cand *Candidate, cfg *Config) *Violation {
	if cand.TeamAverage <= 0 {
		return nil
	}
	if float64(cand.MonthShiftCount) <= cand.TeamAverage+cfg.FairnessDelta {
		return nil
	}

	return &Violation{
		Rule:     TypeFairness,
		Severity: "warning",
		Message: fmt.Sprintf("员工 %s 当月班次 %d 明显高于团队平均 %.1f",
			cand.Employee.Name, cand.MonthShiftCount, cand.TeamAverage),
	}
}

// preferenceRule 员工偏好规则：与声明的偏好不符时提示
type preferenceRule struct{}

func (r *preferenceRule) Type() Type         { return TypePreference }
func (r *preferenceRule) Category() Category { return CategorySoft }

func (r *preferenceRule) Check(cand *Candidate, cfg *Config) *Violation {
	if !cand.Employee.AvoidsShiftType(cand.Request.ShiftType) {
		return nil
	}

	return &Violation{
		Rule:     TypePreference,
		Severity: "warning",
		Message: fmt.Sprintf("员工 %s 声明避免 %s 班次",
			cand.Employee.Name, cand.Request.ShiftType),
	}
}
