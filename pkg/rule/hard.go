// Package rule 定义候选人硬/软约束规则与校验器
package rule

import (
	"fmt"

	"github.com/yipai/yipai/pkg/model"
)

// roleCoverage 指定角色时允许顶岗的角色映射
// 主管可以覆盖护理与一般岗位，医师岗位不可替代
var roleCoverage = map[model.Role][]model.Role{
	model.RolePhysician:  {model.RolePhysician},
	model.RoleNurse:      {model.RoleNurse, model.RoleSupervisor},
	model.RoleStaff:      {model.RoleStaff, model.RoleSupervisor},
	model.RoleSupervisor: {model.RoleSupervisor},
	model.RoleAdmin:      {model.RoleAdmin, model.RoleSupervisor},
}

// roleCompatibilityRule 角色匹配规则
type roleCompatibilityRule struct{}

func (r *roleCompatibilityRule) Type() Type         { return TypeRoleCompatibility }
func (r *roleCompatibilityRule) Category() Category { return CategoryHard }

func (r *roleCompatibilityRule) Check(cand *Candidate, cfg *Config) *Violation {
	required := cand.Request.RequiredRole
	if required == "" {
		return nil
	}

	for _, allowed := range roleCoverage[required] {
		if cand.Employee.Role == allowed {
			return nil
		}
	}

	return &Violation{
		Rule:     TypeRoleCompatibility,
		Severity: "error",
		Message: fmt.Sprintf("员工 %s 角色 %s 不满足岗位要求 %s",
			cand.Employee.Name, cand.Employee.Role, required),
	}
}

// locationAccessRule 科室准入规则
type locationAccessRule struct{}

func (r *locationAccessRule) Type() Type         { return TypeLocationAccess }
func (r *locationAccessRule) Category() Category { return CategoryHard }

func (r *locationAccessRule) Check(cand *Candidate, cfg *Config) *Violation {
	// 未配置容量表的科室不限制角色
	if cand.Capacity == nil {
		return nil
	}

	if cand.Capacity.RoleAllowed(cand.Employee.Role) {
		return nil
	}

	return &Violation{
		Rule:     TypeLocationAccess,
		Severity: "error",
		Message: fmt.Sprintf("角色 %s 不允许进入科室 %s",
			cand.Employee.Role, cand.Request.Location),
	}
}

// timeConflictRule 时间冲突规则（含跨日班次）
type timeConflictRule struct{}

func (r *timeConflictRule) Type() Type         { return TypeTimeConflict }
func (r *timeConflictRule) Category() Category { return CategoryHard }

func (r *timeConflictRule) Check(cand *Candidate, cfg *Config) *Violation {
	reqRange, err := cand.Request.Range()
	if err != nil {
		return &Violation{
			Rule:     TypeTimeConflict,
			Severity: "error",
			Message:  fmt.Sprintf("请求日期 %s 无法解析", cand.Request.Date),
		}
	}

	for _, shift := range cand.ExistingShifts {
		if reqRange.Overlaps(shift.Range()) {
			return &Violation{
				Rule:     TypeTimeConflict,
				Severity: "error",
				Message: fmt.Sprintf("员工 %s 在 %s 已有时间重叠的班次 (%s %s)",
					cand.Employee.Name, cand.Request.Date, shift.Date, shift.ShiftType),
			}
		}
	}

	return nil
}

// minRestRule 最小休息时间规则
type minRestRule struct{}

func (r *minRestRule) Type() Type         { return TypeMinRest }
func (r *minRestRule) Category() Category { return CategoryHard }

func (r *minRestRule) Check(cand *Candidate, cfg *Config) *Violation {
	reqRange, err := cand.Request.Range()
	if err != nil {
		return nil // 日期问题由时间冲突规则报告
	}

	for _, shift := range cand.ExistingShifts {
		sr := shift.Range()

		var restHours float64
		switch {
		case !sr.End.After(reqRange.Start):
			restHours = reqRange.Start.Sub(sr.End).Hours()
		case !reqRange.End.After(sr.Start):
			restHours = sr.Start.Sub(reqRange.End).Hours()
		default:
			continue // 重叠由时间冲突规则报告
		}

		if restHours < float64(cfg.MinRestHours) {
			return &Violation{
				Rule:     TypeMinRest,
				Severity: "error",
				Message: fmt.Sprintf("员工 %s 班次间隔仅 %.1f 小时，少于要求的 %d 小时",
					cand.Employee.Name, restHours, cfg.MinRestHours),
			}
		}
	}

	return nil
}

// consecutiveDaysRule 最大连续工作天数规则
type consecutiveDaysRule struct{}

func (r *consecutiveDaysRule) Type() Type         { return TypeConsecutiveDays }
func (r *consecutiveDaysRule) Category() Category { return CategoryHard }

func (r *consecutiveDaysRule) Check(cand *Candidate, cfg *Config) *Violation {
	if cand.ConsecutiveDays < cfg.MaxConsecutiveDays {
		return nil
	}

	return &Violation{
		Rule:     TypeConsecutiveDays,
		Severity: "error",
		Message: fmt.Sprintf("员工 %s 已连续工作 %d 天，达到上限 %d 天",
			cand.Employee.Name, cand.ConsecutiveDays, cfg.MaxConsecutiveDays),
	}
}

// nightShiftWeeklyRule 夜班周上限规则
type nightShiftWeeklyRule struct{}

func (r *nightShiftWeeklyRule) Type() Type         { return TypeNightShiftWeekly }
func (r *nightShiftWeeklyRule) Category() Category { return CategoryHard }

func (r *nightShiftWeeklyRule) Check(cand *Candidate, cfg *Config) *Violation {
	if !cand.Request.ShiftType.IsNight() {
		return nil
	}
	if cand.WeekNightCount < cfg.MaxNightShiftsPerWeek {
		return nil
	}

	return &Violation{
		Rule:     TypeNightShiftWeekly,
		Severity: "error",
		Message: fmt.Sprintf("员工 %s 本周已有 %d 个夜间班次，达到上限 %d 个",
			cand.Employee.Name, cand.WeekNightCount, cfg.MaxNightShiftsPerWeek),
	}
}

// monthlyCeilingRule 每月班次上限规则
type monthlyCeilingRule struct{}

func (r *monthlyCeilingRule) Type() Type         { return TypeMonthlyCeiling }
func (r *monthlyCeilingRule) Category() Category { return CategoryHard }

func (r *monthlyCeilingRule) Check(cand *Candidate, cfg *Config) *Violation {
	ceiling := cand.Employee.Ceiling()
	if cand.MonthShiftCount < ceiling {
		return nil
	}
	if cand.OverworkOverride {
		return nil
	}

	return &Violation{
		Rule:     TypeMonthlyCeiling,
		Severity: "error",
		Message: fmt.Sprintf("员工 %s 当月班次 %d 已达上限 %d 且无加班豁免",
			cand.Employee.Name, cand.MonthShiftCount, ceiling),
	}
}

// locationCapacityRule 科室容量规则
type locationCapacityRule struct{}

func (r *locationCapacityRule) Type() Type         { return TypeLocationCapacity }
func (r *locationCapacityRule) Category() Category { return CategoryHard }

func (r *locationCapacityRule) Check(cand *Candidate, cfg *Config) *Violation {
	if cand.Capacity == nil || cand.Capacity.MaxStaffPerDay <= 0 {
		return nil
	}
	if cand.Occupancy < cand.Capacity.MaxStaffPerDay {
		return nil
	}

	return &Violation{
		Rule:     TypeLocationCapacity,
		Severity: "error",
		Message: fmt.Sprintf("科室 %s 在 %s 的 %s 班次在岗人数已达上限 %d",
			cand.Request.Location, cand.Request.Date, cand.Request.ShiftType, cand.Capacity.MaxStaffPerDay),
	}
}
