package rule

import (
	"testing"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

func makeEmployee(name string, role model.Role) *model.Employee {
	return &model.Employee{
		BaseModel:      model.BaseModel{ID: uuid.New()},
		Name:           name,
		Role:           role,
		Status:         "active",
		WorkloadStatus: model.WorkloadNormal,
	}
}

func makeRequest(date, location string, st model.ShiftType) *model.SlotRequest {
	return &model.SlotRequest{
		ID:            uuid.New(),
		Date:          date,
		Location:      location,
		ShiftType:     st,
		RequiredCount: 1,
		Priority:      model.PriorityNormal,
	}
}

func makeShift(empID uuid.UUID, date string, st model.ShiftType, location string) *model.Shift {
	tr, _ := st.RangeOn(date)
	return &model.Shift{
		BaseModel:  model.BaseModel{ID: uuid.New()},
		EmployeeID: empID,
		Date:       date,
		StartTime:  tr.Start,
		EndTime:    tr.End,
		Location:   location,
		ShiftType:  st,
	}
}

func TestValidator_AllRulesPass(t *testing.T) {
	v := NewValidator(nil)
	emp := makeEmployee("护士A", model.RoleNurse)

	result := v.Validate(&Candidate{
		Employee: emp,
		Request:  makeRequest("2026-03-10", model.LocationICU, model.ShiftMorning),
		Capacity: &model.LocationCapacity{
			Location:       model.LocationICU,
			MaxStaffPerDay: 6,
			AllowedRoles:   []model.Role{model.RolePhysician, model.RoleNurse},
		},
	})

	if !result.Valid {
		t.Errorf("Expected valid result, got violations: %v", result.ViolationMessages())
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected 0 warnings, got %d", len(result.Warnings))
	}
}

func TestValidator_RoleCompatibility(t *testing.T) {
	v := NewValidator(nil)

	req := makeRequest("2026-03-10", model.LocationICU, model.ShiftMorning)
	req.RequiredRole = model.RoleNurse

	// 主管可以顶护理岗
	supervisor := makeEmployee("主管A", model.RoleSupervisor)
	if res := v.Validate(&Candidate{Employee: supervisor, Request: req}); !res.Valid {
		t.Errorf("Supervisor should cover nurse role, got: %v", res.ViolationMessages())
	}

	// 一般职员不可顶护理岗
	staff := makeEmployee("职员A", model.RoleStaff)
	res := v.Validate(&Candidate{Employee: staff, Request: req})
	if res.Valid {
		t.Error("Staff should not cover nurse role")
	}
	if !res.Has(TypeRoleCompatibility) {
		t.Error("Expected role_compatibility violation")
	}

	// 医师岗位不可被主管替代
	physReq := makeRequest("2026-03-10", model.LocationICU, model.ShiftMorning)
	physReq.RequiredRole = model.RolePhysician
	if res := v.Validate(&Candidate{Employee: supervisor, Request: physReq}); res.Valid {
		t.Error("Supervisor should not cover physician role")
	}
}

func TestValidator_LocationAccess(t *testing.T) {
	v := NewValidator(nil)
	admin := makeEmployee("行政A", model.RoleAdmin)

	res := v.Validate(&Candidate{
		Employee: admin,
		Request:  makeRequest("2026-03-10", model.LocationICU, model.ShiftMorning),
		Capacity: &model.LocationCapacity{
			Location:       model.LocationICU,
			MaxStaffPerDay: 6,
			AllowedRoles:   []model.Role{model.RolePhysician, model.RoleNurse},
		},
	})

	if res.Valid {
		t.Error("Admin should not pass ICU access rule")
	}
	if !res.Has(TypeLocationAccess) {
		t.Error("Expected location_access violation")
	}

	// 未配置容量表的科室不限制角色
	res = v.Validate(&Candidate{
		Employee: admin,
		Request:  makeRequest("2026-03-10", "UNKNOWN_WARD", model.ShiftMorning),
	})
	if !res.Valid {
		t.Errorf("Unconfigured location should allow any role, got: %v", res.ViolationMessages())
	}
}

func TestValidator_TimeConflict(t *testing.T) {
	v := NewValidator(nil)
	emp := makeEmployee("护士A", model.RoleNurse)

	// 同日早班与备勤重叠（07-14 与 08-17）
	res := v.Validate(&Candidate{
		Employee:       emp,
		Request:        makeRequest("2026-03-10", model.LocationICU, model.ShiftMorning),
		ExistingShifts: []*model.Shift{makeShift(emp.ID, "2026-03-10", model.ShiftStandby, model.LocationER)},
	})
	if res.Valid {
		t.Error("Overlapping shifts should be rejected")
	}
	if !res.Has(TypeTimeConflict) {
		t.Error("Expected time_conflict violation")
	}
}

func TestValidator_TimeConflictOvernight(t *testing.T) {
	v := NewValidator(nil)
	emp := makeEmployee("护士A", model.RoleNurse)

	// 前夜夜班 21:00-次日07:00 与次日早班 07:00-14:00 不重叠但休息为0
	res := v.Validate(&Candidate{
		Employee:       emp,
		Request:        makeRequest("2026-03-11", model.LocationICU, model.ShiftMorning),
		ExistingShifts: []*model.Shift{makeShift(emp.ID, "2026-03-10", model.ShiftNight, model.LocationICU)},
	})
	if res.Valid {
		t.Error("Morning shift right after overnight shift should be rejected")
	}
	if !res.Has(TypeMinRest) {
		t.Errorf("Expected min_rest violation, got: %v", res.ViolationMessages())
	}
}

func TestValidator_MinRestSatisfied(t *testing.T) {
	v := NewValidator(nil)
	emp := makeEmployee("护士A", model.RoleNurse)

	// 前日早班 07-14，次日早班 07-14：休息17小时
	res := v.Validate(&Candidate{
		Employee:       emp,
		Request:        makeRequest("2026-03-11", model.LocationICU, model.ShiftMorning),
		ExistingShifts: []*model.Shift{makeShift(emp.ID, "2026-03-10", model.ShiftMorning, model.LocationICU)},
	})
	if !res.Valid {
		t.Errorf("17h rest should satisfy min rest, got: %v", res.ViolationMessages())
	}
}

func TestValidator_ConsecutiveDays(t *testing.T) {
	v := NewValidator(nil)
	emp := makeEmployee("护士A", model.RoleNurse)
	req := makeRequest("2026-03-10", model.LocationICU, model.ShiftMorning)

	res := v.Validate(&Candidate{Employee: emp, Request: req, ConsecutiveDays: 3})
	if res.Valid {
		t.Error("3 consecutive days should hit the cap")
	}
	if !res.Has(TypeConsecutiveDays) {
		t.Error("Expected consecutive_days violation")
	}

	res = v.Validate(&Candidate{Employee: emp, Request: req, ConsecutiveDays: 2})
	if !res.Valid {
		t.Errorf("2 consecutive days should pass, got: %v", res.ViolationMessages())
	}
}

func TestValidator_NightShiftWeekly(t *testing.T) {
	v := NewValidator(nil)
	emp := makeEmployee("护士A", model.RoleNurse)

	nightReq := makeRequest("2026-03-10", model.LocationICU, model.ShiftNight)
	res := v.Validate(&Candidate{Employee: emp, Request: nightReq, WeekNightCount: 2})
	if res.Valid {
		t.Error("2 night shifts this week should hit the cap")
	}
	if !res.Has(TypeNightShiftWeekly) {
		t.Error("Expected night_shift_weekly violation")
	}

	// 日班不受夜班周上限影响
	dayReq := makeRequest("2026-03-10", model.LocationICU, model.ShiftMorning)
	res = v.Validate(&Candidate{Employee: emp, Request: dayReq, WeekNightCount: 2})
	if !res.Valid {
		t.Errorf("Day shift should ignore night cap, got: %v", res.ViolationMessages())
	}

	// 通宵值班计入夜班
	onCallReq := makeRequest("2026-03-10", model.LocationICU, model.ShiftOnCall)
	if res := v.Validate(&Candidate{Employee: emp, Request: onCallReq, WeekNightCount: 2}); res.Valid {
		t.Error("ON_CALL should count against the night cap")
	}
}

func TestValidator_MonthlyCeiling(t *testing.T) {
	v := NewValidator(nil)
	emp := makeEmployee("护士A", model.RoleNurse) // 默认上限20
	req := makeRequest("2026-03-10", model.LocationICU, model.ShiftMorning)

	res := v.Validate(&Candidate{Employee: emp, Request: req, MonthShiftCount: 20})
	if res.Valid {
		t.Error("Monthly ceiling reached should be rejected")
	}
	if !res.Has(TypeMonthlyCeiling) {
		t.Error("Expected monthly_ceiling violation")
	}

	// 加班豁免放行
	res = v.Validate(&Candidate{Employee: emp, Request: req, MonthShiftCount: 20, OverworkOverride: true})
	if !res.Valid {
		t.Errorf("Overwork override should bypass ceiling, got: %v", res.ViolationMessages())
	}
}

func TestValidator_LocationCapacity(t *testing.T) {
	v := NewValidator(nil)
	emp := makeEmployee("护士A", model.RoleNurse)
	req := makeRequest("2026-03-10", model.LocationICU, model.ShiftMorning)
	capacity := &model.LocationCapacity{Location: model.LocationICU, MaxStaffPerDay: 2}

	res := v.Validate(&Candidate{Employee: emp, Request: req, Capacity: capacity, Occupancy: 2})
	if res.Valid {
		t.Error("Full location should be rejected")
	}
	if !res.Has(TypeLocationCapacity) {
		t.Error("Expected location_capacity violation")
	}

	res = v.Validate(&Candidate{Employee: emp, Request: req, Capacity: capacity, Occupancy: 1})
	if !res.Valid {
		t.Errorf("Location with free slot should pass, got: %v", res.ViolationMessages())
	}

	// 容量非正数视为不限
	unlimited := &model.LocationCapacity{Location: model.LocationICU, MaxStaffPerDay: 0}
	if res := v.Validate(&Candidate{Employee: emp, Request: req, Capacity: unlimited, Occupancy: 99}); !res.Valid {
		t.Error("Non-positive capacity should mean unlimited")
	}
}

func TestValidator_SoftRulesAreWarnings(t *testing.T) {
	v := NewValidator(nil)
	emp := makeEmployee("护士A", model.RoleNurse)
	emp.Preferences = &model.EmployeePreferences{
		AvoidShiftTypes: []model.ShiftType{model.ShiftNight},
	}

	res := v.Validate(&Candidate{
		Employee:        emp,
		Request:         makeRequest("2026-03-10", model.LocationICU, model.ShiftNight),
		MonthShiftCount: 12,
		TeamAverage:     4,
	})

	// 公平性偏离与偏好冲突都只是警告
	if !res.Valid {
		t.Errorf("Soft rules must not invalidate, got: %v", res.ViolationMessages())
	}
	if len(res.Warnings) != 2 {
		t.Errorf("Expected 2 warnings (fairness + preference), got %d: %v", len(res.Warnings), res.WarningMessages())
	}
}

func TestValidator_ViolationOrderStable(t *testing.T) {
	v := NewValidator(nil)

	// 同时违反角色与连续天数：消息顺序应与规则注册顺序一致
	staff := makeEmployee("职员A", model.RoleStaff)
	req := makeRequest("2026-03-10", model.LocationICU, model.ShiftMorning)
	req.RequiredRole = model.RolePhysician

	res := v.Validate(&Candidate{Employee: staff, Request: req, ConsecutiveDays: 5})
	if len(res.Violations) != 2 {
		t.Fatalf("Expected 2 violations, got %d", len(res.Violations))
	}
	if res.Violations[0].Rule != TypeRoleCompatibility {
		t.Errorf("First violation should be role_compatibility, got %s", res.Violations[0].Rule)
	}
	if res.Violations[1].Rule != TypeConsecutiveDays {
		t.Errorf("Second violation should be consecutive_days, got %s", res.Violations[1].Rule)
	}
}
