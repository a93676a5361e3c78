package workload

import (
	"fmt"
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

func monthShifts(empID uuid.UUID, count int) []*model.Shift {
	shifts := make([]*model.Shift, 0, count)
	for day := 1; day <= count; day++ {
		date := fmt.Sprintf("2026-03-%02d", day)
		shifts = append(shifts, makeShift(empID, date, model.ShiftMorning, model.LocationInpatient))
	}
	return shifts
}

func TestTracker_Classify(t *testing.T) {
	tracker := NewTracker(nil)

	// 上限非正数直接归为正常
	if got := tracker.Classify(10, 0, 0); got != model.WorkloadNormal {
		t.Errorf("Expected NORMAL for non-positive ceiling, got %s", got)
	}

	// 连续天数封顶优先于其他判定
	if got := tracker.Classify(2, 20, 3); got != model.WorkloadCritical {
		t.Errorf("Expected CRITICAL at consecutive cap, got %s", got)
	}

	// 达到每月上限
	if got := tracker.Classify(20, 20, 0); got != model.WorkloadOverworked {
		t.Errorf("Expected OVERWORKED at ceiling, got %s", got)
	}

	// 利用率 >85%
	if got := tracker.Classify(18, 20, 0); got != model.WorkloadOverworked {
		t.Errorf("Expected OVERWORKED above 85%% utilization, got %s", got)
	}

	// 利用率 50-85%
	if got := tracker.Classify(10, 20, 0); got != model.WorkloadHigh {
		t.Errorf("Expected HIGH at 50%% utilization, got %s", got)
	}

	// 利用率 <50%
	if got := tracker.Classify(9, 20, 0); got != model.WorkloadNormal {
		t.Errorf("Expected NORMAL below 50%% utilization, got %s", got)
	}
}

func TestTracker_CanEmployeeTakeMoreShifts(t *testing.T) {
	emp := makeEmployee("护士A", model.RoleNurse)
	tracker := NewTracker(nil)
	tracker.Load([]*model.Employee{emp}, monthShifts(emp.ID, 5), nil)

	decision := tracker.CanEmployeeTakeMoreShifts(emp.ID, "2026-03-20")
	if !decision.Allowed {
		t.Errorf("Expected allowed at 5/20, got refusal: %s", decision.Reason)
	}
	if decision.Warning != "" {
		t.Errorf("Expected no warning at 5/20, got %q", decision.Warning)
	}
}

func TestTracker_RefusesAtCeiling(t *testing.T) {
	emp := makeEmployee("护士A", model.RoleNurse)
	tracker := NewTracker(nil)
	tracker.Load([]*model.Employee{emp}, monthShifts(emp.ID, 20), nil)

	decision := tracker.CanEmployeeTakeMoreShifts(emp.ID, "2026-03-25")
	if decision.Allowed {
		t.Error("Expected refusal at monthly ceiling")
	}
	if decision.Reason == "" {
		t.Error("Refusal should carry a reason")
	}

	// 分级副作用写回员工实体
	if emp.WorkloadStatus != model.WorkloadOverworked {
		t.Errorf("Expected OVERWORKED status side-effect, got %s", emp.WorkloadStatus)
	}
}

func TestTracker_RefusesAtConsecutiveCap(t *testing.T) {
	emp := makeEmployee("护士A", model.RoleNurse)
	shifts := []*model.Shift{
		makeShift(emp.ID, "2026-03-07", model.ShiftMorning, model.LocationInpatient),
		makeShift(emp.ID, "2026-03-08", model.ShiftMorning, model.LocationInpatient),
		makeShift(emp.ID, "2026-03-09", model.ShiftMorning, model.LocationInpatient),
	}
	tracker := NewTracker(nil)
	tracker.Load([]*model.Employee{emp}, shifts, nil)

	decision := tracker.CanEmployeeTakeMoreShifts(emp.ID, "2026-03-10")
	if decision.Allowed {
		t.Error("Expected refusal after 3 consecutive days")
	}
	if emp.WorkloadStatus != model.WorkloadCritical {
		t.Errorf("Expected CRITICAL status side-effect, got %s", emp.WorkloadStatus)
	}

	// 隔一天即可恢复
	decision = tracker.CanEmployeeTakeMoreShifts(emp.ID, "2026-03-11")
	if !decision.Allowed {
		t.Errorf("Expected allowed after a rest day, got refusal: %s", decision.Reason)
	}
}

func TestTracker_WarnsNearCeiling(t *testing.T) {
	emp := makeEmployee("护士A", model.RoleNurse)
	tracker := NewTracker(nil)

	// 18/20 = 90%：放行但告警
	tracker.Load([]*model.Employee{emp}, monthShifts(emp.ID, 18), nil)
	decision := tracker.CanEmployeeTakeMoreShifts(emp.ID, "2026-03-25")
	if !decision.Allowed {
		t.Errorf("Expected allowed at 90%%, got refusal: %s", decision.Reason)
	}
	if decision.Warning == "" {
		t.Error("Expected warning at 90% of ceiling")
	}
}

func TestTracker_UnknownOrInactiveEmployee(t *testing.T) {
	tracker := NewTracker(nil)

	decision := tracker.CanEmployeeTakeMoreShifts(uuid.New(), "2026-03-10")
	if decision.Allowed {
		t.Error("Unknown employee should be refused")
	}

	inactive := makeEmployee("离职A", model.RoleNurse)
	inactive.Status = "inactive"
	tracker.Load([]*model.Employee{inactive}, nil, nil)
	decision = tracker.CanEmployeeTakeMoreShifts(inactive.ID, "2026-03-10")
	if decision.Allowed {
		t.Error("Inactive employee should be refused")
	}
}

func TestTracker_CanLocationAcceptShift(t *testing.T) {
	emp := makeEmployee("护士A", model.RoleNurse)
	other := makeEmployee("护士B", model.RoleNurse)
	capacities := []*model.LocationCapacity{
		{Location: model.LocationICU, MaxStaffPerDay: 2},
	}
	shifts := []*model.Shift{
		makeShift(emp.ID, "2026-03-10", model.ShiftMorning, model.LocationICU),
		makeShift(other.ID, "2026-03-10", model.ShiftAfternoon, model.LocationICU),
	}

	tracker := NewTracker(nil)
	tracker.Load([]*model.Employee{emp, other}, shifts, capacities)

	if d := tracker.CanLocationAcceptShift(model.LocationICU, "2026-03-10"); d.Allowed {
		t.Error("Full ICU should refuse new shifts")
	}
	if d := tracker.CanLocationAcceptShift(model.LocationICU, "2026-03-11"); !d.Allowed {
		t.Error("ICU should accept shifts on an empty day")
	}

	// 未配置容量的科室不设限
	if d := tracker.CanLocationAcceptShift("UNKNOWN_WARD", "2026-03-10"); !d.Allowed {
		t.Error("Unconfigured location should always accept")
	}
}

func TestTracker_AlertsSkipNormal(t *testing.T) {
	normal := makeEmployee("护士A", model.RoleNurse)
	overworked := makeEmployee("护士B", model.RoleNurse)

	shifts := append(monthShifts(overworked.ID, 18),
		makeShift(normal.ID, "2026-03-05", model.ShiftMorning, model.LocationInpatient))

	tracker := NewTracker(nil)
	tracker.Load([]*model.Employee{normal, overworked}, shifts, nil)

	alerts := tracker.Alerts("2026-03", "2026-03-25")
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].EmployeeID != overworked.ID {
		t.Error("Alert should target the overworked employee")
	}
	if alerts[0].Status != model.WorkloadOverworked {
		t.Errorf("Expected OVERWORKED alert, got %s", alerts[0].Status)
	}
	if alerts[0].Recommendation == "" {
		t.Error("Alert should carry a recommendation")
	}
}

func TestTracker_WeeklyHours(t *testing.T) {
	emp := makeEmployee("护士A", model.RoleNurse)
	shifts := []*model.Shift{
		makeShift(emp.ID, "2026-03-09", model.ShiftMorning, model.LocationInpatient),  // 7h 周一
		makeShift(emp.ID, "2026-03-10", model.ShiftNight, model.LocationInpatient),    // 10h 周二
	}
	tracker := NewTracker(nil)
	tracker.Load([]*model.Employee{emp}, shifts, nil)

	week := model.WeekOf("2026-03-09")
	if hours := tracker.WeeklyHours(emp.ID, week); hours != 17 {
		t.Errorf("Expected 17 weekly hours, got %.1f", hours)
	}
}
