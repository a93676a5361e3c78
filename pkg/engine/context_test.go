package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

func TestBatchContext_ExperienceCountsOnlyPersistedShifts(t *testing.T) {
	emp := testEmployee("护士A", model.RoleNurse)
	bc := testContext([]*model.Employee{emp}, []*model.Shift{
		testShift(emp.ID, "2026-03-01", model.ShiftMorning, model.LocationICU),
		testShift(emp.ID, "2026-03-02", model.ShiftMorning, model.LocationICU),
	})

	if got := bc.LocationExperience(emp.ID, model.LocationICU); got != 2 {
		t.Fatalf("Expected ICU experience 2 from persisted shifts, got %d", got)
	}

	// 批内新分配只推动负载计数器，科室经验保持历史口径
	req := testRequest("2026-03-10", model.LocationICU, model.ShiftMorning, 1, model.PriorityNormal)
	bc.AddAssignment(&model.Assignment{
		ID:         uuid.New(),
		EmployeeID: emp.ID,
		Request:    req,
		Score:      65,
	})

	if got := bc.LocationExperience(emp.ID, model.LocationICU); got != 2 {
		t.Errorf("Batch assignment must not inflate location experience, got %d", got)
	}
	if got := bc.MonthCount(emp.ID, "2026-03"); got != 3 {
		t.Errorf("Expected month count 3 including the batch assignment, got %d", got)
	}
	if got := bc.Occupancy(model.LocationICU, "2026-03-10", model.ShiftMorning); got != 1 {
		t.Errorf("Expected occupancy 1 for the batch slot, got %d", got)
	}
}

func TestBatchContext_RemoveAssignmentRollsBackCounters(t *testing.T) {
	emp := testEmployee("护士A", model.RoleNurse)
	bc := testContext([]*model.Employee{emp}, nil)

	req := testRequest("2026-03-10", model.LocationICU, model.ShiftMorning, 1, model.PriorityNormal)
	a := &model.Assignment{ID: uuid.New(), EmployeeID: emp.ID, Request: req, Score: 65}
	bc.AddAssignment(a)
	bc.RemoveAssignment(a.ID)

	if got := bc.MonthCount(emp.ID, "2026-03"); got != 0 {
		t.Errorf("Expected month count rolled back to 0, got %d", got)
	}
	if got := bc.Occupancy(model.LocationICU, "2026-03-10", model.ShiftMorning); got != 0 {
		t.Errorf("Expected occupancy rolled back to 0, got %d", got)
	}
	if got := bc.LocationExperience(emp.ID, model.LocationICU); got != 0 {
		t.Errorf("Expected location experience untouched at 0, got %d", got)
	}
	if bc.AssignedOnDate(emp.ID, "2026-03-10") {
		t.Error("Rolled-back assignment should clear the per-date marker")
	}
}
