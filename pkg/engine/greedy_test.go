package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/rule"
)

func newGreedy(cfg *Config) *GreedyAssigner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return NewGreedyAssigner(cfg, rule.NewValidator(cfg.Rule), NewScorer(cfg))
}

func TestGreedy_AssignsSingleRequest(t *testing.T) {
	emp := testEmployee("护士A", model.RoleNurse)
	bc := testContext([]*model.Employee{emp}, nil)

	req := testRequest("2026-03-10", model.LocationICU, model.ShiftMorning, 1, model.PriorityNormal)
	assignments, conflicts, err := newGreedy(nil).Assign(context.Background(), bc, []*model.SlotRequest{req})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if len(assignments) != 1 {
		t.Fatalf("Expected 1 assignment, got %d", len(assignments))
	}
	if assignments[0].EmployeeID != emp.ID {
		t.Error("Assignment should target the only employee")
	}
	if len(conflicts) != 0 {
		t.Errorf("Expected 0 conflicts, got %d", len(conflicts))
	}

	// 分配立即计入批内计数器
	if bc.MonthCount(emp.ID, "2026-03") != 1 {
		t.Errorf("Expected month count 1 after assignment, got %d", bc.MonthCount(emp.ID, "2026-03"))
	}
	if bc.Occupancy(model.LocationICU, "2026-03-10", model.ShiftMorning) != 1 {
		t.Errorf("Expected occupancy 1 after assignment, got %d", bc.Occupancy(model.LocationICU, "2026-03-10", model.ShiftMorning))
	}
}

func TestGreedy_HighPriorityProcessedFirst(t *testing.T) {
	// 两名员工，但容量只有1：高优先级请求应抢到唯一名额
	empA := testEmployee("护士A", model.RoleNurse)
	empB := testEmployee("护士B", model.RoleNurse)
	capacities := []*model.LocationCapacity{
		{Location: model.LocationICU, MaxStaffPerDay: 1},
	}
	bc := NewBatchContext(DefaultConfig(), []*model.Employee{empA, empB}, nil, capacities, nil)

	low := testRequest("2026-03-10", model.LocationICU, model.ShiftMorning, 1, model.PriorityLow)
	urgent := testRequest("2026-03-10", model.LocationICU, model.ShiftMorning, 1, model.PriorityUrgent)

	// 低优先级在输入中排前
	assignments, conflicts, err := newGreedy(nil).Assign(context.Background(), bc, []*model.SlotRequest{low, urgent})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if len(assignments) != 1 {
		t.Fatalf("Expected 1 assignment, got %d", len(assignments))
	}
	if assignments[0].Request.ID != urgent.ID {
		t.Error("Urgent request should win the only capacity slot")
	}

	if len(conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].RequestID != low.ID {
		t.Error("Conflict should reference the low priority request")
	}
}

func TestGreedy_LoadSpreadingWithinBatch(t *testing.T) {
	// A 当月已有9个班次，B 没有：第一个请求同分取A（输入顺序稳定），
	// A 随即跨过轻负载阈值，第二个请求应落到B
	empA := testEmployee("护士A", model.RoleNurse)
	empB := testEmployee("护士B", model.RoleNurse)

	shifts := make([]*model.Shift, 0, 9)
	for day := 1; day <= 9; day++ {
		date := fmt.Sprintf("2026-03-%02d", day)
		shifts = append(shifts, testShift(empA.ID, date, model.ShiftMorning, model.LocationInpatient))
	}
	bc := testContext([]*model.Employee{empA, empB}, shifts)

	req1 := testRequest("2026-03-20", model.LocationICU, model.ShiftMorning, 1, model.PriorityNormal)
	req2 := testRequest("2026-03-20", model.LocationICU, model.ShiftAfternoon, 1, model.PriorityNormal)

	assignments, _, err := newGreedy(nil).Assign(context.Background(), bc, []*model.SlotRequest{req1, req2})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if len(assignments) != 2 {
		t.Fatalf("Expected 2 assignments, got %d", len(assignments))
	}
	if assignments[0].EmployeeID != empA.ID {
		t.Error("First request should go to employee A (stable order on equal score)")
	}
	if assignments[1].EmployeeID != empB.ID {
		t.Error("Second request should spread to employee B after A crosses the light-load threshold")
	}
}

func TestGreedy_CapacityCapWithinSingleRequest(t *testing.T) {
	// 需要3人但容量2：接受恰好2人，第3人因容量受阻
	employees := []*model.Employee{
		testEmployee("护士A", model.RoleNurse),
		testEmployee("护士B", model.RoleNurse),
		testEmployee("护士C", model.RoleNurse),
	}
	capacities := []*model.LocationCapacity{
		{Location: model.LocationICU, MaxStaffPerDay: 2},
	}
	bc := NewBatchContext(DefaultConfig(), employees, nil, capacities, nil)

	req := testRequest("2026-03-10", model.LocationICU, model.ShiftMorning, 3, model.PriorityNormal)
	assignments, conflicts, err := newGreedy(nil).Assign(context.Background(), bc, []*model.SlotRequest{req})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if len(assignments) != 2 {
		t.Fatalf("Expected exactly 2 assignments, got %d", len(assignments))
	}
	if len(conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].Kind != ConflictCapacityBlocked {
		t.Errorf("Expected capacity_blocked conflict, got %s", conflicts[0].Kind)
	}
}

func TestGreedy_FulfillmentGap(t *testing.T) {
	// 需要医师但池中只有护士：无合格候选人
	bc := testContext([]*model.Employee{testEmployee("护士A", model.RoleNurse)}, nil)

	req := testRequest("2026-03-10", model.LocationICU, model.ShiftMorning, 1, model.PriorityNormal)
	req.RequiredRole = model.RolePhysician

	assignments, conflicts, err := newGreedy(nil).Assign(context.Background(), bc, []*model.SlotRequest{req})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if len(assignments) != 0 {
		t.Errorf("Expected 0 assignments, got %d", len(assignments))
	}
	if len(conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].Kind != ConflictFulfillmentGap {
		t.Errorf("Expected fulfillment_gap conflict, got %s", conflicts[0].Kind)
	}
}

func TestGreedy_SkipsInactiveEmployees(t *testing.T) {
	inactive := testEmployee("离职A", model.RoleNurse)
	inactive.Status = "inactive"
	bc := testContext([]*model.Employee{inactive}, nil)

	req := testRequest("2026-03-10", model.LocationICU, model.ShiftMorning, 1, model.PriorityNormal)
	assignments, conflicts, err := newGreedy(nil).Assign(context.Background(), bc, []*model.SlotRequest{req})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if len(assignments) != 0 {
		t.Error("Inactive employee should not be assigned")
	}
	if len(conflicts) != 1 || conflicts[0].Kind != ConflictFulfillmentGap {
		t.Error("Expected fulfillment_gap conflict for inactive-only pool")
	}
}

func TestGreedy_ContextCancellation(t *testing.T) {
	bc := testContext([]*model.Employee{testEmployee("护士A", model.RoleNurse)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := testRequest("2026-03-10", model.LocationICU, model.ShiftMorning, 1, model.PriorityNormal)
	_, _, err := newGreedy(nil).Assign(ctx, bc, []*model.SlotRequest{req})
	if err == nil {
		t.Error("Cancelled context should abort assignment")
	}
}
