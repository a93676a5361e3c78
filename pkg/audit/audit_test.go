package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

func assignment(empID uuid.UUID, date string, st model.ShiftType) *model.Assignment {
	return &model.Assignment{
		ID:         uuid.New(),
		EmployeeID: empID,
		Request: &model.SlotRequest{
			ID:            uuid.New(),
			Date:          date,
			Location:      model.LocationICU,
			ShiftType:     st,
			RequiredCount: 1,
			Priority:      model.PriorityNormal,
		},
		Score: 65,
	}
}

func TestDetector_CleanBatch(t *testing.T) {
	detector := NewDetector(8)
	emp := uuid.New()

	// 隔日早班：休息充足
	findings := detector.Inspect([]*model.Assignment{
		assignment(emp, "2026-03-10", model.ShiftMorning),
		assignment(emp, "2026-03-11", model.ShiftMorning),
	})
	if len(findings) != 0 {
		t.Errorf("Expected 0 findings, got %d: %v", len(findings), findings)
	}
}

func TestDetector_Overlap(t *testing.T) {
	detector := NewDetector(8)
	emp := uuid.New()

	// 同日早班与备勤时间重叠
	findings := detector.Inspect([]*model.Assignment{
		assignment(emp, "2026-03-10", model.ShiftMorning),
		assignment(emp, "2026-03-10", model.ShiftStandby),
	})

	if len(findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(findings))
	}
	if findings[0].Type != FindingOverlap {
		t.Errorf("Expected overlap finding, got %s", findings[0].Type)
	}
	if findings[0].EmployeeID != emp {
		t.Error("Finding should reference the double-booked employee")
	}
	if len(findings[0].Assignments) != 2 {
		t.Errorf("Expected 2 assignment IDs in finding, got %d", len(findings[0].Assignments))
	}
}

func TestDetector_InsufficientRest(t *testing.T) {
	detector := NewDetector(8)
	emp := uuid.New()

	// 夜班结束即接早班：休息0小时
	findings := detector.Inspect([]*model.Assignment{
		assignment(emp, "2026-03-10", model.ShiftNight),
		assignment(emp, "2026-03-11", model.ShiftMorning),
	})

	if len(findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(findings))
	}
	if findings[0].Type != FindingInsufficientRest {
		t.Errorf("Expected insufficient_rest finding, got %s", findings[0].Type)
	}
	if findings[0].Date != "2026-03-11" {
		t.Errorf("Finding should point at the later assignment's date, got %s", findings[0].Date)
	}
}

func TestDetector_IgnoresDifferentEmployees(t *testing.T) {
	detector := NewDetector(8)

	// 不同员工同槽位不构成问题
	findings := detector.Inspect([]*model.Assignment{
		assignment(uuid.New(), "2026-03-10", model.ShiftMorning),
		assignment(uuid.New(), "2026-03-10", model.ShiftMorning),
	})
	if len(findings) != 0 {
		t.Errorf("Expected 0 findings across employees, got %d", len(findings))
	}
}
