package model

import (
	"testing"
	"time"
)

func TestTimeRange_Overlaps(t *testing.T) {
	morning, _ := ShiftMorning.RangeOn("2026-03-10")
	standby, _ := ShiftStandby.RangeOn("2026-03-10")
	afternoon, _ := ShiftAfternoon.RangeOn("2026-03-10")

	// 早班 07-14 与备勤 08-17 重叠
	if !morning.Overlaps(standby) {
		t.Error("Morning and standby should overlap")
	}

	// 早班 07-14 与午班 14-21 仅边界相接，不算重叠
	if morning.Overlaps(afternoon) {
		t.Error("Touching ranges should not overlap")
	}
}

func TestShiftType_RangeOnOvernight(t *testing.T) {
	night, err := ShiftNight.RangeOn("2026-03-10")
	if err != nil {
		t.Fatalf("RangeOn failed: %v", err)
	}

	// 夜班 21:00 至次日 07:00
	if night.Start.Hour() != 21 || night.Start.Day() != 10 {
		t.Errorf("Expected start 2026-03-10 21:00, got %v", night.Start)
	}
	if night.End.Hour() != 7 || night.End.Day() != 11 {
		t.Errorf("Expected end 2026-03-11 07:00, got %v", night.End)
	}
	if night.Duration() != 10*time.Hour {
		t.Errorf("Expected 10h night shift, got %v", night.Duration())
	}
}

func TestDateHelpers(t *testing.T) {
	if got := MonthOf("2026-03-10"); got != "2026-03" {
		t.Errorf("Expected month 2026-03, got %s", got)
	}

	// 跨月、跨年边界
	if got := PreviousDate("2026-03-01"); got != "2026-02-28" {
		t.Errorf("Expected 2026-02-28, got %s", got)
	}
	if got := NextDate("2025-12-31"); got != "2026-01-01" {
		t.Errorf("Expected 2026-01-01, got %s", got)
	}

	if !IsConsecutiveDate("2026-02-28", "2026-03-01") {
		t.Error("Feb 28 and Mar 1 should be consecutive in 2026")
	}
	if IsConsecutiveDate("2026-03-01", "2026-03-01") {
		t.Error("Same date is not consecutive")
	}
}

func TestWeekOf(t *testing.T) {
	// 2026-01-01 是周四，属于 2026 年第 1 周
	if got := WeekOf("2026-01-01"); got != "2026-W01" {
		t.Errorf("Expected 2026-W01, got %s", got)
	}

	// 周日与下周一分属不同 ISO 周
	if WeekOf("2026-03-08") == WeekOf("2026-03-09") {
		t.Error("Sunday and the following Monday should be in different ISO weeks")
	}
}

func TestShiftType_IsNight(t *testing.T) {
	if !ShiftNight.IsNight() || !ShiftOnCall.IsNight() {
		t.Error("NIGHT and ON_CALL should count as night shifts")
	}
	if ShiftMorning.IsNight() || ShiftAfternoon.IsNight() || ShiftStandby.IsNight() {
		t.Error("Day shifts should not count as night shifts")
	}
}

func TestEmployee_Ceiling(t *testing.T) {
	nurse := &Employee{Role: RoleNurse}
	if nurse.Ceiling() != 20 {
		t.Errorf("Expected default nurse ceiling 20, got %d", nurse.Ceiling())
	}

	admin := &Employee{Role: RoleAdmin}
	if admin.Ceiling() != 12 {
		t.Errorf("Expected default admin ceiling 12, got %d", admin.Ceiling())
	}

	// 显式上限优先于角色默认值
	raised := &Employee{Role: RoleNurse, MonthlyShiftCeiling: 24}
	if raised.Ceiling() != 24 {
		t.Errorf("Expected explicit ceiling 24, got %d", raised.Ceiling())
	}
}
