// Package model 定义医院排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// ShiftType 班次类型
type ShiftType string

const (
	ShiftMorning   ShiftType = "MORNING"   // 早班 07:00-14:00
	ShiftAfternoon ShiftType = "AFTERNOON" // 午班 14:00-21:00
	ShiftNight     ShiftType = "NIGHT"     // 夜班 21:00-次日07:00
	ShiftOnCall    ShiftType = "ON_CALL"   // 值班待命 17:00-次日08:00
	ShiftStandby   ShiftType = "STANDBY"   // 备勤 08:00-17:00
)

// AllShiftTypes 全部班次类型
var AllShiftTypes = []ShiftType{ShiftMorning, ShiftAfternoon, ShiftNight, ShiftOnCall, ShiftStandby}

// IsValid 检查班次类型是否合法
func (st ShiftType) IsValid() bool {
	switch st {
	case ShiftMorning, ShiftAfternoon, ShiftNight, ShiftOnCall, ShiftStandby:
		return true
	}
	return false
}

// IsNight 检查是否为夜间班次（夜班与通宵值班均计入夜班周上限）
func (st ShiftType) IsNight() bool {
	return st == ShiftNight || st == ShiftOnCall
}

// shiftClock 班次的起止钟点
type shiftClock struct {
	startHour, startMin int
	endHour, endMin     int
	overnight           bool
}

var shiftClocks = map[ShiftType]shiftClock{
	ShiftMorning:   {7, 0, 14, 0, false},
	ShiftAfternoon: {14, 0, 21, 0, false},
	ShiftNight:     {21, 0, 7, 0, true},
	ShiftOnCall:    {17, 0, 8, 0, true},
	ShiftStandby:   {8, 0, 17, 0, false},
}

// RangeOn 返回班次类型在指定日期的时间范围（跨日班次结束时间落在次日）
func (st ShiftType) RangeOn(date string) (TimeRange, error) {
	d, err := time.Parse(DateFormat, date)
	if err != nil {
		return TimeRange{}, err
	}

	clock, ok := shiftClocks[st]
	if !ok {
		clock = shiftClocks[ShiftMorning]
	}

	start := time.Date(d.Year(), d.Month(), d.Day(), clock.startHour, clock.startMin, 0, 0, time.UTC)
	end := time.Date(d.Year(), d.Month(), d.Day(), clock.endHour, clock.endMin, 0, 0, time.UTC)
	if clock.overnight {
		end = end.Add(24 * time.Hour)
	}

	return TimeRange{Start: start, End: end}, nil
}

// SlotRequest 排班槽位请求（单次优化调用内不可变）
type SlotRequest struct {
	ID             uuid.UUID `json:"id"`
	Date           string    `json:"date"`     // YYYY-MM-DD
	Location       string    `json:"location"` // 科室/病区
	ShiftType      ShiftType `json:"shift_type"`
	RequiredCount  int       `json:"required_count"`
	Priority       Priority  `json:"priority"`
	RequiredRole   Role      `json:"required_role,omitempty"`
	PreferredRoles []Role    `json:"preferred_roles,omitempty"`
	Skills         []string  `json:"skills,omitempty"`
}

// PrefersRole 检查请求是否明确偏好某角色
func (r *SlotRequest) PrefersRole(role Role) bool {
	for _, pr := range r.PreferredRoles {
		if pr == role {
			return true
		}
	}
	return false
}

// Range 返回请求对应的时间范围
func (r *SlotRequest) Range() (TimeRange, error) {
	return r.ShiftType.RangeOn(r.Date)
}

// Assignment 排班分配（贪心/回溯阶段的中间产物）
type Assignment struct {
	ID         uuid.UUID    `json:"id"`
	EmployeeID uuid.UUID    `json:"employee_id"`
	Request    *SlotRequest `json:"request"`
	Score      int          `json:"score"` // 0-100
	Rationale  string       `json:"rationale"`
}

// Date 返回分配对应的日期
func (a *Assignment) Date() string {
	return a.Request.Date
}

// Range 返回分配对应的时间范围
func (a *Assignment) Range() (TimeRange, error) {
	return a.Request.Range()
}

// ToShift 将分配转换为持久化班次记录
func (a *Assignment) ToShift() *Shift {
	tr, _ := a.Request.Range()
	return &Shift{
		BaseModel:  NewBaseModel(),
		EmployeeID: a.EmployeeID,
		Date:       a.Request.Date,
		StartTime:  tr.Start,
		EndTime:    tr.End,
		Location:   a.Request.Location,
		ShiftType:  a.Request.ShiftType,
		Source:     ShiftSourceEngine,
	}
}

// ShiftSource 班次记录来源
const (
	ShiftSourceEngine = "engine" // 由优化引擎生成
	ShiftSourceManual = "manual" // 人工录入
)

// Shift 持久化班次记录（所有计数器的事实来源）
type Shift struct {
	BaseModel
	EmployeeID uuid.UUID `json:"employee_id" db:"employee_id"`
	Date       string    `json:"date" db:"date"` // YYYY-MM-DD
	StartTime  time.Time `json:"start_time" db:"start_time"`
	EndTime    time.Time `json:"end_time" db:"end_time"`
	Location   string    `json:"location" db:"location"`
	ShiftType  ShiftType `json:"shift_type" db:"shift_type"`
	Source     string    `json:"source" db:"source"`
}

// WorkingHours 计算班次工作时长（小时）
func (s *Shift) WorkingHours() float64 {
	return s.EndTime.Sub(s.StartTime).Hours()
}

// Range 返回班次的时间范围
func (s *Shift) Range() TimeRange {
	return TimeRange{Start: s.StartTime, End: s.EndTime}
}

// IsOnDate 检查班次是否在指定日期
func (s *Shift) IsOnDate(date string) bool {
	return s.Date == date
}
