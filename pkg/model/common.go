// Package model 定义医院排班引擎的核心数据模型
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateFormat 日期格式 (YYYY-MM-DD)
const DateFormat = "2006-01-02"

// MonthFormat 月份格式 (YYYY-MM)
const MonthFormat = "2006-01"

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Priority 请求优先级
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityNormal Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

// String 返回优先级名称
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityUrgent:
		return "URGENT"
	default:
		return "NORMAL"
	}
}

// ParsePriority 解析优先级名称，未知名称按 NORMAL 处理
func ParsePriority(s string) Priority {
	switch s {
	case "LOW":
		return PriorityLow
	case "HIGH":
		return PriorityHigh
	case "URGENT":
		return PriorityUrgent
	default:
		return PriorityNormal
	}
}

// TimeRange 时间范围
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// MonthOf 获取日期所在月份（YYYY-MM格式）
func MonthOf(date string) string {
	if len(date) >= 7 {
		return date[:7]
	}
	return date
}

// WeekOf 获取日期所在的 ISO 周（YYYY-Www 格式）
func WeekOf(date string) string {
	t, err := time.Parse(DateFormat, date)
	if err != nil {
		return date
	}
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// PreviousDate 获取前一天日期
func PreviousDate(date string) string {
	t, err := time.Parse(DateFormat, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(DateFormat)
}

// NextDate 获取后一天日期
func NextDate(date string) string {
	t, err := time.Parse(DateFormat, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(DateFormat)
}

// IsConsecutiveDate 检查两个日期是否连续
func IsConsecutiveDate(date1, date2 string) bool {
	t1, err1 := time.Parse(DateFormat, date1)
	t2, err2 := time.Parse(DateFormat, date2)
	if err1 != nil || err2 != nil {
		return false
	}
	return t2.Sub(t1) == 24*time.Hour
}
