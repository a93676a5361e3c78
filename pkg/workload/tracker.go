// Package workload 维护员工与科室的负载计数器并给出状态分级
package workload

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/logger"
	"github.com/yipai/yipai/pkg/model"
)

// 状态分级阈值（上限利用率）
const (
	utilizationHigh     = 0.50
	utilizationOverwork = 0.85
)

// Config 负载跟踪配置
type Config struct {
	MaxConsecutiveDays int     `yaml:"max_consecutive_days" json:"max_consecutive_days"`
	CeilingWarnRatio   float64 `yaml:"ceiling_warn_ratio" json:"ceiling_warn_ratio"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxConsecutiveDays: 3,
		CeilingWarnRatio:   0.9,
	}
}

// Alert 员工负载告警
type Alert struct {
	EmployeeID      uuid.UUID            `json:"employee_id"`
	EmployeeName    string               `json:"employee_name"`
	CurrentShifts   int                  `json:"current_shifts"`
	ConsecutiveDays int                  `json:"consecutive_days"`
	Status          model.WorkloadStatus `json:"status"`
	Recommendation  string               `json:"recommendation"`
}

// Decision 接班可行性判定
type Decision struct {
	Allowed bool   `json:"allowed"`
	Warning string `json:"warning,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Tracker 负载与容量跟踪器
// 以最近一次 Load 的持久化班次为基准维护计数器
type Tracker struct {
	cfg *Config

	employees  map[uuid.UUID]*model.Employee
	capacities model.CapacityTable

	monthCounts map[uuid.UUID]map[string]int    // empID -> YYYY-MM
	weeklyHours map[uuid.UUID]map[string]float64 // empID -> YYYY-Www
	datesWorked map[uuid.UUID]map[string]bool
	occupancy   map[string]int // location|date
}

// NewTracker 创建负载跟踪器
func NewTracker(cfg *Config) *Tracker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Tracker{
		cfg:         cfg,
		employees:   make(map[uuid.UUID]*model.Employee),
		capacities:  make(model.CapacityTable),
		monthCounts: make(map[uuid.UUID]map[string]int),
		weeklyHours: make(map[uuid.UUID]map[string]float64),
		datesWorked: make(map[uuid.UUID]map[string]bool),
		occupancy:   make(map[string]int),
	}
}

// Load 从快照重建计数器
func (t *Tracker) Load(employees []*model.Employee, shifts []*model.Shift, capacities []*model.LocationCapacity) {
	t.employees = make(map[uuid.UUID]*model.Employee, len(employees))
	for _, e := range employees {
		t.employees[e.ID] = e
	}
	t.capacities = model.NewCapacityTable(capacities)

	t.monthCounts = make(map[uuid.UUID]map[string]int)
	t.weeklyHours = make(map[uuid.UUID]map[string]float64)
	t.datesWorked = make(map[uuid.UUID]map[string]bool)
	t.occupancy = make(map[string]int)

	for _, s := range shifts {
		t.Record(s)
	}
}

// Record 记录一条班次（持久化或本批次新增）
func (t *Tracker) Record(s *model.Shift) {
	month := model.MonthOf(s.Date)
	if t.monthCounts[s.EmployeeID] == nil {
		t.monthCounts[s.EmployeeID] = make(map[string]int)
	}
	t.monthCounts[s.EmployeeID][month]++

	week := model.WeekOf(s.Date)
	if t.weeklyHours[s.EmployeeID] == nil {
		t.weeklyHours[s.EmployeeID] = make(map[string]float64)
	}
	t.weeklyHours[s.EmployeeID][week] += s.WorkingHours()

	if t.datesWorked[s.EmployeeID] == nil {
		t.datesWorked[s.EmployeeID] = make(map[string]bool)
	}
	t.datesWorked[s.EmployeeID][s.Date] = true

	t.occupancy[s.Location+"|"+s.Date]++
}

// MonthCount 员工某月班次数
func (t *Tracker) MonthCount(empID uuid.UUID, month string) int {
	return t.monthCounts[empID][month]
}

// WeeklyHours 员工某周工时
func (t *Tracker) WeeklyHours(empID uuid.UUID, week string) float64 {
	return t.weeklyHours[empID][week]
}

// ConsecutiveDays 截至指定日期前一天的连续工作天数
func (t *Tracker) ConsecutiveDays(empID uuid.UUID, date string) int {
	dates := t.datesWorked[empID]
	if len(dates) == 0 {
		return 0
	}

	count := 0
	current := model.PreviousDate(date)
	for dates[current] {
		count++
		current = model.PreviousDate(current)
		if count > 60 {
			break
		}
	}
	return count
}

// Classify 根据当月班次数与连续天数分级负载状态
func (t *Tracker) Classify(monthCount, ceiling, consecutiveDays int) model.WorkloadStatus {
	if ceiling <= 0 {
		return model.WorkloadNormal
	}
	if consecutiveDays >= t.cfg.MaxConsecutiveDays {
		return model.WorkloadCritical
	}
	if monthCount >= ceiling {
		return model.WorkloadOverworked
	}

	utilization := float64(monthCount) / float64(ceiling)
	switch {
	case utilization > utilizationOverwork:
		return model.WorkloadOverworked
	case utilization >= utilizationHigh:
		return model.WorkloadHigh
	default:
		return model.WorkloadNormal
	}
}

// CanEmployeeTakeMoreShifts 判定员工能否再接班
// 达到上限或连续天数封顶时硬拒绝；接近上限（默认90%）时放行并告警。
// 状态变化作为校验调用的副作用直接写回员工实体
func (t *Tracker) CanEmployeeTakeMoreShifts(empID uuid.UUID, date string) Decision {
	emp := t.employees[empID]
	if emp == nil {
		return Decision{Allowed: false, Reason: "员工不存在"}
	}
	if !emp.IsActive() {
		return Decision{Allowed: false, Reason: "员工未激活或已禁用排班"}
	}

	month := model.MonthOf(date)
	count := t.MonthCount(empID, month)
	ceiling := emp.Ceiling()
	consecutive := t.ConsecutiveDays(empID, date)

	status := t.Classify(count, ceiling, consecutive)
	if emp.WorkloadStatus != model.WorkloadDisabled && emp.WorkloadStatus != status {
		logger.Get().Debug().
			Str("employee_id", empID.String()).
			Str("from", string(emp.WorkloadStatus)).
			Str("to", string(status)).
			Msg("员工负载状态变化")
		emp.WorkloadStatus = status
	}

	if consecutive >= t.cfg.MaxConsecutiveDays {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("已连续工作 %d 天，达到上限 %d 天", consecutive, t.cfg.MaxConsecutiveDays),
		}
	}
	if count >= ceiling {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("当月班次 %d 已达上限 %d", count, ceiling),
		}
	}

	decision := Decision{Allowed: true}
	if float64(count) >= float64(ceiling)*t.cfg.CeilingWarnRatio {
		decision.Warning = fmt.Sprintf("当月班次 %d 已达上限 %d 的 %.0f%%", count, ceiling, t.cfg.CeilingWarnRatio*100)
	}
	return decision
}

// CanLocationAcceptShift 判定科室某日能否再接收排班
func (t *Tracker) CanLocationAcceptShift(location, date string) Decision {
	cap := t.capacities.Get(location)
	if cap == nil || cap.MaxStaffPerDay <= 0 {
		return Decision{Allowed: true}
	}

	occ := t.occupancy[location+"|"+date]
	if occ >= cap.MaxStaffPerDay {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("科室 %s 在 %s 的在岗人数 %d 已达上限 %d", location, date, occ, cap.MaxStaffPerDay),
		}
	}
	return Decision{Allowed: true}
}

// Alerts 生成指定月份的员工负载告警（NORMAL 状态不产生告警）
func (t *Tracker) Alerts(month, asOfDate string) []Alert {
	alerts := make([]Alert, 0)

	for _, emp := range t.employees {
		count := t.MonthCount(emp.ID, month)
		consecutive := t.ConsecutiveDays(emp.ID, asOfDate)
		status := t.Classify(count, emp.Ceiling(), consecutive)

		if status == model.WorkloadNormal {
			continue
		}

		alerts = append(alerts, Alert{
			EmployeeID:      emp.ID,
			EmployeeName:    emp.Name,
			CurrentShifts:   count,
			ConsecutiveDays: consecutive,
			Status:          status,
			Recommendation:  RecommendationFor(status, count, emp.Ceiling()),
		})
	}

	return alerts
}

// RecommendationFor 生成状态建议
func RecommendationFor(status model.WorkloadStatus, count, ceiling int) string {
	switch status {
	case model.WorkloadCritical:
		return "连续工作天数已封顶，应安排休息日后再排班"
	case model.WorkloadOverworked:
		if count >= ceiling {
			return fmt.Sprintf("当月班次 %d 已达上限 %d，如需继续排班请走加班豁免流程", count, ceiling)
		}
		return "负载接近上限，建议减少新增排班"
	case model.WorkloadHigh:
		return "负载偏高，分配新班次时注意平衡"
	default:
		return ""
	}
}
