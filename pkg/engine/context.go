// Package engine 提供两阶段排班优化引擎（贪心分配 + 回溯修复）
package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/rule"
)

// Config 引擎配置
type Config struct {
	// ScoreThreshold 贪心选择的最低适配分
	ScoreThreshold int `yaml:"score_threshold" json:"score_threshold"`

	// ReassignScoreFloor 回溯阶段改派候选人的最低适配分
	ReassignScoreFloor int `yaml:"reassign_score_floor" json:"reassign_score_floor"`

	// WindowDays 班次预加载窗口（向前/向后各一半）
	WindowDays int `yaml:"window_days" json:"window_days"`

	// Rule 规则配置
	Rule *rule.Config `yaml:"rule" json:"rule"`
}

// DefaultConfig 返回默认引擎配置
func DefaultConfig() *Config {
	return &Config{
		ScoreThreshold:     20,
		ReassignScoreFloor: 50,
		WindowDays:         60,
		Rule:               rule.DefaultConfig(),
	}
}

// BatchContext 批次上下文
// 持有单次优化运行的全部运行态计数器，按值传递所有权穿过贪心与回溯阶段，
// 不存在任何包级可变状态
type BatchContext struct {
	cfg *Config

	employees []*model.Employee
	empByID   map[uuid.UUID]*model.Employee

	// 预加载窗口内的持久化班次（不含本批次新分配，
	// 批内同日冲突由回溯阶段统一修复）
	shiftsByEmp map[uuid.UUID][]*model.Shift

	// 运行态计数器（持久化班次 + 本批次已接受分配）
	monthCounts     map[uuid.UUID]map[string]int // empID -> YYYY-MM -> 班次数
	weekNightCounts map[uuid.UUID]map[string]int // empID -> YYYY-Www -> 夜间班次数
	datesWorked     map[uuid.UUID]map[string]bool
	occupancy       map[string]int // location|date|shiftType -> 占用人数

	// 历史科室经验（来自预加载窗口）
	locationCounts map[uuid.UUID]map[string]int

	capacities model.CapacityTable

	// 生效中的加班豁免 empID -> YYYY-MM -> true
	overrides map[uuid.UUID]map[string]bool

	accepted       []*model.Assignment
	assignedOnDate map[string]map[uuid.UUID]bool
}

// NewBatchContext 基于批次快照构建上下文
func NewBatchContext(
	cfg *Config,
	employees []*model.Employee,
	shifts []*model.Shift,
	capacities []*model.LocationCapacity,
	overrides map[uuid.UUID]map[string]bool,
) *BatchContext {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if overrides == nil {
		overrides = make(map[uuid.UUID]map[string]bool)
	}

	bc := &BatchContext{
		cfg:             cfg,
		employees:       employees,
		empByID:         make(map[uuid.UUID]*model.Employee, len(employees)),
		shiftsByEmp:     make(map[uuid.UUID][]*model.Shift),
		monthCounts:     make(map[uuid.UUID]map[string]int),
		weekNightCounts: make(map[uuid.UUID]map[string]int),
		datesWorked:     make(map[uuid.UUID]map[string]bool),
		occupancy:       make(map[string]int),
		locationCounts:  make(map[uuid.UUID]map[string]int),
		capacities:      model.NewCapacityTable(capacities),
		overrides:       overrides,
		accepted:        make([]*model.Assignment, 0),
		assignedOnDate:  make(map[string]map[uuid.UUID]bool),
	}

	for _, e := range employees {
		bc.empByID[e.ID] = e
	}

	for _, s := range shifts {
		bc.shiftsByEmp[s.EmployeeID] = append(bc.shiftsByEmp[s.EmployeeID], s)
		bc.bumpCounters(s.EmployeeID, s.Date, s.Location, s.ShiftType, 1)

		// 科室经验只统计持久化历史，批内新分配不计入
		if bc.locationCounts[s.EmployeeID] == nil {
			bc.locationCounts[s.EmployeeID] = make(map[string]int)
		}
		bc.locationCounts[s.EmployeeID][s.Location]++
	}

	return bc
}

// occupancyKey 占用计数键
func occupancyKey(location, date string, st model.ShiftType) string {
	return fmt.Sprintf("%s|%s|%s", location, date, st)
}

// bumpCounters 增减运行态计数器
func (bc *BatchContext) bumpCounters(empID uuid.UUID, date, location string, st model.ShiftType, delta int) {
	month := model.MonthOf(date)
	if bc.monthCounts[empID] == nil {
		bc.monthCounts[empID] = make(map[string]int)
	}
	bc.monthCounts[empID][month] += delta

	if st.IsNight() {
		week := model.WeekOf(date)
		if bc.weekNightCounts[empID] == nil {
			bc.weekNightCounts[empID] = make(map[string]int)
		}
		bc.weekNightCounts[empID][week] += delta
	}

	if bc.datesWorked[empID] == nil {
		bc.datesWorked[empID] = make(map[string]bool)
	}
	if delta > 0 {
		bc.datesWorked[empID][date] = true
	}

	bc.occupancy[occupancyKey(location, date, st)] += delta
}

// Employees 返回员工池
func (bc *BatchContext) Employees() []*model.Employee {
	return bc.employees
}

// Employee 获取员工
func (bc *BatchContext) Employee(id uuid.UUID) *model.Employee {
	return bc.empByID[id]
}

// Accepted 返回本批次已接受的分配
func (bc *BatchContext) Accepted() []*model.Assignment {
	return bc.accepted
}

// Capacity 获取科室容量配置
func (bc *BatchContext) Capacity(location string) *model.LocationCapacity {
	return bc.capacities.Get(location)
}

// MonthCount 获取员工某月班次数（含本批次）
func (bc *BatchContext) MonthCount(empID uuid.UUID, month string) int {
	return bc.monthCounts[empID][month]
}

// WeekNightCount 获取员工某周夜间班次数（含本批次）
func (bc *BatchContext) WeekNightCount(empID uuid.UUID, week string) int {
	return bc.weekNightCounts[empID][week]
}

// Occupancy 获取 (科室, 日期, 班次类型) 的占用人数（含本批次）
func (bc *BatchContext) Occupancy(location, date string, st model.ShiftType) int {
	return bc.occupancy[occupancyKey(location, date, st)]
}

// LocationExperience 获取员工在某科室的历史班次数
func (bc *BatchContext) LocationExperience(empID uuid.UUID, location string) int {
	return bc.locationCounts[empID][location]
}

// HasOverride 检查员工在某月是否有生效中的加班豁免
func (bc *BatchContext) HasOverride(empID uuid.UUID, month string) bool {
	return bc.overrides[empID][month]
}

// ConsecutiveDaysBefore 计算截至指定日期前一天的连续工作天数（含本批次）
func (bc *BatchContext) ConsecutiveDaysBefore(empID uuid.UUID, date string) int {
	dates := bc.datesWorked[empID]
	if len(dates) == 0 {
		return 0
	}

	count := 0
	current := model.PreviousDate(date)
	for dates[current] {
		count++
		current = model.PreviousDate(current)
		if count > 60 { // 防止异常数据导致死循环
			break
		}
	}
	return count
}

// TeamAverage 计算员工池某月的平均班次数（含本批次）
func (bc *BatchContext) TeamAverage(month string) float64 {
	if len(bc.employees) == 0 {
		return 0
	}
	total := 0
	for _, e := range bc.employees {
		total += bc.monthCounts[e.ID][month]
	}
	return float64(total) / float64(len(bc.employees))
}

// AssignedOnDate 检查员工在某日期是否已有本批次分配
func (bc *BatchContext) AssignedOnDate(empID uuid.UUID, date string) bool {
	return bc.assignedOnDate[date][empID]
}

// Candidate 构建规则评估输入
func (bc *BatchContext) Candidate(emp *model.Employee, req *model.SlotRequest) *rule.Candidate {
	month := model.MonthOf(req.Date)
	return &rule.Candidate{
		Employee:         emp,
		Request:          req,
		ExistingShifts:   bc.shiftsByEmp[emp.ID],
		MonthShiftCount:  bc.MonthCount(emp.ID, month),
		WeekNightCount:   bc.WeekNightCount(emp.ID, model.WeekOf(req.Date)),
		ConsecutiveDays:  bc.ConsecutiveDaysBefore(emp.ID, req.Date),
		TeamAverage:      bc.TeamAverage(month),
		OverworkOverride: bc.HasOverride(emp.ID, month),
		Occupancy:        bc.Occupancy(req.Location, req.Date, req.ShiftType),
		Capacity:         bc.Capacity(req.Location),
	}
}

// AddAssignment 接受分配并立即更新运行态计数器
// 同批次内后续请求会看到最新负载，以实现批内负载摊分
func (bc *BatchContext) AddAssignment(a *model.Assignment) {
	bc.accepted = append(bc.accepted, a)
	bc.bumpCounters(a.EmployeeID, a.Request.Date, a.Request.Location, a.Request.ShiftType, 1)

	if bc.assignedOnDate[a.Request.Date] == nil {
		bc.assignedOnDate[a.Request.Date] = make(map[uuid.UUID]bool)
	}
	bc.assignedOnDate[a.Request.Date][a.EmployeeID] = true
}

// RemoveAssignment 撤销分配并回滚计数器（回溯阶段使用）
func (bc *BatchContext) RemoveAssignment(id uuid.UUID) {
	for i, a := range bc.accepted {
		if a.ID != id {
			continue
		}
		bc.accepted = append(bc.accepted[:i], bc.accepted[i+1:]...)
		bc.bumpCounters(a.EmployeeID, a.Request.Date, a.Request.Location, a.Request.ShiftType, -1)

		if set := bc.assignedOnDate[a.Request.Date]; set != nil {
			delete(set, a.EmployeeID)
		}

		// 该员工当日可能还有其他持久化班次，保守重算工作日期标记
		if !bc.hasShiftOrAssignmentOn(a.EmployeeID, a.Request.Date) {
			delete(bc.datesWorked[a.EmployeeID], a.Request.Date)
		}
		return
	}
}

// hasShiftOrAssignmentOn 检查员工当日是否仍有班次或分配
func (bc *BatchContext) hasShiftOrAssignmentOn(empID uuid.UUID, date string) bool {
	for _, s := range bc.shiftsByEmp[empID] {
		if s.Date == date {
			return true
		}
	}
	for _, a := range bc.accepted {
		if a.EmployeeID == empID && a.Request.Date == date {
			return true
		}
	}
	return false
}
