// Package engine 提供两阶段排班优化引擎（贪心分配 + 回溯修复）
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/audit"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/logger"
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/rule"
	"github.com/yipai/yipai/pkg/stats"
	"github.com/yipai/yipai/pkg/workload"
)

// EmployeeStore 员工读写接口
type EmployeeStore interface {
	ListActive(ctx context.Context) ([]*model.Employee, error)
	UpdateWorkloadStatus(ctx context.Context, id uuid.UUID, status model.WorkloadStatus) error
}

// ShiftStore 班次读写接口
type ShiftStore interface {
	ListWindow(ctx context.Context, from, to string) ([]*model.Shift, error)
	Create(ctx context.Context, shift *model.Shift) error

	// 落库前乐观复核使用的实时计数
	CountForEmployeeMonth(ctx context.Context, empID uuid.UUID, month string) (int, error)
	CountForLocationDate(ctx context.Context, location, date string, st model.ShiftType) (int, error)
}

// CapacityStore 科室容量配置读取接口
type CapacityStore interface {
	List(ctx context.Context) ([]*model.LocationCapacity, error)
}

// OverrideStore 加班豁免读取接口
type OverrideStore interface {
	// ActiveOverrides 返回指定月份内生效的豁免 empID -> YYYY-MM -> true
	ActiveOverrides(ctx context.Context, months []string) (map[uuid.UUID]map[string]bool, error)
}

// Engine 排班优化引擎
// 批式同步调用：一次提交整批槽位请求，等待单个结果
type Engine struct {
	cfg       *Config
	validator *rule.Validator
	scorer    *Scorer
	greedy    *GreedyAssigner
	backtrack *BacktrackingOptimizer
	detector  *audit.Detector
	fairness  *stats.FairnessAnalyzer

	employees  EmployeeStore
	shifts     ShiftStore
	capacities CapacityStore
	overrides  OverrideStore

	logger *logger.EngineLogger
}

// New 创建排班优化引擎
func New(cfg *Config, employees EmployeeStore, shifts ShiftStore, capacities CapacityStore, overrides OverrideStore) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	validator := rule.NewValidator(cfg.Rule)
	scorer := NewScorer(cfg)

	return &Engine{
		cfg:        cfg,
		validator:  validator,
		scorer:     scorer,
		greedy:     NewGreedyAssigner(cfg, validator, scorer),
		backtrack:  NewBacktrackingOptimizer(cfg, validator, scorer),
		detector:   audit.NewDetector(cfg.Rule.MinRestHours),
		fairness:   stats.NewFairnessAnalyzer(),
		employees:  employees,
		shifts:     shifts,
		capacities: capacities,
		overrides:  overrides,
		logger:     logger.NewEngineLogger(),
	}
}

// Optimize 执行一次批次优化
// 所有失败模式都降级为带说明的部分结果，不会使宿主进程崩溃
func (e *Engine) Optimize(ctx context.Context, req *OptimizeRequest) (*OptimizeResult, error) {
	start := time.Now()
	batchID := uuid.New()

	result := &OptimizeResult{
		BatchID:         batchID,
		Assignments:     make([]*model.Assignment, 0),
		Conflicts:       make([]Conflict, 0),
		WorkloadAlerts:  make([]workload.Alert, 0),
		Recommendations: make([]string, 0),
	}

	// 边界校验一次，内部不再逐层检查
	valid, inputConflicts := e.screenRequests(req.Requests)
	result.Conflicts = append(result.Conflicts, inputConflicts...)
	if len(valid) == 0 {
		result.FulfillmentRate = fulfillmentRate(0, requiredTotal(valid))
		return result, nil
	}

	// 批次快照：计数器在批次开始时从持久化班次重算
	bc, err := e.snapshot(ctx, valid)
	if err != nil {
		return nil, err
	}

	e.logger.StartBatch(batchID.String(), len(valid), len(bc.Employees()))

	// 阶段一：贪心分配
	assignments, gapConflicts, err := e.greedy.Assign(ctx, bc, valid)
	if err != nil {
		return nil, err
	}
	result.Conflicts = append(result.Conflicts, gapConflicts...)

	// 阶段二：回溯修复同日冲突
	final, conflictRecords := e.backtrack.Resolve(bc, assignments)
	result.Conflicts = append(result.Conflicts, conflictRecords...)

	// 终检：回溯后不应残留同员工时间重叠
	for _, f := range e.detector.Inspect(final) {
		empID := f.EmployeeID
		result.Conflicts = append(result.Conflicts, Conflict{
			Kind:       ConflictAuditOverlap,
			EmployeeID: &empID,
			Date:       f.Date,
			Reason:     f.Message,
		})
	}

	// 持久化：逐条写入，写前乐观复核，失败不中断批次
	persisted := e.persist(ctx, bc, final, result)
	result.Assignments = persisted

	// 汇总
	result.FulfillmentRate = fulfillmentRate(len(persisted), requiredTotal(valid))
	result.LocationCapacityStatus = e.capacityStatus(bc, valid)
	e.fillWorkloadSummary(ctx, bc, valid, result)

	e.logger.BatchComplete(batchID.String(), time.Since(start), len(persisted), result.FulfillmentRate)
	return result, nil
}

// OptimizeByWeek 按 ISO 周分块执行批次优化，合并各周结果
// 用于大日期范围的请求批次，限制单次运行的最坏时延
func (e *Engine) OptimizeByWeek(ctx context.Context, req *OptimizeRequest) (*OptimizeResult, error) {
	byWeek := make(map[string][]*model.SlotRequest)
	for _, r := range req.Requests {
		week := model.WeekOf(r.Date)
		byWeek[week] = append(byWeek[week], r)
	}

	weeks := make([]string, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)

	merged := &OptimizeResult{
		BatchID:         uuid.New(),
		Assignments:     make([]*model.Assignment, 0),
		Conflicts:       make([]Conflict, 0),
		WorkloadAlerts:  make([]workload.Alert, 0),
		Recommendations: make([]string, 0),
	}

	accepted := 0
	required := 0
	for _, w := range weeks {
		chunk, err := e.Optimize(ctx, &OptimizeRequest{Requests: byWeek[w]})
		if err != nil {
			return merged, err
		}
		merged.Assignments = append(merged.Assignments, chunk.Assignments...)
		merged.Conflicts = append(merged.Conflicts, chunk.Conflicts...)
		merged.WorkloadAlerts = chunk.WorkloadAlerts // 最后一周的告警反映最新状态
		merged.LocationCapacityStatus = append(merged.LocationCapacityStatus, chunk.LocationCapacityStatus...)
		merged.Recommendations = chunk.Recommendations

		accepted += len(chunk.Assignments)
		required += requiredTotal(byWeek[w])
	}

	merged.FulfillmentRate = fulfillmentRate(accepted, required)
	return merged, nil
}

// screenRequests 边界输入校验，不合法请求逐条报告且不中断批次
func (e *Engine) screenRequests(requests []*model.SlotRequest) ([]*model.SlotRequest, []Conflict) {
	valid := make([]*model.SlotRequest, 0, len(requests))
	conflicts := make([]Conflict, 0)

	for _, r := range requests {
		reason := screenRequest(r)
		if reason != "" {
			conflicts = append(conflicts, Conflict{
				Kind:      ConflictInputError,
				RequestID: r.ID,
				Date:      r.Date,
				Location:  r.Location,
				Reason:    reason,
			})
			continue
		}
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		valid = append(valid, r)
	}

	return valid, conflicts
}

// screenRequest 检查单个请求，合法时返回空串
func screenRequest(r *model.SlotRequest) string {
	if r.Date == "" {
		return "缺少日期"
	}
	if _, err := time.Parse(model.DateFormat, r.Date); err != nil {
		return fmt.Sprintf("日期 %q 无法解析", r.Date)
	}
	if r.Location == "" {
		return "缺少科室"
	}
	if !r.ShiftType.IsValid() {
		return fmt.Sprintf("班次类型 %q 不合法", r.ShiftType)
	}
	if r.RequiredCount < 1 {
		return "所需人数必须不小于 1"
	}
	if r.RequiredRole != "" && !r.RequiredRole.IsValid() {
		return fmt.Sprintf("指定角色 %q 不合法", r.RequiredRole)
	}
	return ""
}

// snapshot 加载批次快照并构建上下文
func (e *Engine) snapshot(ctx context.Context, requests []*model.SlotRequest) (*BatchContext, error) {
	minDate, maxDate := requests[0].Date, requests[0].Date
	months := make(map[string]bool)
	for _, r := range requests {
		if r.Date < minDate {
			minDate = r.Date
		}
		if r.Date > maxDate {
			maxDate = r.Date
		}
		months[model.MonthOf(r.Date)] = true
	}

	half := e.cfg.WindowDays / 2
	from := addDays(minDate, -half)
	to := addDays(maxDate, half)

	employees, err := e.employees.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载员工名册失败")
	}

	shifts, err := e.shifts.ListWindow(ctx, from, to)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载班次窗口失败")
	}

	capacities, err := e.capacities.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载科室容量配置失败")
	}

	monthList := make([]string, 0, len(months))
	for m := range months {
		monthList = append(monthList, m)
	}
	sort.Strings(monthList)

	overrides, err := e.overrides.ActiveOverrides(ctx, monthList)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "加载加班豁免失败")
	}

	return NewBatchContext(e.cfg, employees, shifts, capacities, overrides), nil
}

// persist 持久化最终分配
// 两个并发批次可能基于同一快照双双校验通过（跨批竞态），
// 因此每条写入前都针对持久化存储做一次乐观复核，过期分配被拒绝并报告
func (e *Engine) persist(ctx context.Context, bc *BatchContext, final []*model.Assignment, result *OptimizeResult) []*model.Assignment {
	persisted := make([]*model.Assignment, 0, len(final))

	for _, a := range final {
		emp := bc.Employee(a.EmployeeID)
		if emp == nil {
			continue
		}
		month := model.MonthOf(a.Request.Date)

		// 乐观复核一：每月上限
		count, err := e.shifts.CountForEmployeeMonth(ctx, a.EmployeeID, month)
		if err == nil && count >= emp.Ceiling() && !bc.HasOverride(a.EmployeeID, month) {
			stale := errors.StaleAssignment(emp.Name, a.Request.Date,
				fmt.Sprintf("并发批次已将当月班次推至 %d，达到上限 %d", count, emp.Ceiling()))
			empID := a.EmployeeID
			result.Conflicts = append(result.Conflicts, Conflict{
				Kind:       ConflictStale,
				RequestID:  a.Request.ID,
				EmployeeID: &empID,
				Date:       a.Request.Date,
				Reason:     stale.Message,
			})
			continue
		}

		// 乐观复核二：科室容量
		if cap := bc.Capacity(a.Request.Location); cap != nil && cap.MaxStaffPerDay > 0 {
			occ, err := e.shifts.CountForLocationDate(ctx, a.Request.Location, a.Request.Date, a.Request.ShiftType)
			if err == nil && occ >= cap.MaxStaffPerDay {
				stale := errors.StaleAssignment(emp.Name, a.Request.Date,
					fmt.Sprintf("并发批次已将科室占用推至 %d，达到上限 %d", occ, cap.MaxStaffPerDay))
				empID := a.EmployeeID
				result.Conflicts = append(result.Conflicts, Conflict{
					Kind:       ConflictStale,
					RequestID:  a.Request.ID,
					EmployeeID: &empID,
					Date:       a.Request.Date,
					Location:   a.Request.Location,
					Reason:     stale.Message,
				})
				continue
			}
		}

		if err := e.shifts.Create(ctx, a.ToShift()); err != nil {
			e.logger.PersistFailure(a.EmployeeID.String(), a.Request.Date, err)
			empID := a.EmployeeID
			result.Conflicts = append(result.Conflicts, Conflict{
				Kind:       ConflictPersistFailed,
				RequestID:  a.Request.ID,
				EmployeeID: &empID,
				Date:       a.Request.Date,
				Reason:     fmt.Sprintf("班次写入失败: %v", err),
			})
			continue
		}

		persisted = append(persisted, a)
	}

	return persisted
}

// capacityStatus 汇总本批次触达的 (科室, 日期, 班次类型) 容量状态
func (e *Engine) capacityStatus(bc *BatchContext, requests []*model.SlotRequest) []CapacityStatus {
	seen := make(map[string]bool)
	statuses := make([]CapacityStatus, 0)

	for _, r := range requests {
		key := occupancyKey(r.Location, r.Date, r.ShiftType)
		if seen[key] {
			continue
		}
		seen[key] = true

		max := 0
		if cap := bc.Capacity(r.Location); cap != nil {
			max = cap.MaxStaffPerDay
		}
		occ := bc.Occupancy(r.Location, r.Date, r.ShiftType)

		statuses = append(statuses, CapacityStatus{
			Location:  r.Location,
			Date:      r.Date,
			ShiftType: r.ShiftType,
			Occupancy: occ,
			Max:       max,
			Full:      max > 0 && occ >= max,
		})
	}

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Date != statuses[j].Date {
			return statuses[i].Date < statuses[j].Date
		}
		return statuses[i].Location < statuses[j].Location
	})

	return statuses
}

// fillWorkloadSummary 生成负载告警、建议并回写员工状态
func (e *Engine) fillWorkloadSummary(ctx context.Context, bc *BatchContext, requests []*model.SlotRequest, result *OptimizeResult) {
	month := model.MonthOf(requests[0].Date)
	asOf := requests[0].Date
	for _, r := range requests {
		if r.Date > asOf {
			asOf = r.Date
		}
	}

	tracker := workload.NewTracker(&workload.Config{
		MaxConsecutiveDays: e.cfg.Rule.MaxConsecutiveDays,
		CeilingWarnRatio:   e.cfg.Rule.CeilingWarnRatio,
	})

	monthCounts := make(map[uuid.UUID]int)
	nightCounts := make(map[uuid.UUID]int)
	for _, emp := range bc.Employees() {
		monthCounts[emp.ID] = bc.MonthCount(emp.ID, month)
	}
	for _, a := range result.Assignments {
		if a.Request.ShiftType.IsNight() {
			nightCounts[a.EmployeeID]++
		}
	}

	// 状态分级作为批次收尾的副作用写回员工实体与存储
	for _, emp := range bc.Employees() {
		status := tracker.Classify(monthCounts[emp.ID], emp.Ceiling(), bc.ConsecutiveDaysBefore(emp.ID, model.NextDate(asOf)))
		if emp.WorkloadStatus == model.WorkloadDisabled || emp.WorkloadStatus == status {
			continue
		}
		emp.WorkloadStatus = status
		if err := e.employees.UpdateWorkloadStatus(ctx, emp.ID, status); err != nil {
			logger.WithError(err).Str("employee_id", emp.ID.String()).Msg("员工负载状态写回失败")
		}
	}

	// 告警
	for _, emp := range bc.Employees() {
		count := monthCounts[emp.ID]
		consecutive := bc.ConsecutiveDaysBefore(emp.ID, model.NextDate(asOf))
		status := tracker.Classify(count, emp.Ceiling(), consecutive)
		if status == model.WorkloadNormal {
			continue
		}
		result.WorkloadAlerts = append(result.WorkloadAlerts, workload.Alert{
			EmployeeID:      emp.ID,
			EmployeeName:    emp.Name,
			CurrentShifts:   count,
			ConsecutiveDays: consecutive,
			Status:          status,
			Recommendation:  workload.RecommendationFor(status, count, emp.Ceiling()),
		})
	}
	sort.Slice(result.WorkloadAlerts, func(i, j int) bool {
		return result.WorkloadAlerts[i].EmployeeName < result.WorkloadAlerts[j].EmployeeName
	})

	// 公平性建议
	metrics := e.fairness.Analyze(bc.Employees(), monthCounts, nightCounts)
	result.Recommendations = e.fairness.Recommendations(metrics)
}

// requiredTotal 统计批次请求的总所需人数
func requiredTotal(requests []*model.SlotRequest) int {
	total := 0
	for _, r := range requests {
		total += r.RequiredCount
	}
	return total
}

// addDays 在日期字符串上加减天数
func addDays(date string, days int) string {
	t, err := time.Parse(model.DateFormat, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format(model.DateFormat)
}
