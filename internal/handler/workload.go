// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/internal/metrics"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/stats"
	"github.com/yipai/yipai/pkg/workload"
)

// WorkloadReader 负载查询所需的数据访问
type WorkloadReader interface {
	ListActive(ctx context.Context) ([]*model.Employee, error)
}

// ShiftReader 班次查询接口
type ShiftReader interface {
	ListWindow(ctx context.Context, from, to string) ([]*model.Shift, error)
}

// CapacityReader 科室容量配置查询接口
type CapacityReader interface {
	List(ctx context.Context) ([]*model.LocationCapacity, error)
}

// WorkloadHandler 负载与公平性查询处理器
type WorkloadHandler struct {
	cfg        *workload.Config
	employees  WorkloadReader
	shifts     ShiftReader
	capacities CapacityReader
	fairness   *stats.FairnessAnalyzer
}

// NewWorkloadHandler 创建负载查询处理器
func NewWorkloadHandler(cfg *workload.Config, employees WorkloadReader, shifts ShiftReader, capacities CapacityReader) *WorkloadHandler {
	return &WorkloadHandler{
		cfg:        cfg,
		employees:  employees,
		shifts:     shifts,
		capacities: capacities,
		fairness:   stats.NewFairnessAnalyzer(),
	}
}

// Alerts 查询指定月份的员工负载告警
func (h *WorkloadHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	month, asOf, err := monthParams(r)
	if err != nil {
		respondError(w, err)
		return
	}

	tracker, _, err := h.loadTracker(r.Context(), month)
	if err != nil {
		respondError(w, err)
		return
	}

	alerts := tracker.Alerts(month, asOf)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"month":  month,
		"as_of":  asOf,
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// Fairness 查询指定月份的公平性报告
func (h *WorkloadHandler) Fairness(w http.ResponseWriter, r *http.Request) {
	month, _, err := monthParams(r)
	if err != nil {
		respondError(w, err)
		return
	}

	tracker, snapshot, err := h.loadTracker(r.Context(), month)
	if err != nil {
		respondError(w, err)
		return
	}

	monthCounts := make(map[uuid.UUID]int)
	nightCounts := make(map[uuid.UUID]int)
	for _, emp := range snapshot.employees {
		monthCounts[emp.ID] = tracker.MonthCount(emp.ID, month)
	}
	for _, s := range snapshot.shifts {
		if model.MonthOf(s.Date) == month && s.ShiftType.IsNight() {
			nightCounts[s.EmployeeID]++
		}
	}

	report := h.fairness.Analyze(snapshot.employees, monthCounts, nightCounts)
	metrics.SetFairnessGini("shift", report.ShiftGini)
	metrics.SetFairnessGini("night_shift", report.NightShiftGini)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"month":           month,
		"metrics":         report,
		"recommendations": h.fairness.Recommendations(report),
	})
}

// trackerSnapshot 构建跟踪器时加载的原始数据
type trackerSnapshot struct {
	employees []*model.Employee
	shifts    []*model.Shift
}

// loadTracker 加载整月数据并重建负载跟踪器
func (h *WorkloadHandler) loadTracker(ctx context.Context, month string) (*workload.Tracker, *trackerSnapshot, error) {
	employees, err := h.employees.ListActive(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "加载员工名册失败")
	}

	from := month + "-01"
	to := month + "-31"
	shifts, err := h.shifts.ListWindow(ctx, from, to)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "加载班次失败")
	}

	capacities, err := h.capacities.List(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "加载科室容量配置失败")
	}

	tracker := workload.NewTracker(h.cfg)
	tracker.Load(employees, shifts, capacities)
	return tracker, &trackerSnapshot{employees: employees, shifts: shifts}, nil
}

// monthParams 解析 month / as_of 查询参数
func monthParams(r *http.Request) (month, asOf string, err error) {
	month = r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	} else if _, parseErr := time.Parse("2006-01", month); parseErr != nil {
		return "", "", errors.InvalidInput("month", "格式应为YYYY-MM")
	}

	asOf = r.URL.Query().Get("as_of")
	if asOf == "" {
		asOf = time.Now().Format(model.DateFormat)
	} else if _, parseErr := time.Parse(model.DateFormat, asOf); parseErr != nil {
		return "", "", errors.InvalidInput("as_of", "格式应为YYYY-MM-DD")
	}

	return month, asOf, nil
}
