// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/internal/metrics"
	"github.com/yipai/yipai/pkg/engine"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/model"
)

// OptimizeHandler 批次优化处理器
type OptimizeHandler struct {
	engine  *engine.Engine
	timeout time.Duration
}

// NewOptimizeHandler 创建批次优化处理器
func NewOptimizeHandler(eng *engine.Engine, timeout time.Duration) *OptimizeHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OptimizeHandler{engine: eng, timeout: timeout}
}

// SlotRequestInput 槽位请求输入
type SlotRequestInput struct {
	ID             string   `json:"id,omitempty"`
	Date           string   `json:"date" validate:"required,datetime=2006-01-02"`
	Location       string   `json:"location" validate:"required"`
	ShiftType      string   `json:"shift_type" validate:"required,oneof=MORNING AFTERNOON NIGHT ON_CALL STANDBY"`
	RequiredCount  int      `json:"required_count" validate:"required,min=1"`
	Priority       int      `json:"priority" validate:"omitempty,min=1,max=4"`
	RequiredRole   string   `json:"required_role,omitempty" validate:"omitempty,oneof=PHYSICIAN NURSE STAFF SUPERVISOR ADMIN"`
	PreferredRoles []string `json:"preferred_roles,omitempty" validate:"dive,oneof=PHYSICIAN NURSE STAFF SUPERVISOR ADMIN"`
	Skills         []string `json:"skills,omitempty"`
}

// OptimizeInput 批次优化输入
type OptimizeInput struct {
	Requests []SlotRequestInput `json:"requests" validate:"required,min=1,dive"`
	ByWeek   bool               `json:"by_week,omitempty"` // 大批次按ISO周分块执行
}

// AssignmentOutput 分配输出
type AssignmentOutput struct {
	ID         string `json:"id"`
	RequestID  string `json:"request_id"`
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	Location   string `json:"location"`
	ShiftType  string `json:"shift_type"`
	Score      int    `json:"score"`
	Rationale  string `json:"rationale"`
}

// OptimizeOutput 批次优化输出
type OptimizeOutput struct {
	BatchID                string                  `json:"batch_id"`
	Assignments            []AssignmentOutput      `json:"assignments"`
	Conflicts              []engine.Conflict       `json:"conflicts"`
	WorkloadAlerts         interface{}             `json:"workload_alerts"`
	LocationCapacityStatus []engine.CapacityStatus `json:"location_capacity_status"`
	FulfillmentRate        float64                 `json:"fulfillment_rate"`
	Recommendations        []string                `json:"recommendations"`
	Duration               string                  `json:"duration"`
}

// Optimize 执行批次优化
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var input OptimizeInput
	if err := decodeAndValidate(r, &input); err != nil {
		respondError(w, err)
		return
	}

	req := &engine.OptimizeRequest{Requests: make([]*model.SlotRequest, 0, len(input.Requests))}
	for _, in := range input.Requests {
		req.Requests = append(req.Requests, toSlotRequest(in))
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	var result *engine.OptimizeResult
	var err error
	if input.ByWeek {
		result, err = h.engine.OptimizeByWeek(ctx, req)
	} else {
		result, err = h.engine.Optimize(ctx, req)
	}
	duration := time.Since(start)

	if err != nil {
		metrics.RecordBatchOptimization(false, duration, 0)
		if err == context.DeadlineExceeded || ctx.Err() == context.DeadlineExceeded {
			respondError(w, errors.New(errors.CodeTimeout, "批次优化超时，请缩小请求批次"))
			return
		}
		respondError(w, err)
		return
	}

	metrics.RecordBatchOptimization(true, duration, result.FulfillmentRate)
	for _, c := range result.Conflicts {
		metrics.RecordConflict(string(c.Kind))
	}

	respondJSON(w, http.StatusOK, toOptimizeOutput(result, duration))
}

// toSlotRequest 输入DTO转领域模型
func toSlotRequest(in SlotRequestInput) *model.SlotRequest {
	id := uuid.Nil
	if in.ID != "" {
		if parsed, err := uuid.Parse(in.ID); err == nil {
			id = parsed
		}
	}

	priority := model.Priority(in.Priority)
	if in.Priority == 0 {
		priority = model.PriorityNormal
	}

	roles := make([]model.Role, 0, len(in.PreferredRoles))
	for _, role := range in.PreferredRoles {
		roles = append(roles, model.Role(role))
	}

	return &model.SlotRequest{
		ID:             id,
		Date:           in.Date,
		Location:       in.Location,
		ShiftType:      model.ShiftType(in.ShiftType),
		RequiredCount:  in.RequiredCount,
		Priority:       priority,
		RequiredRole:   model.Role(in.RequiredRole),
		PreferredRoles: roles,
		Skills:         in.Skills,
	}
}

// toOptimizeOutput 构建响应
func toOptimizeOutput(result *engine.OptimizeResult, duration time.Duration) OptimizeOutput {
	assignments := make([]AssignmentOutput, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		assignments = append(assignments, AssignmentOutput{
			ID:         a.ID.String(),
			RequestID:  a.Request.ID.String(),
			EmployeeID: a.EmployeeID.String(),
			Date:       a.Request.Date,
			Location:   a.Request.Location,
			ShiftType:  string(a.Request.ShiftType),
			Score:      a.Score,
			Rationale:  a.Rationale,
		})
	}

	return OptimizeOutput{
		BatchID:                result.BatchID.String(),
		Assignments:            assignments,
		Conflicts:              result.Conflicts,
		WorkloadAlerts:         result.WorkloadAlerts,
		LocationCapacityStatus: result.LocationCapacityStatus,
		FulfillmentRate:        result.FulfillmentRate,
		Recommendations:        result.Recommendations,
		Duration:               duration.String(),
	}
}
