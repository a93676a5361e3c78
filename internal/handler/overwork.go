// Package handler 提供HTTP请求处理器
package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/yipai/yipai/internal/metrics"
	"github.com/yipai/yipai/internal/middleware"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/overwork"
)

// OverworkHandler 加班豁免审批处理器
type OverworkHandler struct {
	service *overwork.Service
}

// NewOverworkHandler 创建加班豁免审批处理器
func NewOverworkHandler(service *overwork.Service) *OverworkHandler {
	return &OverworkHandler{service: service}
}

// CreateOverworkInput 豁免申请输入
type CreateOverworkInput struct {
	EmployeeID      string `json:"employee_id" validate:"required,uuid"`
	AdditionalSlots int    `json:"additional_slots" validate:"required,min=1"`
	RequestType     string `json:"request_type" validate:"required,oneof=TEMPORARY PERMANENT"`
	Urgency         int    `json:"urgency" validate:"omitempty,min=1,max=4"`
	Reason          string `json:"reason" validate:"required"`
	EffectiveMonth  string `json:"effective_month,omitempty" validate:"omitempty,datetime=2006-01"`
}

// ReviewInput 审批输入
type ReviewInput struct {
	Notes string `json:"notes,omitempty"`
}

// Create 提交豁免申请
func (h *OverworkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input CreateOverworkInput
	if err := decodeAndValidate(r, &input); err != nil {
		respondError(w, err)
		return
	}

	empID, err := uuid.Parse(input.EmployeeID)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的员工ID格式"))
		return
	}

	urgency := model.Priority(input.Urgency)
	if input.Urgency == 0 {
		urgency = model.PriorityNormal
	}

	req, err := h.service.CreateRequest(r.Context(), &overwork.CreateInput{
		EmployeeID:      empID,
		AdditionalSlots: input.AdditionalSlots,
		RequestType:     model.OverworkType(input.RequestType),
		Urgency:         urgency,
		Reason:          input.Reason,
		EffectiveMonth:  input.EffectiveMonth,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	metrics.RecordWorkflowTransition(string(model.OverworkPending))
	respondJSON(w, http.StatusCreated, req)
}

// Approve 批准豁免申请
func (h *OverworkHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, model.OverworkApproved)
}

// Reject 驳回豁免申请
func (h *OverworkHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, model.OverworkRejected)
}

// review 执行审批动作
func (h *OverworkHandler) review(w http.ResponseWriter, r *http.Request, target model.OverworkStatus) {
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的申请ID格式"))
		return
	}

	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, errors.ErrUnauthorized)
		return
	}

	var input ReviewInput
	if r.ContentLength > 0 {
		if err := decodeAndValidate(r, &input); err != nil {
			respondError(w, err)
			return
		}
	}

	var req *model.OverworkRequest
	if target == model.OverworkApproved {
		req, err = h.service.Approve(r.Context(), requestID, actor.ID, input.Notes)
	} else {
		req, err = h.service.Reject(r.Context(), requestID, actor.ID, input.Notes)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	metrics.RecordWorkflowTransition(string(target))
	respondJSON(w, http.StatusOK, req)
}

// Get 查询豁免申请
func (h *OverworkHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的申请ID格式"))
		return
	}

	req, err := h.service.Get(r.Context(), requestID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// ListPending 列出待审批申请
func (h *OverworkHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListPending(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"count":    len(requests),
	})
}
