// Package overwork 实现加班豁免申请的审批工作流
package overwork

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/errors"
	"github.com/yipai/yipai/pkg/logger"
	"github.com/yipai/yipai/pkg/model"
)

// Store 豁免申请存储接口
type Store interface {
	Create(ctx context.Context, req *model.OverworkRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.OverworkRequest, error)

	// ClaimPending 条件读取 PENDING 申请；终态流转由 Update 的
	// 条件更新兜底。申请不存在或已离开 PENDING 状态时返回 nil
	ClaimPending(ctx context.Context, id uuid.UUID) (*model.OverworkRequest, error)

	Update(ctx context.Context, req *model.OverworkRequest) error
	ListByStatus(ctx context.Context, status model.OverworkStatus) ([]*model.OverworkRequest, error)

	// ListApprovedTemporaryBefore 列出生效月份早于 month 的已批准临时豁免
	ListApprovedTemporaryBefore(ctx context.Context, month string) ([]*model.OverworkRequest, error)
}

// EmployeeStore 员工读写接口
type EmployeeStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Employee, error)
	UpdateCeiling(ctx context.Context, id uuid.UUID, ceiling int) error
	UpdateWorkloadStatus(ctx context.Context, id uuid.UUID, status model.WorkloadStatus) error
}

// Notifier 工作流通知接口，可为 nil
type Notifier interface {
	// NotifyCreated 申请提交后通知申请人与管理员待审队列
	NotifyCreated(ctx context.Context, req *model.OverworkRequest)
	// NotifyStatusChange 审批终态后通知申请人
	NotifyStatusChange(ctx context.Context, req *model.OverworkRequest)
}

// CreateInput 豁免申请创建参数
type CreateInput struct {
	EmployeeID      uuid.UUID          `json:"employee_id"`
	AdditionalSlots int                `json:"additional_slots"`
	RequestType     model.OverworkType `json:"request_type"`
	Urgency         model.Priority     `json:"urgency"`
	Reason          string             `json:"reason"`
	EffectiveMonth  string             `json:"effective_month,omitempty"` // 缺省为当前月
}

// Service 加班豁免审批服务
type Service struct {
	store     Store
	employees EmployeeStore
	notifier  Notifier
	logger    *logger.EngineLogger
}

// NewService 创建审批服务
func NewService(store Store, employees EmployeeStore, notifier Notifier) *Service {
	return &Service{
		store:     store,
		employees: employees,
		notifier:  notifier,
		logger:    logger.NewEngineLogger(),
	}
}

// CreateRequest 提交豁免申请，初始状态为 PENDING
func (s *Service) CreateRequest(ctx context.Context, input *CreateInput) (*model.OverworkRequest, error) {
	if input.AdditionalSlots <= 0 {
		return nil, errors.New(errors.CodeValidationFail, "追加班次数必须大于 0")
	}
	if !input.RequestType.IsValid() {
		return nil, errors.New(errors.CodeValidationFail, fmt.Sprintf("豁免类型 %q 不合法", input.RequestType))
	}

	emp, err := s.employees.GetByID(ctx, input.EmployeeID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "员工不存在")
	}
	if !emp.IsActive() {
		return nil, errors.New(errors.CodeValidationFail, "员工未激活或已禁用排班，不能申请豁免")
	}

	month := input.EffectiveMonth
	if month == "" {
		month = time.Now().Format("2006-01")
	}

	req := &model.OverworkRequest{
		BaseModel:       model.NewBaseModel(),
		EmployeeID:      emp.ID,
		AdditionalSlots: input.AdditionalSlots,
		RequestType:     input.RequestType,
		Urgency:         input.Urgency,
		Reason:          input.Reason,
		Status:          model.OverworkPending,
		CurrentCeiling:  emp.Ceiling(),
		NewCeiling:      emp.Ceiling() + input.AdditionalSlots,
		EffectiveMonth:  month,
	}

	if err := s.store.Create(ctx, req); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "豁免申请写入失败")
	}

	s.logger.WorkflowTransition(req.ID.String(), "", string(model.OverworkPending))
	if s.notifier != nil {
		s.notifier.NotifyCreated(ctx, req)
	}
	return req, nil
}

// Approve 批准豁免申请
// PERMANENT：员工每月上限提升至 NewCeiling，负载状态回到 NORMAL；
// TEMPORARY：上限不变，仅当月放行，负载状态置为 HIGH 保持可见。
// 申请已处于终态时返回幂等冲突错误
func (s *Service) Approve(ctx context.Context, requestID, reviewerID uuid.UUID, notes string) (*model.OverworkRequest, error) {
	req, err := s.claim(ctx, requestID)
	if err != nil {
		return nil, err
	}

	emp, err := s.employees.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "员工不存在")
	}

	now := time.Now()
	req.Status = model.OverworkApproved
	req.ReviewerID = &reviewerID
	req.ReviewerNotes = notes
	req.ReviewedAt = &now

	// 条件更新失败说明另一审批者在认领后抢先完成流转。
	// 终态流转必须先于任何员工侧写入，竞态败者不得触碰员工记录
	if err := s.store.Update(ctx, req); err != nil {
		return nil, errors.WorkflowConflict(req.ID.String(), string(model.OverworkApproved)).WithCause(err)
	}

	switch req.RequestType {
	case model.OverworkPermanent:
		if err := s.employees.UpdateCeiling(ctx, emp.ID, req.NewCeiling); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "员工上限更新失败")
		}
		emp.MonthlyShiftCeiling = req.NewCeiling
		if err := s.employees.UpdateWorkloadStatus(ctx, emp.ID, model.WorkloadNormal); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "员工负载状态更新失败")
		}
	case model.OverworkTemporary:
		if err := s.employees.UpdateWorkloadStatus(ctx, emp.ID, model.WorkloadHigh); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "员工负载状态更新失败")
		}
	}

	s.logger.WorkflowTransition(req.ID.String(), string(model.OverworkPending), string(model.OverworkApproved))
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, req)
	}
	return req, nil
}

// Reject 驳回豁免申请，不产生任何员工侧变更
func (s *Service) Reject(ctx context.Context, requestID, reviewerID uuid.UUID, notes string) (*model.OverworkRequest, error) {
	req, err := s.claim(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	req.Status = model.OverworkRejected
	req.ReviewerID = &reviewerID
	req.ReviewerNotes = notes
	req.ReviewedAt = &now

	// 条件更新失败说明另一审批者在认领后抢先完成流转
	if err := s.store.Update(ctx, req); err != nil {
		return nil, errors.WorkflowConflict(req.ID.String(), string(model.OverworkRejected)).WithCause(err)
	}

	s.logger.WorkflowTransition(req.ID.String(), string(model.OverworkPending), string(model.OverworkRejected))
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, req)
	}
	return req, nil
}

// Get 查询豁免申请
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.OverworkRequest, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "豁免申请不存在")
	}
	return req, nil
}

// ListPending 列出待审批申请
func (s *Service) ListPending(ctx context.Context) ([]*model.OverworkRequest, error) {
	return s.store.ListByStatus(ctx, model.OverworkPending)
}

// ReconcileMonthRollover 月度对账
// 临时豁免仅在生效月内放行；月份翻转后由外部调度器调用本方法，
// 将仍处于 HIGH 状态的受益员工恢复为 NORMAL
func (s *Service) ReconcileMonthRollover(ctx context.Context, currentMonth string) (int, error) {
	expired, err := s.store.ListApprovedTemporaryBefore(ctx, currentMonth)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "过期临时豁免查询失败")
	}

	reset := 0
	for _, req := range expired {
		emp, err := s.employees.GetByID(ctx, req.EmployeeID)
		if err != nil {
			logger.WithError(err).Str("employee_id", req.EmployeeID.String()).Msg("月度对账：员工查询失败")
			continue
		}
		if emp.WorkloadStatus != model.WorkloadHigh {
			continue
		}
		if err := s.employees.UpdateWorkloadStatus(ctx, emp.ID, model.WorkloadNormal); err != nil {
			logger.WithError(err).Str("employee_id", emp.ID.String()).Msg("月度对账：状态恢复失败")
			continue
		}
		reset++
	}

	logger.Info().Str("month", currentMonth).Int("reset", reset).Msg("临时豁免月度对账完成")
	return reset, nil
}

// claim 原子认领 PENDING 申请
func (s *Service) claim(ctx context.Context, requestID uuid.UUID) (*model.OverworkRequest, error) {
	req, err := s.store.ClaimPending(ctx, requestID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "豁免申请认领失败")
	}
	if req == nil {
		// 已终态或不存在：读取现状用于幂等冲突报告
		existing, err := s.store.GetByID(ctx, requestID)
		if err != nil || existing == nil {
			return nil, errors.New(errors.CodeNotFound, "豁免申请不存在")
		}
		return nil, errors.WorkflowConflict(requestID.String(), string(existing.Status))
	}
	return req, nil
}
