package overwork

import (
	"context"

	"github.com/yipai/yipai/pkg/logger"
	"github.com/yipai/yipai/pkg/model"
)

// LogNotifier 基于结构化日志的缺省通知实现
// 外部通知通道（邮件、站内信）接入前，申请人与管理员待审队列的
// 通知均落到日志，便于排查与审计
type LogNotifier struct{}

// NewLogNotifier 创建日志通知器
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// NotifyCreated 申请提交通知
func (n *LogNotifier) NotifyCreated(ctx context.Context, req *model.OverworkRequest) {
	logger.Info().
		Str("request_id", req.ID.String()).
		Str("employee_id", req.EmployeeID.String()).
		Str("request_type", string(req.RequestType)).
		Str("urgency", req.Urgency.String()).
		Str("effective_month", req.EffectiveMonth).
		Msg("豁免申请已提交，已通知申请人与管理员待审队列")
}

// NotifyStatusChange 审批终态通知
func (n *LogNotifier) NotifyStatusChange(ctx context.Context, req *model.OverworkRequest) {
	logger.Info().
		Str("request_id", req.ID.String()).
		Str("employee_id", req.EmployeeID.String()).
		Str("status", string(req.Status)).
		Msg("豁免申请审批结果已通知申请人")
}
