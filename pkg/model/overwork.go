// Package model 定义医院排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// OverworkStatus 加班豁免申请状态
type OverworkStatus string

const (
	OverworkPending  OverworkStatus = "PENDING"
	OverworkApproved OverworkStatus = "APPROVED"
	OverworkRejected OverworkStatus = "REJECTED"
)

// IsTerminal 检查状态是否为终态
func (s OverworkStatus) IsTerminal() bool {
	return s == OverworkApproved || s == OverworkRejected
}

// OverworkType 豁免类型
type OverworkType string

const (
	OverworkTemporary OverworkType = "TEMPORARY" // 仅当月放行，不改上限
	OverworkPermanent OverworkType = "PERMANENT" // 永久提升每月上限
)

// IsValid 检查豁免类型是否合法
func (t OverworkType) IsValid() bool {
	return t == OverworkTemporary || t == OverworkPermanent
}

// OverworkRequest 加班豁免申请
// 状态机：PENDING -> APPROVED / REJECTED（均为终态）
type OverworkRequest struct {
	BaseModel
	EmployeeID      uuid.UUID      `json:"employee_id" db:"employee_id"`
	AdditionalSlots int            `json:"additional_slots" db:"additional_slots"`
	RequestType     OverworkType   `json:"request_type" db:"request_type"`
	Urgency         Priority       `json:"urgency" db:"urgency"`
	Reason          string         `json:"reason" db:"reason"`
	Status          OverworkStatus `json:"status" db:"status"`
	CurrentCeiling  int            `json:"current_ceiling" db:"current_ceiling"`
	NewCeiling      int            `json:"new_ceiling" db:"new_ceiling"`
	ReviewerID      *uuid.UUID     `json:"reviewer_id,omitempty" db:"reviewer_id"`
	ReviewerNotes   string         `json:"reviewer_notes,omitempty" db:"reviewer_notes"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty" db:"reviewed_at"`
	EffectiveMonth  string         `json:"effective_month" db:"effective_month"` // YYYY-MM，临时豁免生效的月份
}
