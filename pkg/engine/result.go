// Package engine 提供两阶段排班优化引擎（贪心分配 + 回溯修复）
package engine

import (
	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/workload"
)

// ConflictKind 冲突类别
type ConflictKind string

const (
	ConflictInputError      ConflictKind = "input_error"       // 请求输入不合法
	ConflictFulfillmentGap  ConflictKind = "fulfillment_gap"   // 候选人不足，未满编
	ConflictCapacityBlocked ConflictKind = "capacity_blocked"  // 科室容量已满
	ConflictDoubleBooking   ConflictKind = "double_booking"    // 同日重复分配被放弃
	ConflictStale           ConflictKind = "stale_assignment"  // 落库前复核发现快照过期
	ConflictPersistFailed   ConflictKind = "persist_failed"    // 班次写入失败
	ConflictAuditOverlap    ConflictKind = "audit_overlap"     // 终检发现时间重叠
)

// Conflict 批次冲突记录
type Conflict struct {
	Kind       ConflictKind `json:"kind"`
	RequestID  uuid.UUID    `json:"request_id,omitempty"`
	EmployeeID *uuid.UUID   `json:"employee_id,omitempty"`
	Date       string       `json:"date,omitempty"`
	Location   string       `json:"location,omitempty"`
	Reason     string       `json:"reason"`
}

// CapacityStatus 科室容量状态
type CapacityStatus struct {
	Location  string          `json:"location"`
	Date      string          `json:"date"`
	ShiftType model.ShiftType `json:"shift_type"`
	Occupancy int             `json:"occupancy"`
	Max       int             `json:"max"`
	Full      bool            `json:"full"`
}

// OptimizeRequest 批次优化请求
type OptimizeRequest struct {
	Requests []*model.SlotRequest `json:"requests"`
}

// OptimizeResult 批次优化结果
type OptimizeResult struct {
	BatchID                uuid.UUID           `json:"batch_id"`
	Assignments            []*model.Assignment `json:"assignments"`
	Conflicts              []Conflict          `json:"conflicts"`
	WorkloadAlerts         []workload.Alert    `json:"workload_alerts"`
	LocationCapacityStatus []CapacityStatus    `json:"location_capacity_status"`
	FulfillmentRate        float64             `json:"fulfillment_rate"` // 0-100
	Recommendations        []string            `json:"recommendations"`
}

// fulfillmentRate 计算完成率并收敛到 [0,100]
// 无有效需求的批次不存在可完成的名额，完成率记为 0
func fulfillmentRate(accepted, required int) float64 {
	if required <= 0 {
		return 0
	}
	rate := float64(accepted) / float64(required) * 100
	if rate < 0 {
		return 0
	}
	if rate > 100 {
		return 100
	}
	return rate
}
