// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/yipai/yipai/pkg/model"
)

// OverworkRepository 加班豁免申请仓储
type OverworkRepository struct {
	db DB
}

// NewOverworkRepository 创建加班豁免申请仓储
func NewOverworkRepository(db DB) *OverworkRepository {
	return &OverworkRepository{db: db}
}

// Create 创建豁免申请
func (r *OverworkRepository) Create(ctx context.Context, req *model.OverworkRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now

	query := `
		INSERT INTO overwork_requests (
			id, employee_id, additional_slots, request_type, urgency, reason,
			status, current_ceiling, new_ceiling, effective_month, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.EmployeeID, req.AdditionalSlots, req.RequestType, req.Urgency,
		req.Reason, req.Status, req.CurrentCeiling, req.NewCeiling, req.EffectiveMonth,
		req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建豁免申请失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取豁免申请
func (r *OverworkRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.OverworkRequest, error) {
	query := overworkSelect + ` WHERE id = $1`
	req, err := scanOverwork(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("豁免申请不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("查询豁免申请失败: %w", err)
	}
	return req, nil
}

// ClaimPending 认领 PENDING 申请
// 单条条件语句读取；终态写回由 Update 的条件更新兜底，
// 两个并发审批者最多一个能完成状态流转。
// 申请不存在或已离开 PENDING 时返回 nil
func (r *OverworkRepository) ClaimPending(ctx context.Context, id uuid.UUID) (*model.OverworkRequest, error) {
	query := `
		UPDATE overwork_requests SET updated_at = $2
		WHERE id = $1 AND status = 'PENDING'
		RETURNING id, employee_id, additional_slots, request_type, urgency, reason,
			status, current_ceiling, new_ceiling, reviewer_id, reviewer_notes,
			reviewed_at, effective_month, created_at, updated_at
	`

	req, err := scanOverwork(r.db.QueryRowContext(ctx, query, id, time.Now()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("认领豁免申请失败: %w", err)
	}
	return req, nil
}

// Update 更新豁免申请（审批结果写回）
func (r *OverworkRepository) Update(ctx context.Context, req *model.OverworkRequest) error {
	req.UpdatedAt = time.Now()

	// 仅允许从 PENDING 写入终态，条件更新兜底并发竞争
	query := `
		UPDATE overwork_requests SET
			status = $2, reviewer_id = $3, reviewer_notes = $4, reviewed_at = $5, updated_at = $6
		WHERE id = $1 AND status = 'PENDING'
	`

	result, err := r.db.ExecContext(ctx, query,
		req.ID, req.Status, req.ReviewerID, req.ReviewerNotes, req.ReviewedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新豁免申请失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("豁免申请不存在或已处于终态")
	}
	return nil
}

// ListByStatus 按状态列出豁免申请
func (r *OverworkRepository) ListByStatus(ctx context.Context, status model.OverworkStatus) ([]*model.OverworkRequest, error) {
	query := overworkSelect + ` WHERE status = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("查询豁免申请列表失败: %w", err)
	}
	defer rows.Close()

	var requests []*model.OverworkRequest
	for rows.Next() {
		req, err := scanOverwork(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描豁免申请失败: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// ListApprovedTemporaryBefore 列出生效月份早于 month 的已批准临时豁免
func (r *OverworkRepository) ListApprovedTemporaryBefore(ctx context.Context, month string) ([]*model.OverworkRequest, error) {
	query := overworkSelect + `
		WHERE status = 'APPROVED' AND request_type = 'TEMPORARY' AND effective_month < $1
		ORDER BY effective_month
	`

	rows, err := r.db.QueryContext(ctx, query, month)
	if err != nil {
		return nil, fmt.Errorf("查询过期临时豁免失败: %w", err)
	}
	defer rows.Close()

	var requests []*model.OverworkRequest
	for rows.Next() {
		req, err := scanOverwork(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描豁免申请失败: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// ActiveOverrides 返回指定月份内生效的豁免 empID -> YYYY-MM -> true
// 永久豁免通过上限提升体现，这里只收集临时豁免
func (r *OverworkRepository) ActiveOverrides(ctx context.Context, months []string) (map[uuid.UUID]map[string]bool, error) {
	overrides := make(map[uuid.UUID]map[string]bool)
	if len(months) == 0 {
		return overrides, nil
	}

	query := `
		SELECT employee_id, effective_month
		FROM overwork_requests
		WHERE status = 'APPROVED' AND request_type = 'TEMPORARY' AND effective_month = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(months))
	if err != nil {
		return nil, fmt.Errorf("查询生效豁免失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var empID uuid.UUID
		var month string
		if err := rows.Scan(&empID, &month); err != nil {
			return nil, fmt.Errorf("扫描生效豁免失败: %w", err)
		}
		if overrides[empID] == nil {
			overrides[empID] = make(map[string]bool)
		}
		overrides[empID][month] = true
	}
	return overrides, rows.Err()
}

const overworkSelect = `
	SELECT id, employee_id, additional_slots, request_type, urgency, reason,
		status, current_ceiling, new_ceiling, reviewer_id, reviewer_notes,
		reviewed_at, effective_month, created_at, updated_at
	FROM overwork_requests
`

// scanOverwork 从行扫描豁免申请
func scanOverwork(s Scanner) (*model.OverworkRequest, error) {
	req := &model.OverworkRequest{}
	var reviewerID *uuid.UUID
	var reviewerNotes sql.NullString
	var reviewedAt sql.NullTime

	err := s.Scan(
		&req.ID, &req.EmployeeID, &req.AdditionalSlots, &req.RequestType, &req.Urgency,
		&req.Reason, &req.Status, &req.CurrentCeiling, &req.NewCeiling,
		&reviewerID, &reviewerNotes, &reviewedAt, &req.EffectiveMonth,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.ReviewerID = reviewerID
	if reviewerNotes.Valid {
		req.ReviewerNotes = reviewerNotes.String
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		req.ReviewedAt = &t
	}
	return req, nil
}
