// Package repository 提供数据访问层
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

// ShiftRepository 班次仓储
type ShiftRepository struct {
	db DB
}

// NewShiftRepository 创建班次仓储
func NewShiftRepository(db DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// Create 创建班次记录
func (r *ShiftRepository) Create(ctx context.Context, shift *model.Shift) error {
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	now := time.Now()
	shift.CreatedAt = now
	shift.UpdatedAt = now

	query := `
		INSERT INTO shifts (
			id, employee_id, date, start_time, end_time,
			location, shift_type, source, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		shift.ID, shift.EmployeeID, shift.Date, shift.StartTime, shift.EndTime,
		shift.Location, shift.ShiftType, shift.Source, shift.CreatedAt, shift.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建班次失败: %w", err)
	}

	return nil
}

// ListWindow 列出日期窗口内的全部班次
func (r *ShiftRepository) ListWindow(ctx context.Context, from, to string) ([]*model.Shift, error) {
	query := shiftSelect + `
		WHERE date >= $1 AND date <= $2 AND deleted_at IS NULL
		ORDER BY date, start_time
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("查询班次窗口失败: %w", err)
	}
	defer rows.Close()

	var shifts []*model.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描班次失败: %w", err)
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

// ListForEmployee 列出员工在日期窗口内的班次
func (r *ShiftRepository) ListForEmployee(ctx context.Context, empID uuid.UUID, from, to string) ([]*model.Shift, error) {
	query := shiftSelect + `
		WHERE employee_id = $1 AND date >= $2 AND date <= $3 AND deleted_at IS NULL
		ORDER BY date, start_time
	`

	rows, err := r.db.QueryContext(ctx, query, empID, from, to)
	if err != nil {
		return nil, fmt.Errorf("查询员工班次失败: %w", err)
	}
	defer rows.Close()

	var shifts []*model.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描班次失败: %w", err)
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

// CountForEmployeeMonth 统计员工某月的班次数（落库前乐观复核使用）
func (r *ShiftRepository) CountForEmployeeMonth(ctx context.Context, empID uuid.UUID, month string) (int, error) {
	query := `
		SELECT COUNT(*) FROM shifts
		WHERE employee_id = $1 AND date LIKE $2 AND deleted_at IS NULL
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, empID, month+"%").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("统计员工月度班次失败: %w", err)
	}
	return count, nil
}

// CountForLocationDate 统计科室某日某班次类型的在岗人数（落库前乐观复核使用）
func (r *ShiftRepository) CountForLocationDate(ctx context.Context, location, date string, st model.ShiftType) (int, error) {
	query := `
		SELECT COUNT(*) FROM shifts
		WHERE location = $1 AND date = $2 AND shift_type = $3 AND deleted_at IS NULL
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, location, date, st).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("统计科室占用失败: %w", err)
	}
	return count, nil
}

// Delete 软删除班次
func (r *ShiftRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE shifts SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除班次失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("班次不存在")
	}
	return nil
}

const shiftSelect = `
	SELECT id, employee_id, date, start_time, end_time,
		location, shift_type, source, created_at, updated_at
	FROM shifts
`

// scanShift 从行扫描班次
func scanShift(s Scanner) (*model.Shift, error) {
	shift := &model.Shift{}
	err := s.Scan(
		&shift.ID, &shift.EmployeeID, &shift.Date, &shift.StartTime, &shift.EndTime,
		&shift.Location, &shift.ShiftType, &shift.Source, &shift.CreatedAt, &shift.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return shift, nil
}
