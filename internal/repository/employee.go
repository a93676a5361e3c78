// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

// EmployeeRepository 员工仓储
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create 创建员工
func (r *EmployeeRepository) Create(ctx context.Context, emp *model.Employee) error {
	if emp.ID == uuid.Nil {
		emp.ID = uuid.New()
	}
	now := time.Now()
	emp.CreatedAt = now
	emp.UpdatedAt = now
	if emp.WorkloadStatus == "" {
		emp.WorkloadStatus = model.WorkloadNormal
	}

	prefs, err := marshalPreferences(emp.Preferences)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO employees (
			id, name, code, role, status, monthly_shift_ceiling,
			workload_status, preferences, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Code, emp.Role, emp.Status,
		emp.MonthlyShiftCeiling, emp.WorkloadStatus, prefs,
		emp.CreatedAt, emp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建员工失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取员工
func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	query := employeeSelect + ` WHERE id = $1 AND deleted_at IS NULL`
	emp, err := scanEmployee(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("员工不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("查询员工失败: %w", err)
	}
	return emp, nil
}

// ListActive 列出全部在职且可排班的员工
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]*model.Employee, error) {
	query := employeeSelect + `
		WHERE status = 'active' AND workload_status != 'DISABLED' AND deleted_at IS NULL
		ORDER BY code
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询员工名册失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描员工失败: %w", err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// UpdateWorkloadStatus 更新员工负载状态
func (r *EmployeeRepository) UpdateWorkloadStatus(ctx context.Context, id uuid.UUID, status model.WorkloadStatus) error {
	query := `UPDATE employees SET workload_status = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("更新员工负载状态失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("员工不存在")
	}
	return nil
}

// UpdateCeiling 更新员工每月班次上限（永久豁免批准时使用）
func (r *EmployeeRepository) UpdateCeiling(ctx context.Context, id uuid.UUID, ceiling int) error {
	query := `UPDATE employees SET monthly_shift_ceiling = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, ceiling, time.Now())
	if err != nil {
		return fmt.Errorf("更新员工上限失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("员工不存在")
	}
	return nil
}

const employeeSelect = `
	SELECT id, name, code, role, status, monthly_shift_ceiling,
		workload_status, preferences, created_at, updated_at
	FROM employees
`

// scanEmployee 从行扫描员工
func scanEmployee(s Scanner) (*model.Employee, error) {
	emp := &model.Employee{}
	var prefs []byte

	err := s.Scan(
		&emp.ID, &emp.Name, &emp.Code, &emp.Role, &emp.Status,
		&emp.MonthlyShiftCeiling, &emp.WorkloadStatus, &prefs,
		&emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(prefs) > 0 {
		var p model.EmployeePreferences
		if err := json.Unmarshal(prefs, &p); err == nil {
			emp.Preferences = &p
		}
	}

	return emp, nil
}

// marshalPreferences 序列化偏好为JSONB
func marshalPreferences(p *model.EmployeePreferences) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("序列化员工偏好失败: %w", err)
	}
	return data, nil
}
