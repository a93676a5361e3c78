// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/yipai/yipai/pkg/model"
)

// LocationRepository 科室容量配置仓储
type LocationRepository struct {
	db DB
}

// NewLocationRepository 创建科室容量配置仓储
func NewLocationRepository(db DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// List 列出全部科室容量配置
func (r *LocationRepository) List(ctx context.Context) ([]*model.LocationCapacity, error) {
	query := `
		SELECT location, max_staff_per_day, allowed_roles, override_allowed
		FROM location_capacities
		ORDER BY location
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询科室容量配置失败: %w", err)
	}
	defer rows.Close()

	var capacities []*model.LocationCapacity
	for rows.Next() {
		c := &model.LocationCapacity{}
		var roles pq.StringArray
		if err := rows.Scan(&c.Location, &c.MaxStaffPerDay, &roles, &c.OverrideAllowed); err != nil {
			return nil, fmt.Errorf("扫描科室容量配置失败: %w", err)
		}
		for _, role := range roles {
			c.AllowedRoles = append(c.AllowedRoles, model.Role(role))
		}
		capacities = append(capacities, c)
	}
	return capacities, rows.Err()
}

// Get 获取单个科室的容量配置
func (r *LocationRepository) Get(ctx context.Context, location string) (*model.LocationCapacity, error) {
	query := `
		SELECT location, max_staff_per_day, allowed_roles, override_allowed
		FROM location_capacities
		WHERE location = $1
	`

	c := &model.LocationCapacity{}
	var roles pq.StringArray
	err := r.db.QueryRowContext(ctx, query, location).Scan(&c.Location, &c.MaxStaffPerDay, &roles, &c.OverrideAllowed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询科室容量配置失败: %w", err)
	}
	for _, role := range roles {
		c.AllowedRoles = append(c.AllowedRoles, model.Role(role))
	}
	return c, nil
}

// Upsert 写入或更新科室容量配置
func (r *LocationRepository) Upsert(ctx context.Context, c *model.LocationCapacity) error {
	roles := make(pq.StringArray, 0, len(c.AllowedRoles))
	for _, role := range c.AllowedRoles {
		roles = append(roles, string(role))
	}

	query := `
		INSERT INTO location_capacities (location, max_staff_per_day, allowed_roles, override_allowed, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (location) DO UPDATE SET
			max_staff_per_day = EXCLUDED.max_staff_per_day,
			allowed_roles = EXCLUDED.allowed_roles,
			override_allowed = EXCLUDED.override_allowed,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, c.Location, c.MaxStaffPerDay, roles, c.OverrideAllowed, time.Now())
	if err != nil {
		return fmt.Errorf("写入科室容量配置失败: %w", err)
	}
	return nil
}
