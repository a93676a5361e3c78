// Package model 定义医院排班引擎的核心数据模型
package model

// Role 员工角色
type Role string

const (
	RolePhysician  Role = "PHYSICIAN"  // 医师
	RoleNurse      Role = "NURSE"      // 护士
	RoleStaff      Role = "STAFF"      // 一般职员
	RoleSupervisor Role = "SUPERVISOR" // 主管
	RoleAdmin      Role = "ADMIN"      // 行政
)

// AllRoles 全部角色（用于校验与遍历）
var AllRoles = []Role{RolePhysician, RoleNurse, RoleStaff, RoleSupervisor, RoleAdmin}

// IsValid 检查角色是否合法
func (r Role) IsValid() bool {
	switch r {
	case RolePhysician, RoleNurse, RoleStaff, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// DefaultMonthlyCeiling 返回角色默认的每月班次上限
func (r Role) DefaultMonthlyCeiling() int {
	switch r {
	case RolePhysician, RoleNurse, RoleStaff:
		return 20
	case RoleSupervisor:
		return 16
	case RoleAdmin:
		return 12
	default:
		return 20
	}
}

// WorkloadStatus 员工工作负荷状态
type WorkloadStatus string

const (
	WorkloadNormal     WorkloadStatus = "NORMAL"     // 利用率 <50%
	WorkloadHigh       WorkloadStatus = "HIGH"       // 利用率 50-85%
	WorkloadOverworked WorkloadStatus = "OVERWORKED" // 利用率 >85% 或达到上限
	WorkloadCritical   WorkloadStatus = "CRITICAL"   // 连续工作天数达到上限
	WorkloadDisabled   WorkloadStatus = "DISABLED"   // 不参与排班
)

// Employee 医院员工
type Employee struct {
	BaseModel
	Name   string `json:"name" db:"name"`
	Code   string `json:"code" db:"code"`
	Role   Role   `json:"role" db:"role"`
	Status string `json:"status" db:"status"` // active/inactive/leave

	// 排班治理相关
	MonthlyShiftCeiling int            `json:"monthly_shift_ceiling" db:"monthly_shift_ceiling"`
	WorkloadStatus      WorkloadStatus `json:"workload_status" db:"workload_status"`

	// 工作偏好
	Preferences *EmployeePreferences `json:"preferences,omitempty" db:"preferences"`
}

// EmployeePreferences 员工偏好
type EmployeePreferences struct {
	PreferredShiftTypes []ShiftType `json:"preferred_shift_types,omitempty"` // 偏好班次类型
	AvoidShiftTypes     []ShiftType `json:"avoid_shift_types,omitempty"`     // 避免班次类型
	PreferredLocations  []string    `json:"preferred_locations,omitempty"`   // 偏好科室
}

// IsActive 检查员工是否在职且可排班
func (e *Employee) IsActive() bool {
	return e.Status == "active" && e.WorkloadStatus != WorkloadDisabled
}

// Ceiling 返回员工的每月班次上限（未设置时使用角色默认值）
func (e *Employee) Ceiling() int {
	if e.MonthlyShiftCeiling > 0 {
		return e.MonthlyShiftCeiling
	}
	return e.Role.DefaultMonthlyCeiling()
}

// PrefersShiftType 检查员工是否偏好某班次类型
func (e *Employee) PrefersShiftType(st ShiftType) bool {
	if e.Preferences == nil {
		return false
	}
	for _, t := range e.Preferences.PreferredShiftTypes {
		if t == st {
			return true
		}
	}
	return false
}

// AvoidsShiftType 检查员工是否希望避免某班次类型
func (e *Employee) AvoidsShiftType(st ShiftType) bool {
	if e.Preferences == nil {
		return false
	}
	for _, t := range e.Preferences.AvoidShiftTypes {
		if t == st {
			return true
		}
	}
	return false
}

// PrefersLocation 检查员工是否偏好某科室
func (e *Employee) PrefersLocation(location string) bool {
	if e.Preferences == nil {
		return false
	}
	for _, l := range e.Preferences.PreferredLocations {
		if l == location {
			return true
		}
	}
	return false
}
