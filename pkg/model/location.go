// Package model 定义医院排班引擎的核心数据模型
package model

// 常用科室/病区代码
const (
	LocationICU        = "ICU"         // 重症监护
	LocationER         = "IGD"         // 急诊
	LocationInpatient  = "RAWAT_INAP"  // 住院部
	LocationOutpatient = "RAWAT_JALAN" // 门诊
	LocationLab        = "LAB"         // 检验科
	LocationPharmacy   = "FARMASI"     // 药房
	LocationAdmin      = "ADMINISTRASI" // 行政楼
)

// LocationCapacity 科室容量配置（静态配置表）
type LocationCapacity struct {
	Location        string `json:"location" db:"location"`
	MaxStaffPerDay  int    `json:"max_staff_per_day" db:"max_staff_per_day"` // 每日同班次最大在岗人数
	AllowedRoles    []Role `json:"allowed_roles" db:"allowed_roles"`
	OverrideAllowed bool   `json:"override_allowed" db:"override_allowed"` // 是否允许显式超额
}

// RoleAllowed 检查角色是否允许进入该科室
func (lc *LocationCapacity) RoleAllowed(role Role) bool {
	if len(lc.AllowedRoles) == 0 {
		return true
	}
	for _, r := range lc.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// DefaultLocationCapacities 返回默认的科室容量配置
// 实际部署时由配置表覆盖
func DefaultLocationCapacities() []*LocationCapacity {
	clinical := []Role{RolePhysician, RoleNurse, RoleSupervisor}
	general := []Role{RolePhysician, RoleNurse, RoleStaff, RoleSupervisor}

	return []*LocationCapacity{
		{Location: LocationICU, MaxStaffPerDay: 6, AllowedRoles: clinical},
		{Location: LocationER, MaxStaffPerDay: 8, AllowedRoles: clinical},
		{Location: LocationInpatient, MaxStaffPerDay: 12, AllowedRoles: general},
		{Location: LocationOutpatient, MaxStaffPerDay: 10, AllowedRoles: general},
		{Location: LocationLab, MaxStaffPerDay: 4, AllowedRoles: []Role{RoleStaff, RoleSupervisor}},
		{Location: LocationPharmacy, MaxStaffPerDay: 4, AllowedRoles: []Role{RoleStaff, RoleSupervisor}},
		{Location: LocationAdmin, MaxStaffPerDay: 6, AllowedRoles: []Role{RoleStaff, RoleAdmin, RoleSupervisor}},
	}
}

// CapacityTable 科室容量查找表
type CapacityTable map[string]*LocationCapacity

// NewCapacityTable 构建容量查找表
func NewCapacityTable(capacities []*LocationCapacity) CapacityTable {
	table := make(CapacityTable, len(capacities))
	for _, c := range capacities {
		table[c.Location] = c
	}
	return table
}

// Get 获取科室容量配置，未配置的科室返回 nil
func (t CapacityTable) Get(location string) *LocationCapacity {
	return t[location]
}
