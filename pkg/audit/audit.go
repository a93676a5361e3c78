// Package audit 提供批次输出的终检：确保回溯修复后不残留同员工时间重叠的分配
package audit

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/model"
)

// FindingType 终检问题类型
type FindingType string

const (
	FindingOverlap          FindingType = "overlap"           // 同员工时间重叠
	FindingInsufficientRest FindingType = "insufficient_rest" // 班次间休息不足
)

// Finding 终检问题
type Finding struct {
	Type        FindingType `json:"type"`
	EmployeeID  uuid.UUID   `json:"employee_id"`
	Date        string      `json:"date"`
	Message     string      `json:"message"`
	Assignments []uuid.UUID `json:"assignments"`
}

// Detector 批次输出终检器
type Detector struct {
	minRestHours int
}

// NewDetector 创建终检器
func NewDetector(minRestHours int) *Detector {
	return &Detector{minRestHours: minRestHours}
}

// Inspect 检查最终分配集合
func (d *Detector) Inspect(assignments []*model.Assignment) []Finding {
	findings := make([]Finding, 0)

	byEmp := make(map[uuid.UUID][]*model.Assignment)
	for _, a := range assignments {
		byEmp[a.EmployeeID] = append(byEmp[a.EmployeeID], a)
	}

	empIDs := make([]uuid.UUID, 0, len(byEmp))
	for id := range byEmp {
		empIDs = append(empIDs, id)
	}
	sort.Slice(empIDs, func(i, j int) bool { return empIDs[i].String() < empIDs[j].String() })

	for _, empID := range empIDs {
		list := byEmp[empID]
		if len(list) < 2 {
			continue
		}

		sorted := make([]*model.Assignment, len(list))
		copy(sorted, list)
		sort.Slice(sorted, func(i, j int) bool {
			ri, _ := sorted[i].Range()
			rj, _ := sorted[j].Range()
			return ri.Start.Before(rj.Start)
		})

		for i := 0; i < len(sorted)-1; i++ {
			cur, next := sorted[i], sorted[i+1]
			curRange, err1 := cur.Range()
			nextRange, err2 := next.Range()
			if err1 != nil || err2 != nil {
				continue
			}

			if curRange.Overlaps(nextRange) {
				findings = append(findings, Finding{
					Type:        FindingOverlap,
					EmployeeID:  empID,
					Date:        cur.Date(),
					Message:     fmt.Sprintf("员工在 %s 与 %s 的分配时间重叠", cur.Date(), next.Date()),
					Assignments: []uuid.UUID{cur.ID, next.ID},
				})
				continue
			}

			rest := nextRange.Start.Sub(curRange.End).Hours()
			if rest < float64(d.minRestHours) {
				findings = append(findings, Finding{
					Type:        FindingInsufficientRest,
					EmployeeID:  empID,
					Date:        next.Date(),
					Message:     fmt.Sprintf("相邻分配间隔仅 %.1f 小时，少于要求的 %d 小时", rest, d.minRestHours),
					Assignments: []uuid.UUID{cur.ID, next.ID},
				})
			}
		}
	}

	return findings
}
