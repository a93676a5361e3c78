// Package engine 提供两阶段排班优化引擎（贪心分配 + 回溯修复）
package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/logger"
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/rule"
)

// BacktrackingOptimizer 回溯修复器
// 修复贪心阶段引入的同日重复分配：保留最高优先级请求的分配，
// 其余尝试改派，无人可派则放弃
//
// 单趟执行；改派产生的新候选不会重新进入日期分组循环
type BacktrackingOptimizer struct {
	cfg       *Config
	validator *rule.Validator
	scorer    *Scorer
	logger    *logger.EngineLogger
}

// NewBacktrackingOptimizer 创建回溯修复器
func NewBacktrackingOptimizer(cfg *Config, validator *rule.Validator, scorer *Scorer) *BacktrackingOptimizer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &BacktrackingOptimizer{
		cfg:       cfg,
		validator: validator,
		scorer:    scorer,
		logger:    logger.NewEngineLogger(),
	}
}

// Resolve 修复同日冲突，返回最终分配与未解决的冲突
func (o *BacktrackingOptimizer) Resolve(bc *BatchContext, assignments []*model.Assignment) ([]*model.Assignment, []Conflict) {
	conflicts := make([]Conflict, 0)

	// 按日期分组，日期升序遍历保证确定性
	byDate := make(map[string][]*model.Assignment)
	for _, a := range assignments {
		byDate[a.Request.Date] = append(byDate[a.Request.Date], a)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	dropped := make(map[uuid.UUID]bool)
	replacements := make(map[uuid.UUID]*model.Assignment)

	for _, date := range dates {
		dayAssignments := byDate[date]

		// 统计每名员工当日的分配
		byEmp := make(map[uuid.UUID][]*model.Assignment)
		order := make([]uuid.UUID, 0)
		for _, a := range dayAssignments {
			if _, seen := byEmp[a.EmployeeID]; !seen {
				order = append(order, a.EmployeeID)
			}
			byEmp[a.EmployeeID] = append(byEmp[a.EmployeeID], a)
		}

		for _, empID := range order {
			conflicted := byEmp[empID]
			if len(conflicted) <= 1 {
				continue
			}

			// 保留最高优先级请求的分配；同优先级保留先处理者
			keep := conflicted[0]
			for _, a := range conflicted[1:] {
				if a.Request.Priority > keep.Request.Priority {
					keep = a
				}
			}

			for _, a := range conflicted {
				if a == keep {
					continue
				}

				// 先撤销冲突分配，释放占用与计数
				bc.RemoveAssignment(a.ID)

				replacement := o.reassign(bc, a)
				if replacement != nil {
					replacements[a.ID] = replacement
					o.logger.ConflictResolved(empID.String(), date, "reassigned")
					continue
				}

				dropped[a.ID] = true
				o.logger.ConflictResolved(empID.String(), date, "dropped")

				conflicts = append(conflicts, Conflict{
					Kind:       ConflictDoubleBooking,
					RequestID:  a.Request.ID,
					EmployeeID: &empID,
					Date:       date,
					Location:   a.Request.Location,
					Reason:     fmt.Sprintf("员工当日已有更高优先级分配且无人可改派 (score floor %d)", o.cfg.ReassignScoreFloor),
				})
			}
		}
	}

	// 组装最终输出，保持贪心阶段的处理顺序
	final := make([]*model.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if dropped[a.ID] {
			continue
		}
		if r, ok := replacements[a.ID]; ok {
			final = append(final, r)
			continue
		}
		final = append(final, a)
	}

	return final, conflicts
}

// reassign 为已撤销的冲突分配寻找替代候选人
// 要求适配分高于 ReassignScoreFloor 且通过全部硬规则；
// 已在当日获得分配的员工不参与
func (o *BacktrackingOptimizer) reassign(bc *BatchContext, a *model.Assignment) *model.Assignment {
	req := a.Request

	var best *model.Employee
	bestScore := o.cfg.ReassignScoreFloor

	for _, emp := range bc.Employees() {
		if !emp.IsActive() {
			continue
		}
		if emp.ID == a.EmployeeID {
			continue
		}
		if bc.AssignedOnDate(emp.ID, req.Date) {
			continue
		}

		res := o.validator.Validate(bc.Candidate(emp, req))
		if !res.Valid {
			continue
		}

		score := o.scorer.Score(bc, emp, req, res)
		if score > bestScore {
			best = emp
			bestScore = score
		}
	}

	if best == nil {
		return nil
	}

	replacement := &model.Assignment{
		ID:         uuid.New(),
		EmployeeID: best.ID,
		Request:    req,
		Score:      bestScore,
		Rationale:  fmt.Sprintf("backtracking reassignment: score %d", bestScore),
	}
	bc.AddAssignment(replacement)

	return replacement
}
