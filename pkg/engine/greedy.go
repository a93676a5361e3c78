// Package engine 提供两阶段排班优化引擎（贪心分配 + 回溯修复）
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/logger"
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/rule"
)

// GreedyAssigner 贪心分配器
// 按优先级降序处理请求，对每个请求评分全部候选人并取最优者
type GreedyAssigner struct {
	cfg       *Config
	validator *rule.Validator
	scorer    *Scorer
	logger    *logger.EngineLogger
}

// NewGreedyAssigner 创建贪心分配器
func NewGreedyAssigner(cfg *Config, validator *rule.Validator, scorer *Scorer) *GreedyAssigner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &GreedyAssigner{
		cfg:       cfg,
		validator: validator,
		scorer:    scorer,
		logger:    logger.NewEngineLogger(),
	}
}

// scoredCandidate 已评分候选人
type scoredCandidate struct {
	employee *model.Employee
	score    int
	result   *rule.Result
}

// Assign 执行贪心分配
// 未满编请求不视为错误，作为完成缺口记入冲突列表
func (g *GreedyAssigner) Assign(ctx context.Context, bc *BatchContext, requests []*model.SlotRequest) ([]*model.Assignment, []Conflict, error) {
	assignments := make([]*model.Assignment, 0)
	conflicts := make([]Conflict, 0)

	// 按优先级降序排序，同优先级保持输入顺序
	sorted := make([]*model.SlotRequest, len(requests))
	copy(sorted, requests)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	for _, req := range sorted {
		if err := ctx.Err(); err != nil {
			return assignments, conflicts, err
		}

		candidates, capacityBlocked := g.rankCandidates(bc, req)

		assigned := 0
		for _, cand := range candidates {
			if assigned >= req.RequiredCount {
				break
			}

			// 同一请求内占用会随分配增长，选人前复核容量
			if cap := bc.Capacity(req.Location); cap != nil && cap.MaxStaffPerDay > 0 &&
				bc.Occupancy(req.Location, req.Date, req.ShiftType) >= cap.MaxStaffPerDay {
				capacityBlocked++
				continue
			}

			a := &model.Assignment{
				ID:         uuid.New(),
				EmployeeID: cand.employee.ID,
				Request:    req,
				Score:      cand.score,
				Rationale:  fmt.Sprintf("greedy selection: score %d", cand.score),
			}

			// 立即更新批内计数器，使后续请求看到最新负载
			bc.AddAssignment(a)
			assignments = append(assignments, a)
			assigned++
		}

		if assigned < req.RequiredCount {
			gap := req.RequiredCount - assigned
			kind := ConflictFulfillmentGap
			reason := fmt.Sprintf("缺少 %d 名合格候选人", gap)
			if capacityBlocked > 0 {
				kind = ConflictCapacityBlocked
				reason = fmt.Sprintf("缺少 %d 名候选人，其中 %d 名因科室容量受阻", gap, capacityBlocked)
			}

			conflicts = append(conflicts, Conflict{
				Kind:      kind,
				RequestID: req.ID,
				Date:      req.Date,
				Location:  req.Location,
				Reason:    reason,
			})
		}
	}

	return assignments, conflicts, nil
}

// rankCandidates 评分并按适配分降序排序全部合格候选人
// 返回合格候选人列表与因容量受阻被排除的人数
func (g *GreedyAssigner) rankCandidates(bc *BatchContext, req *model.SlotRequest) ([]scoredCandidate, int) {
	var candidates []scoredCandidate
	capacityBlocked := 0

	for _, emp := range bc.Employees() {
		if !emp.IsActive() {
			continue
		}

		res := g.validator.Validate(bc.Candidate(emp, req))
		score := g.scorer.Score(bc, emp, req, res)

		if !g.scorer.Eligible(score, res) {
			if res.Has(rule.TypeLocationCapacity) {
				capacityBlocked++
			}
			if !res.Valid {
				g.logger.RuleViolation("候选人排除", fmt.Sprintf("员工 %s: %s", emp.Name, res.ViolationMessages()[0]))
			}
			continue
		}

		candidates = append(candidates, scoredCandidate{
			employee: emp,
			score:    score,
			result:   res,
		})
	}

	// 稳定排序保证同分候选人的选择确定
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	return candidates, capacityBlocked
}
