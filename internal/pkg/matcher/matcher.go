package matcher

import (
	"errors"
	"log"

	"github.com/ManuelReschke/PlanFox/app/models"
	"github.com/ManuelReschke/PlanFox/app/repository"
	"github.com/ManuelReschke/PlanFox/internal/pkg/levelcache"
	"gorm.io/gorm"
)

// Result is the outcome of a find-or-create run.
type Result struct {
	Success bool
	LevelID uint
	Created bool
	Cached  bool
	Error   string
	Code    string
}

// CreationCounter receives a tick for every successfully created plan. The
// validator's daily cap feeds off it.
type CreationCounter interface {
	IncrementDailyCounter()
}

// Matcher finds an existing plan matching the normalized request parameters
// or creates a new one. Group assignment and content protection are
// best-effort follow-ups; a failure there never rolls back the plan.
type Matcher struct {
	plans   repository.PlanRepository
	groups  repository.GroupRepository
	content repository.ContentRepository
	cache   *levelcache.Store
	counter CreationCounter
}

// New creates a Matcher.
func New(
	plans repository.PlanRepository,
	groups repository.GroupRepository,
	content repository.ContentRepository,
	cache *levelcache.Store,
	counter CreationCounter,
) *Matcher {
	return &Matcher{
		plans:   plans,
		groups:  groups,
		content: content,
		cache:   cache,
		counter: counter,
	}
}

func failure(message, code string) Result {
	return Result{Success: false, Error: message, Code: code}
}

// FindOrCreate resolves the request to a plan id: cache lookup, exact
// database match, then creation. The unique index over the matching key turns
// the concurrent double-create into a duplicate-key error which is resolved
// by re-reading the winner.
func (m *Matcher) FindOrCreate(req *models.PlanRequest) Result {
	params := req.Params()
	key := levelcache.Fingerprint(params)

	if id, ok := m.cache.Get(key); ok {
		return Result{Success: true, LevelID: id, Created: false, Cached: true}
	}

	existing, err := m.plans.FindMatching(params)
	if err != nil {
		return failure("Failed to look up level", "level_lookup_failed")
	}
	if existing != nil {
		m.cache.Set(key, existing.ID)
		return Result{Success: true, LevelID: existing.ID, Created: false, Cached: false}
	}

	plan := req.NewPlan()
	if err := m.plans.Create(plan); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent identical request won the insert race.
			winner, ferr := m.plans.FindMatching(params)
			if ferr == nil && winner != nil {
				m.cache.Set(key, winner.ID)
				return Result{Success: true, LevelID: winner.ID, Created: false, Cached: false}
			}
		}
		return failure("Failed to create level", "level_creation_failed")
	}

	m.assignGroup(plan)
	m.applyContentProtection(req, plan.ID)

	m.cache.Set(key, plan.ID)
	m.counter.IncrementDailyCounter()

	return Result{Success: true, LevelID: plan.ID, Created: true, Cached: false}
}

// assignGroup links the plan into the group named by its " - " prefix,
// creating the group lazily.
func (m *Matcher) assignGroup(plan *models.Plan) {
	groupName := models.ExtractGroupName(plan.Name)
	if groupName == "" {
		return
	}

	group, err := m.groups.FindOrCreate(groupName)
	if err != nil {
		log.Printf("matcher: group %q resolution failed for plan %d: %v", groupName, plan.ID, err)
		return
	}
	if err := m.groups.LinkPlan(group.ID, plan.ID); err != nil {
		log.Printf("matcher: linking plan %d to group %d failed: %v", plan.ID, group.ID, err)
	}
}

// applyContentProtection adds the plan to the restriction set of every
// referenced resource. Additive only; existing restrictions stay untouched.
func (m *Matcher) applyContentProtection(req *models.PlanRequest, planID uint) {
	for _, ids := range [][]int{req.ProtectedCategories, req.ProtectedPages, req.ProtectedPosts} {
		for _, id := range ids {
			if id <= 0 {
				continue
			}
			if err := m.content.AddRestriction(uint(id), planID); err != nil {
				log.Printf("matcher: restricting resource %d to plan %d failed: %v", id, planID, err)
			}
		}
	}
}
