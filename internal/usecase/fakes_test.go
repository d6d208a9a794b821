package usecase

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"skill-registry/internal/domain/permission"
	"skill-registry/internal/domain/profile"
	"skill-registry/internal/domain/skill"
	"skill-registry/internal/domain/user"
	"skill-registry/internal/repository"

	"github.com/google/uuid"
)

var errStoreDown = errors.New("store unavailable")

// memStore backs every fake repository. failNext makes the named operation
// fail with errStoreDown; after registers a callback run once the named
// operation has completed.
type memStore struct {
	mu sync.Mutex

	users    map[uuid.UUID]user.User
	menus    map[uuid.UUID]permission.MenuOption
	levels   map[uuid.UUID]permission.AccessLevel
	skills   map[uuid.UUID]skill.Skill
	evals    map[uuid.UUID]skill.Evaluation
	profiles map[uuid.UUID]profile.Profile

	failures map[string]int
	calls    map[string]int
	hooks    map[string]func()
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]user.User{},
		menus:    map[uuid.UUID]permission.MenuOption{},
		levels:   map[uuid.UUID]permission.AccessLevel{},
		skills:   map[uuid.UUID]skill.Skill{},
		evals:    map[uuid.UUID]skill.Evaluation{},
		profiles: map[uuid.UUID]profile.Profile{},
		failures: map[string]int{},
		calls:    map[string]int{},
		hooks:    map[string]func(){},
	}
}

func (s *memStore) failNext(op string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = n
}

func (s *memStore) after(op string, fn func()) {
	s.hooks[op] = fn
}

func (s *memStore) callCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter must be called with the lock held.
func (s *memStore) enter(op string) error {
	s.calls[op]++
	if s.failures[op] > 0 {
		s.failures[op]--
		return errStoreDown
	}
	return nil
}

func (s *memStore) runHook(op string) {
	if fn, ok := s.hooks[op]; ok {
		delete(s.hooks, op)
		fn()
	}
}

func cloneSkill(v skill.Skill) skill.Skill {
	v.LinkReferences = slices.Clone(v.LinkReferences)
	v.Log = slices.Clone(v.Log)
	return v
}

func cloneProfile(p profile.Profile) profile.Profile {
	p.Experience = slices.Clone(p.Experience)
	p.Education = slices.Clone(p.Education)
	p.Social = slices.Clone(p.Social)
	p.Skills = slices.Clone(p.Skills)
	return p
}

// users

type memUsers struct{ s *memStore }

func (r memUsers) CreateUser(ctx context.Context, u user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("users.CreateUser"); err != nil {
		return err
	}
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return user.ErrEmailDuplicate
		}
	}
	r.s.users[u.ID] = u
	return nil
}

func (r memUsers) GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("users.GetUserByID"); err != nil {
		return user.User{}, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r memUsers) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r memUsers) SetAccessLevel(ctx context.Context, id uuid.UUID, accessLevelID *uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.AccessLevelID = accessLevelID
	r.s.users[id] = u
	return nil
}

func (r memUsers) ClearAccessLevel(ctx context.Context, accessLevelID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("users.ClearAccessLevel"); err != nil {
		return 0, err
	}
	var n int64
	for id, u := range r.s.users {
		if u.AccessLevelID != nil && *u.AccessLevelID == accessLevelID {
			u.AccessLevelID = nil
			r.s.users[id] = u
			n++
		}
	}
	return n, nil
}

// menu options

type memMenus struct{ s *memStore }

func (r memMenus) Create(ctx context.Context, m permission.MenuOption) (permission.MenuOption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.menus[m.ID] = m
	return m, nil
}

func (r memMenus) GetByID(ctx context.Context, id uuid.UUID) (permission.MenuOption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.menus[id]
	if !ok {
		return permission.MenuOption{}, repository.ErrNotFound
	}
	return m, nil
}

func (r memMenus) List(ctx context.Context) ([]permission.MenuOption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]permission.MenuOption, 0, len(r.s.menus))
	for _, m := range r.s.menus {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memMenus) Update(ctx context.Context, m permission.MenuOption) (permission.MenuOption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.menus[m.ID]; !ok {
		return permission.MenuOption{}, repository.ErrNotFound
	}
	r.s.menus[m.ID] = m
	return m, nil
}

func (r memMenus) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.menus[id]
	delete(r.s.menus, id)
	return ok, nil
}

func (r memMenus) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, m := range r.s.menus {
		if m.ParentID != nil && *m.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (r memMenus) MissingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []uuid.UUID
	for _, id := range ids {
		if _, ok := r.s.menus[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// access levels

type memLevels struct{ s *memStore }

func (r memLevels) List(ctx context.Context) ([]permission.AccessLevel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]permission.AccessLevel, 0, len(r.s.levels))
	for _, a := range r.s.levels {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memLevels) GetByID(ctx context.Context, id uuid.UUID) (permission.AccessLevel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.levels[id]
	if !ok {
		return permission.AccessLevel{}, repository.ErrNotFound
	}
	a.MenuOptionIDs = slices.Clone(a.MenuOptionIDs)
	return a, nil
}

func (r memLevels) nameTaken(name string, except uuid.UUID) bool {
	for id, a := range r.s.levels {
		if id != except && a.Name == name {
			return true
		}
	}
	return false
}

func (r memLevels) Create(ctx context.Context, a permission.AccessLevel) (permission.AccessLevel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.levels[a.ID]; ok || r.nameTaken(a.Name, uuid.Nil) {
		return permission.AccessLevel{}, repository.ErrDuplicate
	}
	a.MenuOptionIDs = slices.Clone(a.MenuOptionIDs)
	r.s.levels[a.ID] = a
	return a, nil
}

func (r memLevels) Update(ctx context.Context, a permission.AccessLevel) (permission.AccessLevel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.levels[a.ID]; !ok {
		return permission.AccessLevel{}, repository.ErrNotFound
	}
	if r.nameTaken(a.Name, a.ID) {
		return permission.AccessLevel{}, repository.ErrDuplicate
	}
	a.MenuOptionIDs = slices.Clone(a.MenuOptionIDs)
	r.s.levels[a.ID] = a
	return a, nil
}

func (r memLevels) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.levels[id]
	delete(r.s.levels, id)
	return ok, nil
}

func (r memLevels) ReplaceMenuOptions(ctx context.Context, id uuid.UUID, ids []uuid.UUID) (permission.AccessLevel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.levels[id]
	if !ok {
		return permission.AccessLevel{}, repository.ErrNotFound
	}
	a.MenuOptionIDs = slices.Clone(ids)
	r.s.levels[id] = a
	return a, nil
}

func (r memLevels) CountByMenuOption(ctx context.Context, menuOptionID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.levels {
		if slices.Contains(a.MenuOptionIDs, menuOptionID) {
			n++
		}
	}
	return n, nil
}

// skills

type memSkills struct{ s *memStore }

func (r memSkills) UpsertByName(ctx context.Context, in skill.Skill) (skill.Skill, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("skills.UpsertByName"); err != nil {
		return skill.Skill{}, false, err
	}
	for id, existing := range r.s.skills {
		if existing.Name == in.Name {
			existing.Description = in.Description
			existing.LinkReferences = slices.Clone(in.LinkReferences)
			existing.UpdatedAt = in.UpdatedAt
			r.s.skills[id] = existing
			return cloneSkill(existing), false, nil
		}
	}
	in.Log = []skill.LogEntry{}
	r.s.skills[in.ID] = cloneSkill(in)
	return cloneSkill(in), true, nil
}

func (r memSkills) GetByID(ctx context.Context, id uuid.UUID) (skill.Skill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("skills.GetByID"); err != nil {
		return skill.Skill{}, err
	}
	v, ok := r.s.skills[id]
	if !ok {
		return skill.Skill{}, repository.ErrNotFound
	}
	return cloneSkill(v), nil
}

func (r memSkills) List(ctx context.Context) ([]skill.Skill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]skill.Skill, 0, len(r.s.skills))
	for _, v := range r.s.skills {
		out = append(out, cloneSkill(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memSkills) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.skills[id]
	delete(r.s.skills, id)
	return ok, nil
}

func (r memSkills) MissingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []uuid.UUID
	for _, id := range ids {
		if _, ok := r.s.skills[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r memSkills) ProjectEvaluation(ctx context.Context, skillID uuid.UUID, entry skill.LogEntry) (bool, error) {
	defer r.s.runHook("skills.ProjectEvaluation")
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("skills.ProjectEvaluation"); err != nil {
		return false, err
	}
	v, ok := r.s.skills[skillID]
	if !ok {
		return false, repository.ErrNotFound
	}
	kept := make([]skill.LogEntry, 0, len(v.Log)+1)
	kept = append(kept, entry)
	for _, e := range v.Log {
		if e.ProfileID == entry.ProfileID && e.EvaluatorID == entry.EvaluatorID {
			if e.Version >= entry.Version {
				return false, nil
			}
			continue
		}
		kept = append(kept, e)
	}
	v.Log = kept
	r.s.skills[skillID] = v
	return true, nil
}

func (r memSkills) RemoveLogEntry(ctx context.Context, skillID, profileID, evaluatorID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("skills.RemoveLogEntry"); err != nil {
		return false, err
	}
	v, ok := r.s.skills[skillID]
	if !ok {
		return false, repository.ErrNotFound
	}
	before := len(v.Log)
	v.Log = slices.DeleteFunc(slices.Clone(v.Log), func(e skill.LogEntry) bool {
		return e.ProfileID == profileID && e.EvaluatorID == evaluatorID
	})
	r.s.skills[skillID] = v
	return len(v.Log) != before, nil
}

func (r memSkills) PullProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("skills.PullProfile"); err != nil {
		return 0, err
	}
	var n int64
	for id, v := range r.s.skills {
		before := len(v.Log)
		v.Log = slices.DeleteFunc(slices.Clone(v.Log), func(e skill.LogEntry) bool { return e.ProfileID == profileID })
		if len(v.Log) != before {
			r.s.skills[id] = v
			n++
		}
	}
	return n, nil
}

func (r memSkills) ListWithProfileLog(ctx context.Context, profileID uuid.UUID) ([]skill.Skill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []skill.Skill
	for _, v := range r.s.skills {
		if slices.ContainsFunc(v.Log, func(e skill.LogEntry) bool { return e.ProfileID == profileID }) {
			out = append(out, cloneSkill(v))
		}
	}
	return out, nil
}

// evaluations

type memEvals struct{ s *memStore }

func (r memEvals) Upsert(ctx context.Context, e skill.Evaluation) (skill.Evaluation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("evaluations.Upsert"); err != nil {
		return skill.Evaluation{}, err
	}
	for id, existing := range r.s.evals {
		if existing.ProfileID == e.ProfileID && existing.SkillID == e.SkillID && existing.EvaluatorID == e.EvaluatorID {
			existing.Level = e.Level
			existing.Version++
			existing.UpdatedAt = e.UpdatedAt
			r.s.evals[id] = existing
			return existing, nil
		}
	}
	e.Version = 1
	r.s.evals[e.ID] = e
	return e, nil
}

func (r memEvals) GetByID(ctx context.Context, id uuid.UUID) (skill.Evaluation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.evals[id]
	if !ok {
		return skill.Evaluation{}, repository.ErrNotFound
	}
	return e, nil
}

func (r memEvals) filter(keep func(skill.Evaluation) bool) []skill.Evaluation {
	out := make([]skill.Evaluation, 0)
	for _, e := range r.s.evals {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (r memEvals) List(ctx context.Context) ([]skill.Evaluation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(skill.Evaluation) bool { return true }), nil
}

func (r memEvals) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]skill.Evaluation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(e skill.Evaluation) bool { return e.ProfileID == profileID }), nil
}

func (r memEvals) ListBySkill(ctx context.Context, skillID uuid.UUID) ([]skill.Evaluation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(e skill.Evaluation) bool { return e.SkillID == skillID }), nil
}

func (r memEvals) deleteWhere(match func(skill.Evaluation) bool) int64 {
	var n int64
	for id, e := range r.s.evals {
		if match(e) {
			delete(r.s.evals, id)
			n++
		}
	}
	return n
}

func (r memEvals) DeleteByProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("evaluations.DeleteByProfile"); err != nil {
		return 0, err
	}
	return r.deleteWhere(func(e skill.Evaluation) bool { return e.ProfileID == profileID }), nil
}

func (r memEvals) DeleteBySkill(ctx context.Context, skillID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.deleteWhere(func(e skill.Evaluation) bool { return e.SkillID == skillID }), nil
}

func (r memEvals) DeleteByKey(ctx context.Context, profileID, skillID, evaluatorID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := r.deleteWhere(func(e skill.Evaluation) bool {
		return e.ProfileID == profileID && e.SkillID == skillID && e.EvaluatorID == evaluatorID
	})
	return n > 0, nil
}

func (r memEvals) ProfileIDs(ctx context.Context) ([]uuid.UUID, error) {
	return r.distinct(func(e skill.Evaluation) uuid.UUID { return e.ProfileID }), nil
}

func (r memEvals) SkillIDs(ctx context.Context) ([]uuid.UUID, error) {
	return r.distinct(func(e skill.Evaluation) uuid.UUID { return e.SkillID }), nil
}

func (r memEvals) distinct(key func(skill.Evaluation) uuid.UUID) []uuid.UUID {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[uuid.UUID]struct{}{}
	var out []uuid.UUID
	for _, e := range r.s.evals {
		if _, ok := seen[key(e)]; !ok {
			seen[key(e)] = struct{}{}
			out = append(out, key(e))
		}
	}
	return out
}

// profiles

type memProfiles struct{ s *memStore }

func (r memProfiles) byUser(userID uuid.UUID) (profile.Profile, bool) {
	for _, p := range r.s.profiles {
		if p.UserID == userID {
			return p, true
		}
	}
	return profile.Profile{}, false
}

func (r memProfiles) Upsert(ctx context.Context, p profile.Profile) (profile.Profile, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.byUser(p.UserID); ok {
		if existing.Deleting() {
			return profile.Profile{}, false, repository.ErrConflict
		}
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		r.s.profiles[p.ID] = cloneProfile(p)
		return cloneProfile(p), false, nil
	}
	r.s.profiles[p.ID] = cloneProfile(p)
	return cloneProfile(p), true, nil
}

func (r memProfiles) GetByID(ctx context.Context, id uuid.UUID) (profile.Profile, error) {
	defer r.s.runHook("profiles.GetByID")
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("profiles.GetByID"); err != nil {
		return profile.Profile{}, err
	}
	p, ok := r.s.profiles[id]
	if !ok {
		return profile.Profile{}, repository.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (r memProfiles) GetByUserID(ctx context.Context, userID uuid.UUID) (profile.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.byUser(userID)
	if !ok {
		return profile.Profile{}, repository.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (r memProfiles) List(ctx context.Context) ([]profile.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]profile.Profile, 0)
	for _, p := range r.s.profiles {
		if !p.Deleting() {
			out = append(out, cloneProfile(p))
		}
	}
	return out, nil
}

func (r memProfiles) ListDeleting(ctx context.Context) ([]profile.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]profile.Profile, 0)
	for _, p := range r.s.profiles {
		if p.Deleting() {
			out = append(out, cloneProfile(p))
		}
	}
	return out, nil
}

func (r memProfiles) MarkDeleting(ctx context.Context, id uuid.UUID, at time.Time) (profile.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("profiles.MarkDeleting"); err != nil {
		return profile.Profile{}, err
	}
	p, ok := r.s.profiles[id]
	if !ok {
		return profile.Profile{}, repository.ErrNotFound
	}
	if p.DeletingAt == nil {
		p.DeletingAt = &at
		r.s.profiles[id] = p
	}
	return cloneProfile(p), nil
}

func (r memProfiles) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("profiles.Delete"); err != nil {
		return false, err
	}
	_, ok := r.s.profiles[id]
	delete(r.s.profiles, id)
	return ok, nil
}

func (r memProfiles) edit(userID uuid.UUID, fn func(p *profile.Profile) error) (profile.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.byUser(userID)
	if !ok || p.Deleting() {
		return profile.Profile{}, repository.ErrNotFound
	}
	p = cloneProfile(p)
	if err := fn(&p); err != nil {
		return profile.Profile{}, err
	}
	r.s.profiles[p.ID] = p
	return cloneProfile(p), nil
}

func (r memProfiles) AddExperience(ctx context.Context, userID uuid.UUID, e profile.Experience) (profile.Profile, error) {
	return r.edit(userID, func(p *profile.Profile) error {
		p.Experience = append([]profile.Experience{e}, p.Experience...)
		return nil
	})
}

func (r memProfiles) RemoveExperience(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error) {
	return r.edit(userID, func(p *profile.Profile) error {
		before := len(p.Experience)
		p.Experience = slices.DeleteFunc(p.Experience, func(e profile.Experience) bool { return e.ID == entryID })
		if len(p.Experience) == before {
			return repository.ErrEntryNotFound
		}
		return nil
	})
}

func (r memProfiles) AddEducation(ctx context.Context, userID uuid.UUID, e profile.Education) (profile.Profile, error) {
	return r.edit(userID, func(p *profile.Profile) error {
		p.Education = append([]profile.Education{e}, p.Education...)
		return nil
	})
}

func (r memProfiles) RemoveEducation(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error) {
	return r.edit(userID, func(p *profile.Profile) error {
		before := len(p.Education)
		p.Education = slices.DeleteFunc(p.Education, func(e profile.Education) bool { return e.ID == entryID })
		if len(p.Education) == before {
			return repository.ErrEntryNotFound
		}
		return nil
	})
}

func (r memProfiles) PullSkillDeclarations(ctx context.Context, skillID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, p := range r.s.profiles {
		before := len(p.Skills)
		p.Skills = slices.DeleteFunc(slices.Clone(p.Skills), func(d profile.SkillDeclaration) bool { return d.SkillID == skillID })
		if len(p.Skills) != before {
			r.s.profiles[id] = p
			n++
		}
	}
	return n, nil
}

type recordedEvent struct {
	Type string
	Data any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(eventType string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// fixture wires every usecase over one memStore.
type fixture struct {
	store    *memStore
	users    memUsers
	menus    memMenus
	levels   memLevels
	skillsDB memSkills
	evalsDB  memEvals
	profsDB  memProfiles
	events   *recordingPublisher

	menuOptions  *MenuOptions
	accessLevels *AccessLevels
	skills       *Skills
	evaluations  *Evaluations
	profiles     *Profiles
	cascade      *Cascade
}

func newFixture() *fixture {
	s := newMemStore()
	f := &fixture{
		store:    s,
		users:    memUsers{s},
		menus:    memMenus{s},
		levels:   memLevels{s},
		skillsDB: memSkills{s},
		evalsDB:  memEvals{s},
		profsDB:  memProfiles{s},
		events:   &recordingPublisher{},
	}
	f.menuOptions = NewMenuOptionUsecase(f.menus, f.levels)
	f.accessLevels = NewAccessLevelUsecase(f.levels, f.menus, f.users)
	f.skills = NewSkillUsecase(f.skillsDB, f.evalsDB, f.profsDB, nil, f.events, nil)
	f.evaluations = NewEvaluationUsecase(f.evalsDB, f.skillsDB, f.profsDB, nil, f.events, nil)
	f.profiles = NewProfileUsecase(f.profsDB, f.skillsDB, f.users)
	f.cascade = NewCascadeUsecase(f.profsDB, f.evalsDB, f.skillsDB, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, nil, f.events, nil)
	f.cascade.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return f
}

func (f *fixture) addUser(email string) user.User {
	u := user.User{ID: uuid.New(), Email: email, CreatedAt: time.Now().UTC()}
	f.store.mu.Lock()
	f.store.users[u.ID] = u
	f.store.mu.Unlock()
	return u
}

func (f *fixture) addProfile(firstName string) profile.Profile {
	u := f.addUser(firstName + "@example.com")
	p, _, err := f.profiles.UpsertProfile(context.Background(), u.ID, ProfileInput{FirstName: firstName})
	if err != nil {
		panic(err)
	}
	return p
}

func (f *fixture) addSkill(name string) skill.Skill {
	s, _, err := f.skills.UpsertSkill(context.Background(), SkillInput{Name: name})
	if err != nil {
		panic(err)
	}
	return s
}
