package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/repository"
	"github.com/stemsi/course-planner/internal/schedule"
)

// ─── Sessions ───────────────────────────────────────────────────────

type fakeSessionStore struct {
	mu         sync.Mutex
	sessions   map[uuid.UUID][]byte
	timetables map[uuid.UUID]cachedGrid
	published  [][]byte
	gridReads  int
}

type cachedGrid struct {
	fingerprint string
	grid        schedule.Grid
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:   map[uuid.UUID][]byte{},
		timetables: map[uuid.UUID]cachedGrid{},
	}
}

func (f *fakeSessionStore) Create(_ context.Context, sess *model.PlannerSession, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	f.sessions[sess.ID] = data
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, id uuid.UUID) (*model.PlannerSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decode(id)
}

func (f *fakeSessionStore) decode(id uuid.UUID) (*model.PlannerSession, error) {
	data, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	sess := &model.PlannerSession{}
	return sess, json.Unmarshal(data, sess)
}

func (f *fakeSessionStore) Update(_ context.Context, id uuid.UUID, fn func(*model.PlannerSession) error) (*model.PlannerSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, err := f.decode(id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	f.sessions[id] = data
	delete(f.timetables, id)
	return sess, nil
}

func (f *fakeSessionStore) GetTimetable(_ context.Context, id uuid.UUID, fingerprint string) (schedule.Grid, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gridReads++
	c, ok := f.timetables[id]
	if !ok || c.fingerprint != fingerprint {
		return schedule.Grid{}, false, nil
	}
	return c.grid, true, nil
}

func (f *fakeSessionStore) SetTimetable(_ context.Context, id uuid.UUID, fingerprint string, grid schedule.Grid, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timetables[id] = cachedGrid{fingerprint: fingerprint, grid: grid}
	return nil
}

func (f *fakeSessionStore) Publish(_ context.Context, _ uuid.UUID, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeSessionStore) events() []model.PlannerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.PlannerEvent, 0, len(f.published))
	for _, p := range f.published {
		var ev model.PlannerEvent
		_ = json.Unmarshal(p, &ev)
		out = append(out, ev)
	}
	return out
}

// ─── Catalog ────────────────────────────────────────────────────────

type fakeSectionStore struct {
	sections []model.Section
	replaced [][]model.Section
	err      error
}

func (f *fakeSectionStore) List(context.Context) ([]model.Section, error) {
	return f.sections, f.err
}

func (f *fakeSectionStore) ReplaceAll(_ context.Context, sections []model.Section) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.replaced = append(f.replaced, sections)
	f.sections = sections
	return int64(len(sections)), nil
}

type fakePublisher struct {
	messages map[string][]interface{}
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.messages == nil {
		f.messages = map[string][]interface{}{}
	}
	f.messages[channel] = append(f.messages[channel], message)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

type fakeTokens struct{}

func (fakeTokens) Issue(id uuid.UUID) (string, time.Time, error) {
	return "token-" + id.String(), time.Now().Add(time.Hour), nil
}

// ─── Imports ────────────────────────────────────────────────────────

type fakeImportStore struct {
	mu      sync.Mutex
	imports map[uuid.UUID]*model.CatalogImport
}

func newFakeImportStore() *fakeImportStore {
	return &fakeImportStore{imports: map[uuid.UUID]*model.CatalogImport{}}
}

func (f *fakeImportStore) Create(_ context.Context, imp *model.CatalogImport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	imp.CreatedAt = time.Now()
	cp := *imp
	f.imports[imp.ID] = &cp
	return nil
}

func (f *fakeImportStore) GetByID(_ context.Context, id uuid.UUID) (*model.CatalogImport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	imp, ok := f.imports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *imp
	return &cp, nil
}

func (f *fakeImportStore) set(id uuid.UUID, fn func(*model.CatalogImport)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	imp, ok := f.imports[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(imp)
	return nil
}

func (f *fakeImportStore) MarkProcessing(_ context.Context, id uuid.UUID) error {
	return f.set(id, func(i *model.CatalogImport) { i.Status = model.ImportStatusProcessing })
}

func (f *fakeImportStore) MarkCompleted(_ context.Context, id uuid.UUID, rows, sections int) error {
	return f.set(id, func(i *model.CatalogImport) {
		i.Status = model.ImportStatusCompleted
		i.RowCount = rows
		i.SectionCount = sections
	})
}

func (f *fakeImportStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	return f.set(id, func(i *model.CatalogImport) {
		i.Status = model.ImportStatusFailed
		i.Error = &reason
	})
}

type fakeQueue struct {
	pushed map[string][]interface{}
}

func (f *fakeQueue) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.pushed == nil {
		f.pushed = map[string][]interface{}{}
	}
	f.pushed[key] = append(f.pushed[key], values...)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.pushed[key])))
	return cmd
}
