package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/stemsi/course-planner/internal/config"
	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/schedule"
)

// Catalog errors.
var (
	ErrSectionNotFound = errors.New("section not found")
	ErrCatalogEmpty    = errors.New("catalog is empty")
)

// SectionStore is the persistent side of the catalog.
type SectionStore interface {
	List(ctx context.Context) ([]model.Section, error)
}

// CatalogService serves the merged catalog from an in-memory snapshot.
type CatalogService struct {
	store    SectionStore
	parser   *schedule.Parser
	pageSize int
	log      zerolog.Logger

	mu          sync.RWMutex
	sections    []model.Section
	index       map[model.SectionKey]int
	departments []string
	loadedAt    time.Time
}

// NewCatalogService creates a CatalogService. Call Reload before serving.
func NewCatalogService(store SectionStore, parser *schedule.Parser, pageSize int, log zerolog.Logger) *CatalogService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &CatalogService{
		store:    store,
		parser:   parser,
		pageSize: pageSize,
		log:      log.With().Str("component", "catalog_service").Logger(),
		index:    map[model.SectionKey]int{},
	}
}

// Reload replaces the snapshot with the stored catalog.
func (s *CatalogService) Reload(ctx context.Context) error {
	sections, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	s.swap(sections)
	s.log.Info().Int("sections", len(sections)).Msg("Catalog snapshot loaded")
	return nil
}

func (s *CatalogService) swap(sections []model.Section) {
	snapshot := make([]model.Section, len(sections))
	index := make(map[model.SectionKey]int, len(sections))
	seen := map[string]bool{}
	departments := make([]string, 0)

	for i, sec := range sections {
		if len(sec.Slots) == 0 {
			sec.Slots = s.parser.Parse(sec.RawTime)
		}
		snapshot[i] = sec
		index[sec.Key()] = i
		if sec.Department != "" && !seen[sec.Department] {
			seen[sec.Department] = true
			departments = append(departments, sec.Department)
		}
	}
	collate.New(language.Chinese).SortStrings(departments)

	s.mu.Lock()
	s.sections = snapshot
	s.index = index
	s.departments = departments
	s.loadedAt = time.Now()
	s.mu.Unlock()
}

// Len reports the number of sections in the snapshot.
func (s *CatalogService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sections)
}

// LoadedAt reports when the snapshot was last swapped.
func (s *CatalogService) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Get looks up one section by key.
func (s *CatalogService) Get(key model.SectionKey) (model.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[key]
	if !ok {
		return model.Section{}, ErrSectionNotFound
	}
	return s.sections[i], nil
}

// Departments lists distinct departments for the filter dropdown.
func (s *CatalogService) Departments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.departments...)
}

// List returns the page of sections visible to profile that match query,
// and the total number of matches.
func (s *CatalogService) List(profile schedule.Profile, q model.CatalogQuery) ([]model.Section, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.sections) == 0 {
		return nil, 0, ErrCatalogEmpty
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	department := strings.TrimSpace(q.Department)

	matches := make([]model.Section, 0)
	for _, sec := range s.sections {
		if !schedule.Eligible(sec, profile) {
			continue
		}
		if department != "" && sec.Department != department {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(sec.Title), search) &&
			!strings.Contains(strings.ToLower(sec.CourseID), search) {
			continue
		}
		matches = append(matches, sec)
	}

	page, perPage := s.PageOf(q)
	// Compare page counts before multiplying so huge inputs cannot overflow.
	pages := len(matches) / perPage
	if len(matches)%perPage != 0 {
		pages++
	}
	if page > pages {
		return []model.Section{}, len(matches), nil
	}
	start := (page - 1) * perPage
	end := start + min(perPage, len(matches)-start)
	return matches[start:end], len(matches), nil
}

// PageOf resolves the effective page and page size of q.
func (s *CatalogService) PageOf(q model.CatalogQuery) (int, int) {
	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = s.pageSize
	}
	return page, perPage
}

// ListenForUpdates reloads the snapshot whenever another process announces a
// replaced catalog. It blocks until ctx is cancelled.
func (s *CatalogService) ListenForUpdates(ctx context.Context, rdb *redis.Client) {
	pubsub := rdb.Subscribe(ctx, config.CacheKey.CatalogUpdatedChannel())
	defer pubsub.Close()

	s.log.Info().Msg("Listening for catalog updates")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := s.Reload(ctx); err != nil {
				s.log.Error().Err(err).Str("import_id", msg.Payload).Msg("Catalog reload failed")
			}
		}
	}
}
