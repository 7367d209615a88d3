package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/course-planner/internal/metrics"
	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/repository"
	"github.com/stemsi/course-planner/internal/schedule"
)

// Planner errors. Enroll also returns schedule.ErrAlreadyEnrolled,
// schedule.ErrInvalidPosition and *schedule.ConflictError unwrapped.
var (
	ErrSessionNotFound  = errors.New("planner session not found")
	ErrNotEligible      = errors.New("section not open to this profile")
	ErrConcurrentUpdate = errors.New("working set changed concurrently")
)

// SessionStore persists planner sessions.
type SessionStore interface {
	Create(ctx context.Context, sess *model.PlannerSession, ttl time.Duration) error
	Get(ctx context.Context, id uuid.UUID) (*model.PlannerSession, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*model.PlannerSession) error) (*model.PlannerSession, error)
	GetTimetable(ctx context.Context, id uuid.UUID, fingerprint string) (schedule.Grid, bool, error)
	SetTimetable(ctx context.Context, id uuid.UUID, fingerprint string, grid schedule.Grid, ttl time.Duration) error
	Publish(ctx context.Context, id uuid.UUID, payload []byte) error
}

// SectionLookup resolves catalog sections.
type SectionLookup interface {
	Get(key model.SectionKey) (model.Section, error)
}

// TokenIssuer signs planner session tokens.
type TokenIssuer interface {
	Issue(sessionID uuid.UUID) (string, time.Time, error)
}

// SessionGrant is a new planner session with its access token.
type SessionGrant struct {
	Session   *model.PlannerSession `json:"session"`
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// PlannerView is a working set with its credit banner.
type PlannerView struct {
	Session *model.PlannerSession `json:"session"`
	Credits model.CreditSummary   `json:"credits"`
}

// TimetableView is the projected grid of a working set.
type TimetableView struct {
	Grid    schedule.Grid       `json:"grid"`
	Credits model.CreditSummary `json:"credits"`
	Keys    []model.SectionKey  `json:"keys"`
	Cached  bool                `json:"cached"`
}

// PlannerService runs enroll/remove against stored working sets.
type PlannerService struct {
	sessions SessionStore
	catalog  SectionLookup
	tokens   TokenIssuer
	parser   *schedule.Parser
	caps     schedule.CreditCaps
	ttl      time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// NewPlannerService creates a new PlannerService.
func NewPlannerService(
	sessions SessionStore,
	catalog SectionLookup,
	tokens TokenIssuer,
	parser *schedule.Parser,
	caps schedule.CreditCaps,
	ttl time.Duration,
	m *metrics.Metrics,
	log zerolog.Logger,
) *PlannerService {
	return &PlannerService{
		sessions: sessions,
		catalog:  catalog,
		tokens:   tokens,
		parser:   parser,
		caps:     caps,
		ttl:      ttl,
		metrics:  m,
		log:      log.With().Str("component", "planner_service").Logger(),
	}
}

// CreateSession opens an empty working set for a student profile.
func (s *PlannerService) CreateSession(ctx context.Context, req model.CreateSessionRequest) (*SessionGrant, error) {
	now := time.Now().UTC()
	sess := &model.PlannerSession{
		ID:         uuid.New(),
		Department: req.Department,
		DegreeType: req.DegreeType,
		Enrolled:   []model.Section{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	// A second department only means something for a double degree.
	if req.DegreeType == model.DegreeDouble {
		sess.SecondDepartment = req.SecondDepartment
	}

	if err := s.sessions.Create(ctx, sess, s.ttl); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(sess.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("degree_type", string(sess.DegreeType)).
		Msg("Planner session created")

	return &SessionGrant{Session: sess, Token: token, ExpiresAt: expiresAt}, nil
}

// GetSession loads a working set with its credit banner.
func (s *PlannerService) GetSession(ctx context.Context, id uuid.UUID) (*PlannerView, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PlannerView{Session: sess, Credits: s.caps.Summarize(sess.Enrolled, sess.DegreeType)}, nil
}

// Credits returns the credit banner of a working set.
func (s *PlannerService) Credits(ctx context.Context, id uuid.UUID) (model.CreditSummary, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return model.CreditSummary{}, err
	}
	return s.caps.Summarize(sess.Enrolled, sess.DegreeType), nil
}

// Profile returns the eligibility profile of a session.
func (s *PlannerService) Profile(ctx context.Context, id uuid.UUID) (schedule.Profile, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return schedule.Profile{}, err
	}
	return schedule.ProfileOf(sess), nil
}

// Enroll adds the catalog section key to the working set. The credit cap is
// reported, never enforced.
func (s *PlannerService) Enroll(ctx context.Context, id uuid.UUID, key model.SectionKey) (*PlannerView, error) {
	section, err := s.catalog.Get(key)
	if err != nil {
		s.metrics.RecordEnroll(metrics.OutcomeNotFound)
		return nil, err
	}

	sess, err := s.sessions.Update(ctx, id, func(sess *model.PlannerSession) error {
		if !schedule.Eligible(section, schedule.ProfileOf(sess)) {
			return ErrNotEligible
		}
		set := schedule.NewEnrolledSet(s.parser, sess.Enrolled...)
		if err := set.AttemptEnroll(section); err != nil {
			return err
		}
		sess.Enrolled = set.Sections()
		return nil
	})
	if err != nil {
		s.metrics.RecordEnroll(enrollOutcome(err))
		return nil, s.mapStoreErr(err)
	}
	s.metrics.RecordEnroll(metrics.OutcomeEnrolled)

	view := s.afterChange(ctx, sess, model.PlannerEventEnrolled, key)
	s.log.Debug().
		Str("session_id", id.String()).
		Str("section", key.String()).
		Float64("credits", view.Credits.Total).
		Msg("Section enrolled")
	return view, nil
}

// Remove drops the section at position (0-based, enrollment order).
func (s *PlannerService) Remove(ctx context.Context, id uuid.UUID, position int) (*PlannerView, model.Section, error) {
	var removed model.Section
	sess, err := s.sessions.Update(ctx, id, func(sess *model.PlannerSession) error {
		set := schedule.NewEnrolledSet(s.parser, sess.Enrolled...)
		r, err := set.Remove(position)
		if err != nil {
			return err
		}
		removed = r
		sess.Enrolled = set.Sections()
		return nil
	})
	if err != nil {
		return nil, model.Section{}, s.mapStoreErr(err)
	}

	view := s.afterChange(ctx, sess, model.PlannerEventRemoved, removed.Key())
	return view, removed, nil
}

// Timetable projects the working set, serving a cached grid while the set
// is unchanged.
func (s *PlannerService) Timetable(ctx context.Context, id uuid.UUID) (*TimetableView, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.timetableOf(ctx, sess), nil
}

func (s *PlannerService) timetableOf(ctx context.Context, sess *model.PlannerSession) *TimetableView {
	keys := schedule.KeysOf(sess.Enrolled)
	fingerprint := schedule.Fingerprint(keys)
	view := &TimetableView{
		Credits: s.caps.Summarize(sess.Enrolled, sess.DegreeType),
		Keys:    keys,
	}

	grid, hit, err := s.sessions.GetTimetable(ctx, sess.ID, fingerprint)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Timetable cache read failed")
	}
	if hit {
		view.Grid = grid
		view.Cached = true
		return view
	}

	view.Grid = s.parser.Project(sess.Enrolled)
	if err := s.sessions.SetTimetable(ctx, sess.ID, fingerprint, view.Grid, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Timetable cache write failed")
	}
	return view
}

// Export loads the working set to be written out. An empty set yields
// ErrNothingToExport.
func (s *PlannerService) Export(ctx context.Context, id uuid.UUID) (*model.PlannerSession, *TimetableView, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if len(sess.Enrolled) == 0 {
		return nil, nil, ErrNothingToExport
	}
	return sess, s.timetableOf(ctx, sess), nil
}

func (s *PlannerService) afterChange(ctx context.Context, sess *model.PlannerSession, kind model.PlannerEventType, key model.SectionKey) *PlannerView {
	credits := s.caps.Summarize(sess.Enrolled, sess.DegreeType)
	if credits.OverLimit {
		s.metrics.RecordOverLimit(string(sess.DegreeType))
	}

	payload, err := json.Marshal(model.PlannerEvent{
		SessionID: sess.ID,
		Type:      kind,
		Section:   key,
		Credits:   credits,
	})
	if err == nil {
		err = s.sessions.Publish(ctx, sess.ID, payload)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Publish planner event failed")
	}

	return &PlannerView{Session: sess, Credits: credits}
}

func (s *PlannerService) load(ctx context.Context, id uuid.UUID) (*model.PlannerSession, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return sess, nil
}

func (s *PlannerService) mapStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, repository.ErrConcurrentUpdate):
		return ErrConcurrentUpdate
	default:
		return err
	}
}

func enrollOutcome(err error) string {
	var conflict *schedule.ConflictError
	switch {
	case errors.As(err, &conflict):
		return metrics.OutcomeConflict
	case errors.Is(err, schedule.ErrAlreadyEnrolled):
		return metrics.OutcomeDuplicate
	case errors.Is(err, ErrNotEligible):
		return metrics.OutcomeIneligible
	case errors.Is(err, repository.ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeUnavailable
	}
}
