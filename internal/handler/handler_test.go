package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/course-planner/internal/middleware"
	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/response"
	"github.com/stemsi/course-planner/internal/schedule"
	"github.com/stemsi/course-planner/internal/service"
	"github.com/stemsi/course-planner/internal/validator"
	ws "github.com/stemsi/course-planner/internal/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

// ─── Stubs ──────────────────────────────────────────────────────────

type stubPlanner struct {
	session   *model.PlannerSession
	enrollErr error
	removeErr error
	timetable *service.TimetableView
	ttErr     error
}

func (s *stubPlanner) CreateSession(_ context.Context, req model.CreateSessionRequest) (*service.SessionGrant, error) {
	return &service.SessionGrant{
		Session:   &model.PlannerSession{ID: uuid.New(), Department: req.Department, DegreeType: req.DegreeType},
		Token:     "signed-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (s *stubPlanner) GetSession(context.Context, uuid.UUID) (*service.PlannerView, error) {
	if s.session == nil {
		return nil, service.ErrSessionNotFound
	}
	return &service.PlannerView{Session: s.session}, nil
}

func (s *stubPlanner) Enroll(_ context.Context, _ uuid.UUID, key model.SectionKey) (*service.PlannerView, error) {
	if s.enrollErr != nil {
		return nil, s.enrollErr
	}
	s.session.Enrolled = append(s.session.Enrolled, model.Section{CourseID: key.CourseID, ClassID: key.ClassID})
	return &service.PlannerView{Session: s.session}, nil
}

func (s *stubPlanner) Remove(_ context.Context, _ uuid.UUID, position int) (*service.PlannerView, model.Section, error) {
	if s.removeErr != nil {
		return nil, model.Section{}, s.removeErr
	}
	removed := s.session.Enrolled[position]
	s.session.Enrolled = append(s.session.Enrolled[:position], s.session.Enrolled[position+1:]...)
	return &service.PlannerView{Session: s.session}, removed, nil
}

func (s *stubPlanner) Timetable(context.Context, uuid.UUID) (*service.TimetableView, error) {
	if s.ttErr != nil {
		return nil, s.ttErr
	}
	return s.timetable, nil
}

func (s *stubPlanner) Profile(context.Context, uuid.UUID) (schedule.Profile, error) {
	return schedule.Profile{Department: "计算机学院"}, nil
}

type stubExporter struct {
	err error
}

func (s stubExporter) Export(context.Context, uuid.UUID, model.Language) (*bytes.Buffer, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return bytes.NewBufferString("PK"), "课程表.xlsx", nil
}

type stubCatalog struct {
	sections []model.Section
	err      error
}

func (s stubCatalog) List(_ schedule.Profile, q model.CatalogQuery) ([]model.Section, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	page, perPage := s.PageOf(q)
	start := (page - 1) * perPage
	if start >= len(s.sections) {
		return []model.Section{}, len(s.sections), nil
	}
	end := min(start+perPage, len(s.sections))
	return s.sections[start:end], len(s.sections), nil
}

func (s stubCatalog) PageOf(q model.CatalogQuery) (int, int) {
	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 2
	}
	return page, perPage
}

func (s stubCatalog) Departments() []string { return []string{"计算机学院", "数学学院"} }

type stubImports struct {
	enqueueErr error
	imp        *model.CatalogImport
	gotName    string
}

func (s *stubImports) Enqueue(_ context.Context, fileName string, _ int64, r io.Reader) (*model.CatalogImport, error) {
	s.gotName = fileName
	if s.enqueueErr != nil {
		return nil, s.enqueueErr
	}
	_, _ = io.Copy(io.Discard, r)
	return &model.CatalogImport{ID: uuid.New(), FileName: fileName, Status: model.ImportStatusPending}, nil
}

func (s *stubImports) Get(context.Context, uuid.UUID) (*model.CatalogImport, error) {
	if s.imp == nil {
		return nil, service.ErrImportNotFound
	}
	return s.imp, nil
}

// ─── Helpers ────────────────────────────────────────────────────────

type envelope struct {
	Data       json.RawMessage      `json:"data"`
	Error      *response.ErrorBody  `json:"error"`
	Pagination *response.Pagination `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// withSession stands in for RequireSessionToken.
func withSession(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeySessionID, id)
		c.Next()
	}
}

func newRouter(sessionID uuid.UUID) *gin.Engine {
	r := gin.New()
	r.Use(response.LanguageMiddleware())
	if sessionID != uuid.Nil {
		r.Use(withSession(sessionID))
	}
	return r
}

func do(r http.Handler, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newSession() *model.PlannerSession {
	return &model.PlannerSession{
		ID:         uuid.New(),
		Department: "计算机学院",
		DegreeType: model.DegreeSingle,
		Enrolled: []model.Section{
			{CourseID: "CS101", ClassID: "01", Title: "程序设计基础"},
			{CourseID: "CS201", ClassID: "01", Title: "数据结构"},
		},
	}
}

// ─── Sessions ───────────────────────────────────────────────────────

func TestSessionHandler_CreateSession(t *testing.T) {
	h := NewSessionHandler(&stubPlanner{})
	r := newRouter(uuid.Nil)
	r.POST("/sessions", h.CreateSession)

	t.Run("valid profile", func(t *testing.T) {
		w := do(r, http.MethodPost, "/sessions",
			strings.NewReader(`{"department":"计算机学院","degree_type":"single"}`), nil)
		require.Equal(t, http.StatusCreated, w.Code)

		var grant service.SessionGrant
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &grant))
		assert.Equal(t, "signed-token", grant.Token)
		assert.Equal(t, "计算机学院", grant.Session.Department)
	})

	t.Run("unknown degree type", func(t *testing.T) {
		w := do(r, http.MethodPost, "/sessions",
			strings.NewReader(`{"department":"计算机学院","degree_type":"triple"}`), nil)
		require.Equal(t, http.StatusBadRequest, w.Code)

		env := decode(t, w)
		assert.Equal(t, response.ErrValidation, env.Error.Code)
		assert.Contains(t, env.Error.Fields, "degree_type")
	})

	t.Run("second department equal to first", func(t *testing.T) {
		w := do(r, http.MethodPost, "/sessions",
			strings.NewReader(`{"department":"数学学院","second_department":"数学学院","degree_type":"double"}`), nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w).Error.Fields, "second_department")
	})
}

// ─── Planner ────────────────────────────────────────────────────────

func TestPlannerHandler_RequiresSession(t *testing.T) {
	h := NewPlannerHandler(&stubPlanner{}, stubExporter{})
	r := newRouter(uuid.Nil)
	r.GET("/planner", h.GetPlanner)

	w := do(r, http.MethodGet, "/planner", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrTokenRequired, decode(t, w).Error.Code)
}

func TestPlannerHandler_Enroll(t *testing.T) {
	conflict := &schedule.ConflictError{
		Candidate:   model.Section{CourseID: "CS202", ClassID: "01", Title: "离散数学"},
		Conflicting: model.Section{CourseID: "CS101", ClassID: "01", Title: "程序设计基础"},
	}

	tests := []struct {
		name       string
		err        error
		body       string
		lang       string
		wantStatus int
		wantCode   response.ErrCode
	}{
		{name: "enrolled", body: `{"course_id":"CS301","class_id":"01"}`, wantStatus: http.StatusCreated},
		{name: "missing class id", body: `{"course_id":"CS301"}`, wantStatus: http.StatusBadRequest, wantCode: response.ErrValidation},
		{name: "conflict", err: conflict, body: `{"course_id":"CS202","class_id":"01"}`, wantStatus: http.StatusConflict, wantCode: response.ErrTimeConflict},
		{name: "duplicate", err: schedule.ErrAlreadyEnrolled, body: `{"course_id":"CS101","class_id":"01"}`, wantStatus: http.StatusConflict, wantCode: response.ErrAlreadyEnrolled},
		{name: "ineligible", err: service.ErrNotEligible, body: `{"course_id":"MA101","class_id":"01"}`, wantStatus: http.StatusForbidden, wantCode: response.ErrNotEligible},
		{name: "unknown section", err: service.ErrSectionNotFound, body: `{"course_id":"XX","class_id":"01"}`, wantStatus: http.StatusNotFound, wantCode: response.ErrSectionNotFound},
		{name: "expired session", err: service.ErrSessionNotFound, body: `{"course_id":"CS301","class_id":"01"}`, wantStatus: http.StatusUnauthorized, wantCode: response.ErrSessionNotFound},
		{name: "concurrent update", err: service.ErrConcurrentUpdate, body: `{"course_id":"CS301","class_id":"01"}`, wantStatus: http.StatusConflict, wantCode: response.ErrConcurrentUpdate},
		{name: "store failure", err: errors.New("redis down"), body: `{"course_id":"CS301","class_id":"01"}`, wantStatus: http.StatusInternalServerError, wantCode: response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := &stubPlanner{session: newSession(), enrollErr: tt.err}
			h := NewPlannerHandler(planner, stubExporter{})
			r := newRouter(uuid.New())
			r.POST("/planner/enrollments", h.Enroll)

			w := do(r, http.MethodPost, "/planner/enrollments", strings.NewReader(tt.body), nil)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decode(t, w).Error.Code)
			}
		})
	}
}

func TestPlannerHandler_EnrollConflictNamesSection(t *testing.T) {
	planner := &stubPlanner{session: newSession(), enrollErr: &schedule.ConflictError{
		Conflicting: model.Section{CourseID: "CS101", ClassID: "01", Title: "程序设计基础"},
	}}
	h := NewPlannerHandler(planner, stubExporter{})
	r := newRouter(uuid.New())
	r.POST("/planner/enrollments", h.Enroll)

	w := do(r, http.MethodPost, "/planner/enrollments",
		strings.NewReader(`{"course_id":"CS202","class_id":"01"}`),
		map[string]string{"Accept-Language": "zh-CN,zh;q=0.9"})
	require.Equal(t, http.StatusConflict, w.Code)

	env := decode(t, w)
	assert.Equal(t, "程序设计基础", env.Error.Fields["conflicting_title"])
	assert.Equal(t, "CS101", env.Error.Fields["conflicting_course_id"])
	assert.Equal(t, "01", env.Error.Fields["conflicting_class_id"])
	assert.Equal(t, response.MessageFor(response.ErrTimeConflict, model.LangZH), env.Error.Message)
}

func TestPlannerHandler_Remove(t *testing.T) {
	t.Run("removes by position", func(t *testing.T) {
		planner := &stubPlanner{session: newSession()}
		h := NewPlannerHandler(planner, stubExporter{})
		r := newRouter(uuid.New())
		r.DELETE("/planner/enrollments/:position", h.Remove)

		w := do(r, http.MethodDelete, "/planner/enrollments/0", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Removed model.Section         `json:"removed"`
			Session *model.PlannerSession `json:"session"`
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
		assert.Equal(t, "CS101", body.Removed.CourseID)
		require.Len(t, body.Session.Enrolled, 1)
		assert.Equal(t, "CS201", body.Session.Enrolled[0].CourseID)
	})

	t.Run("non-numeric position", func(t *testing.T) {
		h := NewPlannerHandler(&stubPlanner{session: newSession()}, stubExporter{})
		r := newRouter(uuid.New())
		r.DELETE("/planner/enrollments/:position", h.Remove)

		w := do(r, http.MethodDelete, "/planner/enrollments/first", nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.ErrInvalidPosition, decode(t, w).Error.Code)
	})

	t.Run("position out of range", func(t *testing.T) {
		planner := &stubPlanner{session: newSession(), removeErr: schedule.ErrInvalidPosition}
		h := NewPlannerHandler(planner, stubExporter{})
		r := newRouter(uuid.New())
		r.DELETE("/planner/enrollments/:position", h.Remove)

		w := do(r, http.MethodDelete, "/planner/enrollments/7", nil, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, response.ErrInvalidPosition, decode(t, w).Error.Code)
	})
}

func TestPlannerHandler_Timetable(t *testing.T) {
	grid := schedule.NewGrid()
	grid[model.Mon.Index()][0] = []schedule.GridEntry{{Label: "程序设计基础 (01)", CourseID: "CS101", ClassID: "01"}}
	planner := &stubPlanner{timetable: &service.TimetableView{
		Grid:    grid,
		Credits: model.CreditSummary{Total: 3, Cap: 25},
		Keys:    []model.SectionKey{{CourseID: "CS101", ClassID: "01"}},
	}}
	h := NewPlannerHandler(planner, stubExporter{})
	r := newRouter(uuid.New())
	r.GET("/planner/timetable", h.Timetable)

	w := do(r, http.MethodGet, "/planner/timetable", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view service.TimetableView
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	require.Len(t, view.Grid.Cell(model.Mon, 1), 1)
	assert.Equal(t, "程序设计基础 (01)", view.Grid.Cell(model.Mon, 1)[0].Label)
	assert.Empty(t, view.Grid.Cell(model.Tue, 1))
	assert.Equal(t, 3.0, view.Credits.Total)
}

func TestPlannerHandler_Export(t *testing.T) {
	t.Run("workbook download", func(t *testing.T) {
		h := NewPlannerHandler(&stubPlanner{}, stubExporter{})
		r := newRouter(uuid.New())
		r.GET("/planner/export", h.Export)

		w := do(r, http.MethodGet, "/planner/export", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "filename*=UTF-8''%E8%AF%BE%E7%A8%8B%E8%A1%A8.xlsx")
		assert.Equal(t, "PK", w.Body.String())
	})

	t.Run("empty working set", func(t *testing.T) {
		h := NewPlannerHandler(&stubPlanner{}, stubExporter{err: service.ErrNothingToExport})
		r := newRouter(uuid.New())
		r.GET("/planner/export", h.Export)

		w := do(r, http.MethodGet, "/planner/export", nil, nil)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, response.ErrNothingToExport, decode(t, w).Error.Code)
	})
}

// ─── Catalog ────────────────────────────────────────────────────────

func TestCatalogHandler_ListCatalog(t *testing.T) {
	sections := []model.Section{
		{CourseID: "CS101", ClassID: "01"},
		{CourseID: "CS102", ClassID: "01"},
		{CourseID: "CS201", ClassID: "01"},
	}

	t.Run("second page", func(t *testing.T) {
		h := NewCatalogHandler(stubCatalog{sections: sections}, &stubPlanner{})
		r := newRouter(uuid.New())
		r.GET("/catalog", h.ListCatalog)

		w := do(r, http.MethodGet, "/catalog?page=2&per_page=2", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		env := decode(t, w)
		require.NotNil(t, env.Pagination)
		assert.Equal(t, 2, env.Pagination.Page)
		assert.Equal(t, 3, env.Pagination.TotalItems)
		assert.Equal(t, 2, env.Pagination.TotalPages)

		var body struct {
			Sections []model.Section `json:"sections"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &body))
		require.Len(t, body.Sections, 1)
		assert.Equal(t, "CS201", body.Sections[0].CourseID)
	})

	t.Run("per_page above limit", func(t *testing.T) {
		h := NewCatalogHandler(stubCatalog{sections: sections}, &stubPlanner{})
		r := newRouter(uuid.New())
		r.GET("/catalog", h.ListCatalog)

		w := do(r, http.MethodGet, "/catalog?per_page=500", nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w).Error.Fields, "per_page")
	})

	t.Run("page above limit", func(t *testing.T) {
		h := NewCatalogHandler(stubCatalog{sections: sections}, &stubPlanner{})
		r := newRouter(uuid.New())
		r.GET("/catalog", h.ListCatalog)

		w := do(r, http.MethodGet, "/catalog?page=4611686018427387905", nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w).Error.Fields, "page")
	})

	t.Run("empty catalog", func(t *testing.T) {
		h := NewCatalogHandler(stubCatalog{err: service.ErrCatalogEmpty}, &stubPlanner{})
		r := newRouter(uuid.New())
		r.GET("/catalog", h.ListCatalog)

		w := do(r, http.MethodGet, "/catalog", nil, nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, response.ErrCatalogEmpty, decode(t, w).Error.Code)
	})
}

func TestCatalogHandler_ListDepartments(t *testing.T) {
	h := NewCatalogHandler(stubCatalog{}, &stubPlanner{})
	r := newRouter(uuid.Nil)
	r.GET("/catalog/departments", h.ListDepartments)

	w := do(r, http.MethodGet, "/catalog/departments", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Departments []string `json:"departments"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
	assert.Equal(t, []string{"计算机学院", "数学学院"}, body.Departments)
}

// ─── Imports ────────────────────────────────────────────────────────

func multipartBody(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImportHandler_UploadCatalog(t *testing.T) {
	t.Run("queued", func(t *testing.T) {
		imports := &stubImports{}
		h := NewImportHandler(imports)
		r := newRouter(uuid.Nil)
		r.POST("/catalog/imports", h.UploadCatalog)

		body, ct := multipartBody(t, "file", "courses.xlsx", "PK")
		w := do(r, http.MethodPost, "/catalog/imports", body, map[string]string{"Content-Type": ct})
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		assert.Equal(t, "courses.xlsx", imports.gotName)

		var data struct {
			Import model.CatalogImport `json:"import"`
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
		assert.Equal(t, model.ImportStatusPending, data.Import.Status)
	})

	t.Run("missing file field", func(t *testing.T) {
		h := NewImportHandler(&stubImports{})
		r := newRouter(uuid.Nil)
		r.POST("/catalog/imports", h.UploadCatalog)

		body, ct := multipartBody(t, "upload", "courses.xlsx", "PK")
		w := do(r, http.MethodPost, "/catalog/imports", body, map[string]string{"Content-Type": ct})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.ErrFileRequired, decode(t, w).Error.Code)
	})

	t.Run("unsupported type", func(t *testing.T) {
		h := NewImportHandler(&stubImports{enqueueErr: service.ErrUnsupportedFile})
		r := newRouter(uuid.Nil)
		r.POST("/catalog/imports", h.UploadCatalog)

		body, ct := multipartBody(t, "file", "courses.csv", "a,b")
		w := do(r, http.MethodPost, "/catalog/imports", body, map[string]string{"Content-Type": ct})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.ErrUnsupportedFile, decode(t, w).Error.Code)
	})

	t.Run("too large", func(t *testing.T) {
		h := NewImportHandler(&stubImports{enqueueErr: service.ErrFileTooLarge})
		r := newRouter(uuid.Nil)
		r.POST("/catalog/imports", h.UploadCatalog)

		body, ct := multipartBody(t, "file", "courses.xlsx", "PK")
		w := do(r, http.MethodPost, "/catalog/imports", body, map[string]string{"Content-Type": ct})
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestImportHandler_GetImport(t *testing.T) {
	h := NewImportHandler(&stubImports{})
	r := newRouter(uuid.Nil)
	r.GET("/catalog/imports/:id", h.GetImport)

	w := do(r, http.MethodGet, "/catalog/imports/not-a-uuid", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidID, decode(t, w).Error.Code)

	w = do(r, http.MethodGet, "/catalog/imports/"+uuid.NewString(), nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrNotFound, decode(t, w).Error.Code)
}

// ─── System ─────────────────────────────────────────────────────────

type stubStats struct{ n int }

func (s stubStats) Len() int            { return s.n }
func (s stubStats) LoadedAt() time.Time { return time.Time{} }

func TestSystemHandler_Health(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all dependencies up", func(t *testing.T) {
		h := NewSystemHandler(map[string]HealthCheck{"postgres": ok, "redis": ok}, stubStats{}, nil, zerolog.Nop())
		r := newRouter(uuid.Nil)
		r.GET("/health", h.Health)

		w := do(r, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	})

	t.Run("redis down", func(t *testing.T) {
		h := NewSystemHandler(map[string]HealthCheck{"postgres": ok, "redis": down}, stubStats{}, nil, zerolog.Nop())
		r := newRouter(uuid.Nil)
		r.GET("/health", h.Health)

		w := do(r, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var data struct {
			Status       string            `json:"status"`
			Dependencies map[string]string `json:"dependencies"`
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
		assert.Equal(t, "degraded", data.Status)
		assert.Equal(t, "down", data.Dependencies["redis"])
		assert.Equal(t, "ok", data.Dependencies["postgres"])
	})
}

func TestSystemHandler_Status(t *testing.T) {
	queue := func(context.Context) (int64, error) { return 2, nil }
	h := NewSystemHandler(nil, stubStats{n: 8}, queue, zerolog.Nop())
	r := newRouter(uuid.Nil)
	r.GET("/status", h.Status)

	w := do(r, http.MethodGet, "/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var st systemStatus
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &st))
	assert.Equal(t, 8, st.CatalogSections)
	assert.Equal(t, int64(2), st.QueueImports)
	assert.Nil(t, st.CatalogLoadedAt)
	assert.NotEmpty(t, st.GoVersion)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m 5s", formatDuration(5*time.Second))
	assert.Equal(t, "2h 0m 1s", formatDuration(2*time.Hour+time.Second))
	assert.Equal(t, "1d 1h 0m 0s", formatDuration(25*time.Hour))
}

// ─── WebSocket ──────────────────────────────────────────────────────

type chanStream struct {
	ch chan []byte
}

func (s chanStream) Events(context.Context, uuid.UUID) (<-chan []byte, error) {
	return s.ch, nil
}

func dialStream(t *testing.T, h *WSHandler) *websocket.Conn {
	t.Helper()
	r := newRouter(uuid.New())
	r.GET("/stream", h.PlannerStream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestWSHandler_PlannerStream(t *testing.T) {
	planner := &stubPlanner{timetable: &service.TimetableView{
		Grid:    schedule.NewGrid(),
		Credits: model.CreditSummary{Total: 3, Cap: 25},
	}}
	events := chanStream{ch: make(chan []byte, 1)}
	conn := dialStream(t, NewWSHandler(planner, events, zerolog.Nop(), nil))

	var first ws.TimetableResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, ws.EventTimetable, first.Event)
	assert.Nil(t, first.Cause)
	assert.Equal(t, 3.0, first.Credits.Total)

	require.NoError(t, conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}))
	var pong ws.PongResponse
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, ws.EventPong, pong.Event)

	payload, err := json.Marshal(model.PlannerEvent{
		Type:    model.PlannerEventEnrolled,
		Section: model.SectionKey{CourseID: "CS201", ClassID: "01"},
	})
	require.NoError(t, err)
	events.ch <- payload

	var pushed ws.TimetableResponse
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, ws.EventTimetable, pushed.Event)
	require.NotNil(t, pushed.Cause)
	assert.Equal(t, model.PlannerEventEnrolled, pushed.Cause.Type)
	assert.Equal(t, "CS201", pushed.Cause.Section.CourseID)
}

func TestWSHandler_UnknownAction(t *testing.T) {
	planner := &stubPlanner{timetable: &service.TimetableView{Grid: schedule.NewGrid()}}
	conn := dialStream(t, NewWSHandler(planner, chanStream{ch: make(chan []byte)}, zerolog.Nop(), nil))

	var first ws.TimetableResponse
	require.NoError(t, conn.ReadJSON(&first))

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "answer"}))
	var resp ws.ErrorResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, ws.EventError, resp.Event)
	assert.Contains(t, resp.Error, "answer")
}

// expiringPlanner serves one timetable, then reports the session gone.
type expiringPlanner struct {
	calls atomic.Int32
}

func (p *expiringPlanner) Timetable(context.Context, uuid.UUID) (*service.TimetableView, error) {
	if p.calls.Add(1) > 1 {
		return nil, service.ErrSessionNotFound
	}
	return &service.TimetableView{Grid: schedule.NewGrid()}, nil
}

func TestWSHandler_ClosesWhenRelayFails(t *testing.T) {
	events := chanStream{ch: make(chan []byte, 1)}
	conn := dialStream(t, NewWSHandler(&expiringPlanner{}, events, zerolog.Nop(), nil))

	var first ws.TimetableResponse
	require.NoError(t, conn.ReadJSON(&first))

	payload, err := json.Marshal(model.PlannerEvent{Type: model.PlannerEventRemoved})
	require.NoError(t, err)
	events.ch <- payload

	var resp ws.ErrorResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "session unavailable", resp.Error)

	// The server hangs up without waiting for the client to speak.
	var next json.RawMessage
	err = conn.ReadJSON(&next)
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseAbnormalClosure), "got %v", err)
}

func TestWSHandler_SessionGone(t *testing.T) {
	planner := &stubPlanner{ttErr: service.ErrSessionNotFound}
	conn := dialStream(t, NewWSHandler(planner, chanStream{ch: make(chan []byte)}, zerolog.Nop(), nil))

	var resp ws.ErrorResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, ws.EventError, resp.Event)

	var next json.RawMessage
	assert.Error(t, conn.ReadJSON(&next))
}
