package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/regulars-api/internal/models"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// memDB is an in-memory stand-in for the tables the services touch. Repository stubs
// share one memDB so cross-table effects stay visible to assertions.
type memDB struct {
	mu          sync.Mutex
	seq         int
	batches     map[string]*models.Batch
	dancers     map[string]*models.Dancer
	sessions    map[string]*models.Session
	passes      map[string]*models.Pass
	records     map[string]*models.AttendanceRecord
	enrollments map[string]*models.Enrollment
	users       map[string]*models.User
}

func newMemDB() *memDB {
	return &memDB{
		batches:     map[string]*models.Batch{},
		dancers:     map[string]*models.Dancer{},
		sessions:    map[string]*models.Session{},
		passes:      map[string]*models.Pass{},
		records:     map[string]*models.AttendanceRecord{},
		enrollments: map[string]*models.Enrollment{},
		users:       map[string]*models.User{},
	}
}

func (m *memDB) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memDB) remaining(passID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.passes[passID].Remaining()
}

func (m *memDB) record(sessionID, dancerID string) *models.AttendanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[sessionID+"|"+dancerID]
	if !ok {
		return nil
	}
	c := *r
	return &c
}

func clonePass(p *models.Pass) models.Pass {
	c := *p
	if p.RemainingClasses != nil {
		c.RemainingClasses = intPtr(*p.RemainingClasses)
	}
	if p.TotalClasses != nil {
		c.TotalClasses = intPtr(*p.TotalClasses)
	}
	return c
}

type batchRepoStub struct{ db *memDB }

func (s batchRepoStub) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *b
	return &c, nil
}

func (s batchRepoStub) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Batch
	for _, b := range s.db.batches {
		if filter.OnlyActive && !b.Active {
			continue
		}
		if filter.InstructorID != "" && !b.HasInstructor(filter.InstructorID) {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s batchRepoStub) IDsForInstructor(ctx context.Context, instructorID string) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var ids []string
	for _, b := range s.db.batches {
		if b.HasInstructor(instructorID) {
			ids = append(ids, b.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s batchRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if batch.ID == "" {
		batch.ID = s.db.nextID("batch")
	}
	c := *batch
	s.db.batches[batch.ID] = &c
	return nil
}

func (s batchRepoStub) Update(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.batches[batch.ID]; !ok {
		return sql.ErrNoRows
	}
	c := *batch
	s.db.batches[batch.ID] = &c
	return nil
}

func (s batchRepoStub) CountActive(ctx context.Context, batchIDs []string) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	total := 0
	for _, b := range s.db.batches {
		if b.Active && (batchIDs == nil || containsString(batchIDs, b.ID)) {
			total++
		}
	}
	return total, nil
}

type dancerRepoStub struct{ db *memDB }

func (s dancerRepoStub) FindByID(ctx context.Context, id string) (*models.Dancer, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	d, ok := s.db.dancers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *d
	return &c, nil
}

func (s dancerRepoStub) FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.Dancer, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Dancer
	for _, id := range ids {
		if d, ok := s.db.dancers[id]; ok {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s dancerRepoStub) List(ctx context.Context, filter models.DancerFilter) ([]models.Dancer, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Dancer
	for _, d := range s.db.dancers {
		if filter.OnlyActive && !d.Active {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(d.FullName), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.BatchID != "" || filter.BatchIDs != nil {
			if !s.enrolled(d.ID, filter) {
				continue
			}
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s dancerRepoStub) enrolled(dancerID string, filter models.DancerFilter) bool {
	for _, e := range s.db.enrollments {
		if !e.Active || e.DancerID != dancerID {
			continue
		}
		if filter.BatchID != "" && e.BatchID != filter.BatchID {
			continue
		}
		if filter.BatchIDs != nil && !containsString(filter.BatchIDs, e.BatchID) {
			continue
		}
		return true
	}
	return false
}

func (s dancerRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, dancer *models.Dancer) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if dancer.ID == "" {
		dancer.ID = s.db.nextID("dancer")
	}
	c := *dancer
	s.db.dancers[dancer.ID] = &c
	return nil
}

func (s dancerRepoStub) Update(ctx context.Context, exec sqlx.ExtContext, dancer *models.Dancer) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.dancers[dancer.ID]; !ok {
		return sql.ErrNoRows
	}
	c := *dancer
	s.db.dancers[dancer.ID] = &c
	return nil
}

func (s dancerRepoStub) CountActive(ctx context.Context) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	total := 0
	for _, d := range s.db.dancers {
		if d.Active {
			total++
		}
	}
	return total, nil
}

type sessionRepoStub struct{ db *memDB }

func (s sessionRepoStub) InsertIfAbsent(ctx context.Context, session *models.Session) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.sessions {
		if existing.BatchID == session.BatchID && existing.Date.Equal(session.Date) {
			return false, nil
		}
	}
	if session.ID == "" {
		session.ID = s.db.nextID("session")
	}
	c := *session
	s.db.sessions[session.ID] = &c
	return true, nil
}

func (s sessionRepoStub) FindByBatchDate(ctx context.Context, batchID string, date time.Time) (*models.Session, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.sessions {
		if existing.BatchID == batchID && existing.Date.Equal(date) {
			c := *existing
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s sessionRepoStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string, forUpdate bool) (*models.Session, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *existing
	return &c, nil
}

func (s sessionRepoStub) List(ctx context.Context, filter models.SessionFilter, batchIDs []string) ([]models.SessionSummary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.SessionSummary
	for _, existing := range s.db.sessions {
		if filter.BatchID != "" && existing.BatchID != filter.BatchID {
			continue
		}
		if batchIDs != nil && !containsString(batchIDs, existing.BatchID) {
			continue
		}
		out = append(out, models.SessionSummary{Session: *existing})
	}
	return out, nil
}

func (s sessionRepoStub) CountOnDate(ctx context.Context, date time.Time, batchIDs []string) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	total := 0
	for _, existing := range s.db.sessions {
		if existing.Date.Equal(date) && (batchIDs == nil || containsString(batchIDs, existing.BatchID)) {
			total++
		}
	}
	return total, nil
}

// passRepoStub fails LockForDancers with the queued errors before serving rows.
type passRepoStub struct {
	db       *memDB
	lockErrs []error
	// staleBalance makes guarded updates miss as if the row changed under the lock.
	staleBalance bool
	createErr    error
}

func (s *passRepoStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string, forUpdate bool) (*models.Pass, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.passes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := clonePass(p)
	return &c, nil
}

func (s *passRepoStub) LockForDancers(ctx context.Context, exec sqlx.ExtContext, batchID string, dancerIDs []string) ([]models.Pass, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if len(s.lockErrs) > 0 {
		err := s.lockErrs[0]
		s.lockErrs = s.lockErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	var out []models.Pass
	for _, p := range s.db.passes {
		if p.BatchID == batchID && containsString(dancerIDs, p.DancerID) {
			out = append(out, clonePass(p))
		}
	}
	return out, nil
}

func (s *passRepoStub) List(ctx context.Context, filter models.PassFilter) ([]models.Pass, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Pass
	for _, p := range s.db.passes {
		if filter.DancerID != "" && p.DancerID != filter.DancerID {
			continue
		}
		if filter.BatchID != "" && p.BatchID != filter.BatchID {
			continue
		}
		if filter.BatchIDs != nil && !containsString(filter.BatchIDs, p.BatchID) {
			continue
		}
		out = append(out, clonePass(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *passRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, pass *models.Pass) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if pass.ID == "" {
		pass.ID = s.db.nextID("pass")
	}
	c := clonePass(pass)
	s.db.passes[pass.ID] = &c
	return nil
}

func (s *passRepoStub) Decrement(ctx context.Context, exec sqlx.ExtContext, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.passes[id]
	if !ok || s.staleBalance || p.Remaining() <= 0 {
		return sql.ErrNoRows
	}
	*p.RemainingClasses--
	return nil
}

func (s *passRepoStub) Restore(ctx context.Context, exec sqlx.ExtContext, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.passes[id]
	if !ok || s.staleBalance || p.Remaining() >= p.Total() {
		return sql.ErrNoRows
	}
	*p.RemainingClasses++
	return nil
}

func (s *passRepoStub) Renew(ctx context.Context, exec sqlx.ExtContext, pass *models.Pass) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.passes[pass.ID]; !ok {
		return sql.ErrNoRows
	}
	c := clonePass(pass)
	s.db.passes[pass.ID] = &c
	return nil
}

type attendanceRepoStub struct {
	db        *memDB
	upsertErr error
}

func (s *attendanceRepoStub) ListBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) ([]models.AttendanceRecord, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.AttendanceRecord
	for _, r := range s.db.records {
		if r.SessionID == sessionID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DancerID < out[j].DancerID })
	return out, nil
}

func (s *attendanceRepoStub) Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	if record.ID == "" {
		record.ID = s.db.nextID("record")
	}
	c := *record
	s.db.records[record.SessionID+"|"+record.DancerID] = &c
	return nil
}

func (s *attendanceRepoStub) TotalsForDancer(ctx context.Context, dancerID string) (*models.DancerAttendanceTotals, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	totals := &models.DancerAttendanceTotals{}
	for _, r := range s.db.records {
		if r.DancerID != dancerID {
			continue
		}
		totals.TotalSessions++
		if r.Status == models.AttendanceStatusPresent {
			totals.PresentCount++
		}
	}
	return totals, nil
}

func (s *attendanceRepoStub) CountPresentOn(ctx context.Context, date time.Time, batchIDs []string) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	total := 0
	for _, r := range s.db.records {
		session := s.db.sessions[r.SessionID]
		if session == nil || !session.Date.Equal(date) || r.Status != models.AttendanceStatusPresent {
			continue
		}
		if batchIDs == nil || containsString(batchIDs, session.BatchID) {
			total++
		}
	}
	return total, nil
}

type enrollmentRepoStub struct{ db *memDB }

func (s enrollmentRepoStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *e
	return &c, nil
}

func (s enrollmentRepoStub) FindActive(ctx context.Context, exec sqlx.ExtContext, dancerID, batchID string) (*models.Enrollment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, e := range s.db.enrollments {
		if e.Active && e.DancerID == dancerID && e.BatchID == batchID {
			c := *e
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s enrollmentRepoStub) ListByDancer(ctx context.Context, dancerID string) ([]models.Enrollment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Enrollment
	for _, e := range s.db.enrollments {
		if e.DancerID == dancerID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s enrollmentRepoStub) ListActiveEnrolled(ctx context.Context, batchIDs []string) ([]models.EnrolledDancer, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.EnrolledDancer
	for _, e := range s.db.enrollments {
		d, b := s.db.dancers[e.DancerID], s.db.batches[e.BatchID]
		if !e.Active || d == nil || b == nil || !d.Active || !b.Active {
			continue
		}
		if batchIDs != nil && !containsString(batchIDs, e.BatchID) {
			continue
		}
		out = append(out, models.EnrolledDancer{DancerID: d.ID, DancerName: d.FullName, BatchID: b.ID, BatchName: b.Name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DancerName != out[j].DancerName {
			return out[i].DancerName < out[j].DancerName
		}
		return out[i].BatchName < out[j].BatchName
	})
	return out, nil
}

func (s enrollmentRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if enrollment.ID == "" {
		enrollment.ID = s.db.nextID("enrollment")
	}
	enrollment.Active = true
	c := *enrollment
	s.db.enrollments[enrollment.ID] = &c
	return nil
}

func (s enrollmentRepoStub) Deactivate(ctx context.Context, exec sqlx.ExtContext, id string, leftAt time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.enrollments[id]
	if !ok || !e.Active {
		return sql.ErrNoRows
	}
	e.Active = false
	e.LeftAt = &leftAt
	return nil
}

func (s enrollmentRepoStub) DeactivateByDancer(ctx context.Context, exec sqlx.ExtContext, dancerID string, leftAt time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, e := range s.db.enrollments {
		if e.DancerID == dancerID && e.Active {
			e.Active = false
			e.LeftAt = &leftAt
		}
	}
	return nil
}

type userRepoStub struct{ db *memDB }

func (s userRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.User
	for _, u := range s.db.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *u
	return &c, nil
}

func (s userRepoStub) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := s.db.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s userRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if u, ok := s.db.users[id]; ok {
		u.LastLogin = &ts
	}
	return nil
}

func (s userRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c := *user
	s.db.users[user.ID] = &c
	return nil
}

func (s userRepoStub) Update(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	c := *user
	s.db.users[user.ID] = &c
	return nil
}

type settingsStub struct {
	values models.Settings
	err    error
}

func (s settingsStub) Current(ctx context.Context, exec sqlx.ExtContext) (models.Settings, error) {
	return s.values, s.err
}

type auditCall struct {
	Action     models.AuditAction
	EntityType string
	EntityID   string
	ActorID    string
	Metadata   interface{}
}

type auditRecorder struct {
	mu    sync.Mutex
	calls []auditCall
	err   error
}

func (a *auditRecorder) Append(ctx context.Context, exec sqlx.ExtContext, actor models.Actor, action models.AuditAction, entityType, entityID string, metadata interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.calls = append(a.calls, auditCall{Action: action, EntityType: entityType, EntityID: entityID, ActorID: actor.ID, Metadata: metadata})
	return nil
}

func (a *auditRecorder) actions() []models.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.AuditAction, 0, len(a.calls))
	for _, c := range a.calls {
		out = append(out, c.Action)
	}
	return out
}

type reportInvalidatorStub struct {
	calls int
}

func (r *reportInvalidatorStub) InvalidateAttendance(ctx context.Context) {
	r.calls++
}

var (
	adminActor      = models.Actor{ID: "admin-1", Name: "Studio Admin", Role: models.RoleAdmin}
	instructorActor = models.Actor{ID: "inst-1", Name: "Maya", Role: models.RoleInstructor}
	outsiderActor   = models.Actor{ID: "inst-2", Name: "Leo", Role: models.RoleInstructor}
)

// fixedClock pins "now" to mid-morning of statusToday.
func fixedClock() time.Time {
	return statusToday.Add(10 * time.Hour)
}

func expectTxCommit(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func expectTxRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

// seedRoster loads two batches with mixed pass states:
// d1 in b1 holds a low class pack, d2 in b1 an expired monthly pass,
// d3 in b2 an active monthly pass, and d1 in b2 no pass at all.
func seedRoster() *memDB {
	db := newMemDB()
	db.users["admin-1"] = &models.User{ID: "admin-1", Email: "admin@studio.test", FullName: "Studio Admin", Role: models.RoleAdmin, Active: true}
	db.users["inst-1"] = &models.User{ID: "inst-1", Email: "maya@studio.test", FullName: "Maya", Role: models.RoleInstructor, Active: true}
	db.users["inst-2"] = &models.User{ID: "inst-2", Email: "leo@studio.test", FullName: "Leo", Role: models.RoleInstructor, Active: true}
	db.batches["b1"] = &models.Batch{ID: "b1", Name: "Salsa Basics", Active: true, InstructorIDs: pq.StringArray{"inst-1"}}
	db.batches["b2"] = &models.Batch{ID: "b2", Name: "Bachata Nights", Active: true, InstructorIDs: pq.StringArray{"inst-2"}}
	db.dancers["d1"] = &models.Dancer{ID: "d1", FullName: "Asha", Active: true}
	db.dancers["d2"] = &models.Dancer{ID: "d2", FullName: "Bilal", Active: true}
	db.dancers["d3"] = &models.Dancer{ID: "d3", FullName: "Chen", Active: true}
	db.dancers["d4"] = &models.Dancer{ID: "d4", FullName: "Dara", Active: false}
	db.enrollments["e1"] = &models.Enrollment{ID: "e1", DancerID: "d1", BatchID: "b1", Active: true}
	db.enrollments["e2"] = &models.Enrollment{ID: "e2", DancerID: "d2", BatchID: "b1", Active: true}
	db.enrollments["e3"] = &models.Enrollment{ID: "e3", DancerID: "d3", BatchID: "b2", Active: true}
	db.enrollments["e4"] = &models.Enrollment{ID: "e4", DancerID: "d1", BatchID: "b2", Active: true}
	db.enrollments["e5"] = &models.Enrollment{ID: "e5", DancerID: "d4", BatchID: "b1", Active: true}
	db.passes["cp1"] = &models.Pass{ID: "cp1", DancerID: "d1", BatchID: "b1", Type: models.PassTypeClassPack, StartDate: statusToday.AddDate(0, 0, -20), TotalClasses: intPtr(8), RemainingClasses: intPtr(2)}
	db.passes["m2"] = &models.Pass{ID: "m2", DancerID: "d2", BatchID: "b1", Type: models.PassTypeMonthly, StartDate: statusToday.AddDate(0, 0, -33), EndDate: datePtr(statusToday.AddDate(0, 0, -3))}
	db.passes["m3"] = &models.Pass{ID: "m3", DancerID: "d3", BatchID: "b2", Type: models.PassTypeMonthly, StartDate: statusToday.AddDate(0, 0, -10), EndDate: datePtr(statusToday.AddDate(0, 0, 20))}
	db.sessions["s1"] = &models.Session{ID: "s1", BatchID: "b1", Date: statusToday}
	db.sessions["s2"] = &models.Session{ID: "s2", BatchID: "b2", Date: statusToday}
	db.records["s1|d1"] = &models.AttendanceRecord{ID: "r1", SessionID: "s1", DancerID: "d1", Status: models.AttendanceStatusPresent, PassID: strPtr("cp1")}
	db.records["s1|d2"] = &models.AttendanceRecord{ID: "r2", SessionID: "s1", DancerID: "d2", Status: models.AttendanceStatusAbsent}
	db.records["s2|d3"] = &models.AttendanceRecord{ID: "r3", SessionID: "s2", DancerID: "d3", Status: models.AttendanceStatusPresent}
	return db
}

func newRosterNotifications(db *memDB) *NotificationService {
	svc := NewNotificationService(enrollmentRepoStub{db: db}, &passRepoStub{db: db}, batchRepoStub{db: db}, settingsStub{values: models.DefaultSettings()}, nil, nil)
	svc.now = fixedClock
	return svc
}
