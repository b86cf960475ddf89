package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"volunteermatch/internal/domain"
	"volunteermatch/internal/projection"
)

// memStore is an in-memory OpportunityRepository and RegistrationRepository. A single mutex
// makes every call atomic, which is what the postgres repositories guarantee with row locks.
type memStore struct {
	mu     sync.Mutex
	opps   map[string]*domain.Opportunity
	regs   map[string][]*domain.Registration // by opportunity id, in signup order
	nextID int
	err    error // if set, every call returns it
	// writeErr, if set, is returned by registration writes only.
	writeErr error
	// readErrAfterWrite, if set, is returned by GetByID once a registration write has succeeded.
	readErrAfterWrite error
	wrote             bool
}

func newMemStore() *memStore {
	return &memStore{
		opps:   make(map[string]*domain.Opportunity),
		regs:   make(map[string][]*domain.Registration),
		nextID: 1,
	}
}

func (m *memStore) withParticipants(o *domain.Opportunity) *domain.Opportunity {
	c := o.Clone()
	c.Registrations = []domain.Participant{}
	for _, r := range m.regs[o.ID] {
		c.Registrations = append(c.Registrations, domain.Participant{ID: r.UserID, Registered: r.Registered, Attended: r.Attended})
	}
	return c
}

func (m *memStore) find(oppID, userID string) *domain.Registration {
	for _, r := range m.regs[oppID] {
		if r.UserID == userID {
			return r
		}
	}
	return nil
}

func (m *memStore) active(oppID string) int {
	n := 0
	for _, r := range m.regs[oppID] {
		if r.Registered {
			n++
		}
	}
	return n
}

func (m *memStore) Create(ctx context.Context, o *domain.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	o.ID = fmt.Sprintf("opp-%d", m.nextID)
	m.nextID++
	m.opps[o.ID] = o.Clone()
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.wrote && m.readErrAfterWrite != nil {
		return nil, m.readErrAfterWrite
	}
	o, ok := m.opps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.withParticipants(o), nil
}

func (m *memStore) listWhere(keep func(*domain.Opportunity) bool) ([]*domain.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*domain.Opportunity, 0, len(m.opps))
	for _, o := range m.opps {
		if keep(o) {
			out = append(out, m.withParticipants(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) List(ctx context.Context) ([]*domain.Opportunity, error) {
	return m.listWhere(func(*domain.Opportunity) bool { return true })
}

func (m *memStore) ListUnapproved(ctx context.Context) ([]*domain.Opportunity, error) {
	return m.listWhere(func(o *domain.Opportunity) bool { return !o.Approved })
}

func (m *memStore) ListByIDs(ctx context.Context, ids []string) ([]*domain.Opportunity, error) {
	return m.listWhere(func(o *domain.Opportunity) bool { return slices.Contains(ids, o.ID) })
}

func (m *memStore) mutate(id string, fn func(o *domain.Opportunity) error) (*domain.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.opps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	return m.withParticipants(o), nil
}

func (m *memStore) Update(ctx context.Context, id string, patch domain.OpportunityPatch) (*domain.Opportunity, error) {
	return m.mutate(id, func(o *domain.Opportunity) error {
		if patch.TotalSlots != nil && *patch.TotalSlots < m.active(id) {
			return domain.ErrInvalidInput
		}
		patch.Apply(o)
		return nil
	})
}

func (m *memStore) SetApproved(ctx context.Context, id string, approved bool) (*domain.Opportunity, error) {
	return m.mutate(id, func(o *domain.Opportunity) error {
		o.Approved = approved
		return nil
	})
}

func (m *memStore) AppendComment(ctx context.Context, id, comment string) (*domain.Opportunity, error) {
	return m.mutate(id, func(o *domain.Opportunity) error {
		o.Comments = append(o.Comments, comment)
		return nil
	})
}

func (m *memStore) MarkHostAttended(ctx context.Context, id string) (*domain.Opportunity, error) {
	return m.mutate(id, func(o *domain.Opportunity) error {
		o.HostAttended = true
		o.AttendanceMarked = true
		return nil
	})
}

func (m *memStore) MarkAttendanceTaken(ctx context.Context, id string) (*domain.Opportunity, error) {
	return m.mutate(id, func(o *domain.Opportunity) error {
		o.AttendanceMarked = true
		return nil
	})
}

func (m *memStore) Delete(ctx context.Context, id string, pendingOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	o, ok := m.opps[id]
	if !ok {
		return domain.ErrNotFound
	}
	if pendingOnly && o.Approved {
		return domain.ErrForbidden
	}
	delete(m.opps, id)
	delete(m.regs, id)
	return nil
}

func (m *memStore) Register(ctx context.Context, userID, opportunityID string, allowUnapproved bool) (*domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	o, ok := m.opps[opportunityID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !o.Approved && !allowUnapproved {
		return nil, domain.ErrNotApproved
	}
	r := m.find(opportunityID, userID)
	if r != nil && r.Registered {
		return nil, domain.ErrAlreadyRegistered
	}
	if m.active(opportunityID) >= o.TotalSlots {
		return nil, domain.ErrCapacityExceeded
	}
	if r == nil {
		r = &domain.Registration{UserID: userID, OpportunityID: opportunityID}
		m.regs[opportunityID] = append(m.regs[opportunityID], r)
	}
	r.Registered = true
	r.Attended = false
	m.wrote = true
	c := *r
	return &c, nil
}

func (m *memStore) Unregister(ctx context.Context, userID, opportunityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	r := m.find(opportunityID, userID)
	if r == nil || !r.Registered {
		return domain.ErrNotRegistered
	}
	r.Registered = false
	m.wrote = true
	return nil
}

func (m *memStore) MarkAttended(ctx context.Context, userID, opportunityID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	r := m.find(opportunityID, userID)
	if r == nil || !r.Registered {
		return false, domain.ErrNotRegistered
	}
	changed := !r.Attended
	r.Attended = true
	m.opps[opportunityID].AttendanceMarked = true
	return changed, nil
}

func (m *memStore) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Registration
	for _, regs := range m.regs {
		for _, r := range regs {
			if r.UserID == userID && r.Registered {
				c := *r
				out = append(out, &c)
			}
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type sentEmail struct {
	kind string
	to   string
}

type fakeEmailService struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmailService) record(kind, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{kind: kind, to: to})
	return nil
}

func (f *fakeEmailService) SendOpportunityApproved(ctx context.Context, data *domain.OpportunityApprovedEmailData) error {
	return f.record("approved", data.Email)
}

func (f *fakeEmailService) SendSignUpConfirmation(ctx context.Context, data *domain.SignUpConfirmationEmailData) error {
	return f.record("signup", data.Email)
}

func (f *fakeEmailService) SendAnnouncement(ctx context.Context, data *domain.AnnouncementEmailData) error {
	return f.record("announcement", data.Email)
}

func (f *fakeEmailService) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.kind+":"+s.to)
	}
	return out
}

var (
	adminViewer = &domain.Viewer{ID: "admin", Admin: true}
	hostViewer  = &domain.Viewer{ID: "host", Organizations: []string{"org-green"}}
	volA        = &domain.Viewer{ID: "vol-a"}
	volB        = &domain.Viewer{ID: "vol-b"}
)

type fixture struct {
	now        time.Time
	store      *memStore
	users      *fakeUserRepo
	emails     *fakeEmailService
	cache      *projection.Cache
	opps       *opportunityService
	regs       *registrationService
	listing    *listingService
	attendance *attendanceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		store:  newMemStore(),
		emails: &fakeEmailService{},
		users: &fakeUserRepo{users: map[string]*domain.User{
			"host":  {ID: "host", Email: "host@example.com", Name: "Hana"},
			"vol-a": {ID: "vol-a", Email: "a@example.com", Name: "Ada", LastName: "Lovelace"},
			"vol-b": {ID: "vol-b", Email: "b@example.com", Name: "Bo"},
		}},
	}
	clock := func() time.Time { return f.now }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.cache = projection.NewCache(time.Minute, clock)

	f.opps = NewOpportunityService(f.store, f.users, f.emails, f.cache, logger, "UTC", time.Second).(*opportunityService)
	f.opps.now = clock
	f.regs = NewRegistrationService(f.store, f.store, f.users, f.emails, f.cache, logger, time.Second).(*registrationService)
	f.regs.now = clock
	f.listing = NewListingService(f.store, f.cache, logger, time.Second).(*listingService)
	f.listing.now = clock
	f.attendance = NewAttendanceService(f.store, f.store, f.cache, logger, time.Second).(*attendanceService)
	f.attendance.now = clock
	return f
}

// at runs fn with the fixture's clock set to t, then restores it.
func (f *fixture) at(t time.Time, fn func()) {
	prev := f.now
	f.now = t
	defer func() { f.now = prev }()
	fn()
}

// input returns a valid opportunity input starting 2026-03-10 15:00 UTC.
func input(slots int) domain.NewOpportunityInput {
	return domain.NewOpportunityInput{
		Name:            "Beach cleanup",
		Description:     "Bring gloves",
		TotalSlots:      slots,
		Date:            "2026-03-10",
		Time:            "15:00",
		DurationMinutes: 120,
		Causes:          []string{"Environment"},
		Address:         "Pier 39",
	}
}

// approved creates an opportunity hosted by hostViewer and approves it.
func (f *fixture) approved(t *testing.T, in domain.NewOpportunityInput) *domain.Opportunity {
	t.Helper()
	ctx := context.Background()
	o, err := f.opps.Create(ctx, hostViewer, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	o, err = f.opps.Approve(ctx, adminViewer, o.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return o
}
