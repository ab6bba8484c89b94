package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/escape-room-booking/internal/customer"
	"github.com/nekogravitycat/escape-room-booking/internal/pricing"
	"github.com/nekogravitycat/escape-room-booking/internal/room"
	"github.com/nekogravitycat/escape-room-booking/internal/schedule"
)

const (
	monday = "2024-01-01"
	sunday = "2024-01-07"
)

// memStore is an in-memory Repository. WithRoomLock serializes all writers
// and discards their writes when fn fails.
type memStore struct {
	mu        sync.Mutex
	writeMu   sync.Mutex
	bookings  map[string]*Booking
	customers map[string]*customer.Customer
	nextID    int
	locks     [][]string

	// beforeWrite runs once the locks are held, before fn.
	beforeWrite func(m *memStore)
}

func newMemStore() *memStore {
	return &memStore{
		bookings:  make(map[string]*Booking),
		customers: make(map[string]*customer.Customer),
	}
}

func (m *memStore) insert(b *Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = fmt.Sprintf("b%03d", m.nextID)
	c := *b
	m.bookings[b.ID] = &c
}

func (m *memStore) Customers() customer.Repository {
	return memCustomers{m}
}

type memCustomers struct {
	m *memStore
}

func (r memCustomers) Upsert(_ context.Context, c *customer.Customer) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if existing, ok := r.m.customers[c.Email]; ok {
		if existing.Phone == "" {
			existing.Phone = c.Phone
		}
		*c = *existing
		return nil
	}
	c.ID = fmt.Sprintf("c%03d", len(r.m.customers)+1)
	stored := *c
	r.m.customers[c.Email] = &stored
	return nil
}

func (m *memStore) FindConflicting(_ context.Context, q ConflictQuery) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inGroup := make(map[string]bool, len(q.RoomIDs))
	for _, id := range q.RoomIDs {
		inGroup[id] = true
	}
	var out []*Booking
	for _, b := range m.bookings {
		if !inGroup[b.RoomID] || b.Status == StatusCancelled || b.ID == q.ExcludeBookingID {
			continue
		}
		if b.StartTime.Before(q.End) && b.EndTime.After(q.Start) {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = fmt.Sprintf("b%03d", m.nextID)
	b.CreatedAt = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	b.UpdatedAt = b.CreatedAt
	c := *b
	m.bookings[b.ID] = &c
	return nil
}

func (m *memStore) Update(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; !ok {
		return ErrNotFound
	}
	c := *b
	m.bookings[b.ID] = &c
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *b
	return &c, nil
}

func (m *memStore) List(_ context.Context, filter Filter) ([]*Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Booking
	for _, b := range m.bookings {
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		if filter.RoomID != "" && b.RoomID != filter.RoomID {
			continue
		}
		c := *b
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })

	total := len(all)
	from := (filter.Page - 1) * filter.PageSize
	if from > total {
		from = total
	}
	to := from + filter.PageSize
	if to > total {
		to = total
	}
	return all[from:to], total, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, status Status) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = b.UpdatedAt.Add(time.Minute)
	return b.UpdatedAt, nil
}

func (m *memStore) WithRoomLock(ctx context.Context, roomIDs []string, fn func(ctx context.Context, tx Tx) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.mu.Lock()
	m.locks = append(m.locks, append([]string{}, roomIDs...))
	bookings := make(map[string]*Booking, len(m.bookings))
	for id, b := range m.bookings {
		c := *b
		bookings[id] = &c
	}
	customers := make(map[string]*customer.Customer, len(m.customers))
	for email, c := range m.customers {
		cp := *c
		customers[email] = &cp
	}
	m.mu.Unlock()

	if m.beforeWrite != nil {
		m.beforeWrite(m)
	}
	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.bookings, m.customers = bookings, customers
		m.mu.Unlock()
		return err
	}
	return nil
}

type fakeRooms struct {
	rooms map[string]*room.Room
}

func (f *fakeRooms) GetByID(_ context.Context, id string) (*room.Room, error) {
	rm, ok := f.rooms[id]
	if !ok {
		return nil, room.ErrNotFound
	}
	c := *rm
	return &c, nil
}

func (f *fakeRooms) LinkGroup(_ context.Context, rm *room.Room) ([]string, error) {
	seen := map[string]bool{}
	for _, id := range rm.LinkedRoomIDs {
		seen[id] = true
	}
	for id, other := range f.rooms {
		for _, linked := range other.LinkedRoomIDs {
			if linked == rm.ID {
				seen[id] = true
			}
		}
	}
	delete(seen, rm.ID)
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func vaultRoom(id string) *room.Room {
	return &room.Room{
		ID:              id,
		Name:            "Vault " + id,
		Active:          true,
		DurationMinutes: 60,
		CapacityMin:     2,
		CapacityMax:     6,
		Prices:          pricing.Table{{Players: 2, Price: 40}, {Players: 4, Price: 70}},
		Schedule: schedule.Schedule{
			Template: schedule.WeekTemplate{
				Monday: []schedule.TimeSlot{{Start: "09:00", End: "12:00"}},
			},
		},
	}
}

type fixture struct {
	svc   Service
	store *memStore
	rooms *fakeRooms
}

func newFixture(strict bool, rooms ...*room.Room) *fixture {
	fr := &fakeRooms{rooms: make(map[string]*room.Room)}
	for _, rm := range rooms {
		fr.rooms[rm.ID] = rm
	}
	store := newMemStore()
	svc := NewService(store, fr, Options{
		Location:      time.UTC,
		StrictPricing: strict,
		WriteTimeout:  time.Second,
	}, zerolog.Nop())
	return &fixture{svc: svc, store: store, rooms: fr}
}

func ada() customer.Contact {
	return customer.Contact{Name: "Ada", Email: " Ada@Example.com ", Phone: "555-0100"}
}

func request(roomID, start string, players int) CreateRequest {
	return CreateRequest{RoomID: roomID, Date: monday, StartTime: start, Players: players, Customer: ada()}
}

func utc(clock string) time.Time {
	t, _ := time.Parse("2006-01-02 15:04", monday+" "+clock)
	return t
}

func TestService_Create(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))

	b, err := f.svc.Create(context.Background(), request("r1", "10:00", 2))
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, utc("10:00"), b.StartTime)
	assert.Equal(t, utc("11:00"), b.EndTime)
	assert.Equal(t, 40.0, b.Price)
	assert.Equal(t, "Vault r1", b.RoomName)
	assert.Equal(t, "ada@example.com", b.CustomerEmail)
	assert.Equal(t, [][]string{{"r1"}}, f.store.locks)

	stored, err := f.svc.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.StartTime, stored.StartTime)
}

func TestService_CreateRejects(t *testing.T) {
	inactive := vaultRoom("off")
	inactive.Active = false

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		want   error
	}{
		{"unknown room", func(r *CreateRequest) { r.RoomID = "nope" }, ErrRoomNotFound},
		{"inactive room", func(r *CreateRequest) { r.RoomID = "off" }, ErrRoomNotFound},
		{"bad date", func(r *CreateRequest) { r.Date = "2024-1-1" }, ErrFormat},
		{"bad time", func(r *CreateRequest) { r.StartTime = "9:00" }, ErrFormat},
		{"zero players", func(r *CreateRequest) { r.Players = 0 }, ErrInvalidInput},
		{"too many players", func(r *CreateRequest) { r.Players = 7 }, ErrInvalidPlayers},
		{"off-grid start", func(r *CreateRequest) { r.StartTime = "09:30" }, ErrSlotUnavailable},
		{"session overruns window", func(r *CreateRequest) { r.StartTime = "11:30" }, ErrSlotUnavailable},
		{"closed weekday", func(r *CreateRequest) { r.Date = sunday }, ErrSlotUnavailable},
		{"missing price", func(r *CreateRequest) { r.Players = 3 }, ErrPriceNotFound},
		{"completed status", func(r *CreateRequest) { r.Status = StatusCompleted }, ErrInvalidStatus},
		{"missing email", func(r *CreateRequest) { r.Customer.Email = "" }, customer.ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(true, vaultRoom("r1"), inactive)
			req := request("r1", "10:00", 2)
			tt.mutate(&req)

			_, err := f.svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.store.bookings)
		})
	}
}

func TestService_CreateLenientPricing(t *testing.T) {
	f := newFixture(false, vaultRoom("r1"))

	b, err := f.svc.Create(context.Background(), request("r1", "09:00", 3))
	require.NoError(t, err)
	assert.Zero(t, b.Price)
}

func TestService_CreateConfirmed(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	req := request("r1", "09:00", 4)
	req.Status = StatusConfirmed

	b, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, 70.0, b.Price)
}

func TestService_CreateConflict(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	ctx := context.Background()

	_, err := f.svc.Create(ctx, request("r1", "10:00", 2))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, request("r1", "10:00", 2))
	assert.ErrorIs(t, err, ErrSlotConflict)

	_, err = f.svc.Create(ctx, request("r1", "11:00", 2))
	assert.NoError(t, err)
}

func TestService_CreateConflictInsideLockLeavesNoCustomer(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	f.store.beforeWrite = func(m *memStore) {
		m.insert(&Booking{RoomID: "r1", StartTime: utc("10:00"), EndTime: utc("11:00"), Status: StatusConfirmed})
	}

	_, err := f.svc.Create(context.Background(), request("r1", "10:00", 2))
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.Empty(t, f.store.customers)
}

func TestService_CreateKeepsReturningCustomer(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	ctx := context.Background()

	req := request("r1", "10:00", 2)
	req.Customer.Phone = ""
	first, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	req = request("r1", "11:00", 2)
	req.Customer.Name = "Someone Else"
	second, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.Equal(t, "Ada", second.CustomerName)
	assert.Equal(t, "555-0100", second.CustomerPhone)
	assert.Len(t, f.store.customers, 1)
}

func TestService_CreateConflictAcrossLink(t *testing.T) {
	r1 := vaultRoom("r1")
	r2 := vaultRoom("r2")
	r2.LinkedRoomIDs = []string{"r1"}
	r3 := vaultRoom("r3")
	f := newFixture(true, r1, r2, r3)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, request("r2", "10:00", 2))
	require.NoError(t, err)

	// r1 never listed r2; the link is honored from either side.
	_, err = f.svc.Create(ctx, request("r1", "10:00", 2))
	assert.ErrorIs(t, err, ErrSlotConflict)

	_, err = f.svc.Create(ctx, request("r3", "10:00", 2))
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"r1", "r2"}, {"r3"}}, f.store.locks)
}

func TestService_CreateConcurrentSameSlot(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	ctx := context.Background()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, request("r1", "10:00", 2))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, ErrSlotConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
	assert.Len(t, f.store.bookings, 1)
}

func TestService_EditSameIntervalIsNotAConflict(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	ctx := context.Background()

	b, err := f.svc.Create(ctx, request("r1", "10:00", 2))
	require.NoError(t, err)

	start, notes, players := "10:00", "birthday", 4
	edited, err := f.svc.Edit(ctx, b.ID, EditRequest{StartTime: &start, Notes: &notes, Players: &players})
	require.NoError(t, err)
	assert.Equal(t, utc("10:00"), edited.StartTime)
	assert.Equal(t, utc("11:00"), edited.EndTime)
	assert.Equal(t, "birthday", edited.Notes)
	assert.Equal(t, 70.0, edited.Price)
}

func TestService_EditMove(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	ctx := context.Background()

	first, err := f.svc.Create(ctx, request("r1", "09:00", 2))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, request("r1", "10:00", 2))
	require.NoError(t, err)

	taken := "10:00"
	_, err = f.svc.Edit(ctx, first.ID, EditRequest{StartTime: &taken})
	assert.ErrorIs(t, err, ErrSlotConflict)

	offGrid := "10:15"
	_, err = f.svc.Edit(ctx, first.ID, EditRequest{StartTime: &offGrid})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	free := "11:00"
	moved, err := f.svc.Edit(ctx, first.ID, EditRequest{StartTime: &free})
	require.NoError(t, err)
	assert.Equal(t, utc("11:00"), moved.StartTime)
	assert.Equal(t, utc("12:00"), moved.EndTime)
}

func TestService_EditExplicitEndTime(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	ctx := context.Background()

	b, err := f.svc.Create(ctx, request("r1", "10:00", 2))
	require.NoError(t, err)

	end := "10:30"
	edited, err := f.svc.Edit(ctx, b.ID, EditRequest{EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, utc("10:30"), edited.EndTime)

	before := "09:00"
	_, err = f.svc.Edit(ctx, b.ID, EditRequest{EndTime: &before})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestService_EditRoom(t *testing.T) {
	r2 := vaultRoom("r2")
	r2.Prices = pricing.Table{{Players: 2, Price: 55}}
	f := newFixture(true, vaultRoom("r1"), r2)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, request("r1", "10:00", 2))
	require.NoError(t, err)

	target := "r2"
	moved, err := f.svc.Edit(ctx, b.ID, EditRequest{RoomID: &target})
	require.NoError(t, err)
	assert.Equal(t, "r2", moved.RoomID)
	assert.Equal(t, 55.0, moved.Price)

	// r1 is free again.
	_, err = f.svc.Create(ctx, request("r1", "10:00", 2))
	assert.NoError(t, err)
}

func TestService_EditNotEditable(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	ctx := context.Background()

	b, err := f.svc.Create(ctx, request("r1", "10:00", 2))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, b.ID)
	require.NoError(t, err)

	notes := "late"
	_, err = f.svc.Edit(ctx, b.ID, EditRequest{Notes: &notes})
	assert.ErrorIs(t, err, ErrNotEditable)

	_, err = f.svc.Edit(ctx, "missing", EditRequest{Notes: &notes})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_UpdateStatus(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	ctx := context.Background()

	b, err := f.svc.Create(ctx, request("r1", "10:00", 2))
	require.NoError(t, err)

	confirmed, err := f.svc.UpdateStatus(ctx, b.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	_, err = f.svc.UpdateStatus(ctx, b.ID, StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, b.ID, Status("bogus"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	same, err := f.svc.UpdateStatus(ctx, b.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, same.Status)

	_, err = f.svc.UpdateStatus(ctx, "missing", StatusConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_CancelReleasesSlot(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	ctx := context.Background()

	b, err := f.svc.Create(ctx, request("r1", "10:00", 2))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = f.svc.Create(ctx, request("r1", "10:00", 2))
	assert.NoError(t, err)
	assert.Len(t, f.store.bookings, 2, "cancelled bookings are kept")
}

func TestService_List(t *testing.T) {
	f := newFixture(true, vaultRoom("r1"))
	ctx := context.Background()

	for _, start := range []string{"11:00", "09:00"} {
		_, err := f.svc.Create(ctx, request("r1", start, 2))
		require.NoError(t, err)
	}

	list, total, err := f.svc.List(ctx, Filter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, utc("09:00"), list[0].StartTime)

	_, _, err = f.svc.List(ctx, Filter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_Availability(t *testing.T) {
	r1 := vaultRoom("r1")
	r1.Schedule.DaysOff = []schedule.DayOff{{Date: "2024-01-08", Reason: "maintenance"}}
	r2 := vaultRoom("r2")
	r2.LinkedRoomIDs = []string{"r1"}
	f := newFixture(true, r1, r2)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, request("r2", "10:00", 2))
	require.NoError(t, err)

	av, err := f.svc.Availability(ctx, "r1", monday)
	require.NoError(t, err)
	assert.False(t, av.Closed)
	assert.Equal(t, []schedule.TimeSlot{{Start: "09:00", End: "12:00"}}, av.Windows)
	assert.Equal(t, []SessionAvailability{
		{Start: "09:00", End: "10:00", Available: true},
		{Start: "10:00", End: "11:00", Available: false},
		{Start: "11:00", End: "12:00", Available: true},
	}, av.Sessions)

	off, err := f.svc.Availability(ctx, "r1", "2024-01-08")
	require.NoError(t, err)
	assert.True(t, off.Closed)
	assert.Equal(t, "maintenance", off.Reason)
	assert.Empty(t, off.Sessions)

	closed, err := f.svc.Availability(ctx, "r1", sunday)
	require.NoError(t, err)
	assert.True(t, closed.Closed)
	assert.Empty(t, closed.Reason)

	_, err = f.svc.Availability(ctx, "r1", "01/01/2024")
	assert.ErrorIs(t, err, ErrFormat)

	_, err = f.svc.Availability(ctx, "nope", monday)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
