package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/dining-reservation/internal/database"
	"github.com/iliyamo/dining-reservation/internal/logger"
	"github.com/iliyamo/dining-reservation/internal/queue"
	"github.com/iliyamo/dining-reservation/internal/repository"
)

type recordingPublisher struct {
	mu       sync.Mutex
	created  []queue.ReservationCreatedEvent
	assigned []queue.TablesAssignedEvent
	fail     bool
}

func (p *recordingPublisher) PublishReservationCreated(_ context.Context, ev queue.ReservationCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, ev)
	if p.fail {
		return errors.New("broker down")
	}
	return nil
}

func (p *recordingPublisher) PublishTablesAssigned(_ context.Context, ev queue.TablesAssignedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assigned = append(p.assigned, ev)
	if p.fail {
		return errors.New("broker down")
	}
	return nil
}

type fixture struct {
	svc       *ReservationService
	db        *sql.DB
	customers *repository.CustomerRepo
	events    *recordingPublisher
}

func setupService(t *testing.T) fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db, database.SQLite))
	tables := repository.NewTableRepo(db, database.SQLite)
	require.NoError(t, tables.EnsureInventory(ctx, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))

	customers := repository.NewCustomerRepo(db, database.SQLite)
	events := &recordingPublisher{}
	svc := NewReservationService(db,
		customers,
		repository.NewReservationRepo(db, database.SQLite),
		tables,
		repository.NewAssignmentRepo(db, database.SQLite),
		events,
		logger.NewNop(),
	)
	return fixture{svc: svc, db: db, customers: customers, events: events}
}

func (f fixture) book(t *testing.T, first, last, phone, at string) uint64 {
	t.Helper()
	id, err := f.svc.BookReservation(context.Background(), BookingRequest{
		FirstName: first, LastName: last, Phone: phone, NumPeople: 2, ReservationDatetime: at,
	})
	require.NoError(t, err)
	return id
}

func (f fixture) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestResolveOrCreateCustomer(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	id, err := f.svc.ResolveOrCreateCustomer(ctx, "Jane", "Doe", "555-867-5309", "jane@example.com")
	require.NoError(t, err)

	again, err := f.svc.ResolveOrCreateCustomer(ctx, "JANE", "doe", "(555) 867-5309", "")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	c, err := f.customers.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", c.Email, "empty email must not overwrite")
	assert.Equal(t, "Jane", c.FirstName)

	_, err = f.svc.ResolveOrCreateCustomer(ctx, "Jane", "Doe", "5558675309", "new@example.com")
	require.NoError(t, err)
	c, err = f.customers.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", c.Email)

	other, err := f.svc.ResolveOrCreateCustomer(ctx, "Jane", "Doe", "555-867-0000", "")
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	_, err = f.svc.ResolveOrCreateCustomer(ctx, "Jane", "Doe", "12345", "")
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, 2, f.countRows(t, "customers"))
}

func TestFindCustomer(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, found := f.svc.FindCustomer(ctx, "Jane", "Doe", "555-867-5309")
	assert.False(t, found)

	id, err := f.svc.ResolveOrCreateCustomer(ctx, "Jane", "Doe", "555-867-5309", "")
	require.NoError(t, err)

	got, found := f.svc.FindCustomer(ctx, " jane ", "DOE", "+1 555 867 5309")
	assert.True(t, found)
	assert.Equal(t, id, got)

	_, found = f.svc.FindCustomer(ctx, "Jane", "Doe", "not a phone")
	assert.False(t, found)
}

func TestBookReservationDuplicate(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	req := BookingRequest{
		FirstName: "Jane", LastName: "Doe", Phone: "555-867-5309",
		NumPeople: 4, ReservationDatetime: "2024-01-05 19:00",
	}
	id, err := f.svc.BookReservation(ctx, req)
	require.NoError(t, err)
	assert.NotZero(t, id)

	req.FirstName = "JANE"
	req.ReservationDatetime = "2024-01-05T19:00:00"
	_, err = f.svc.BookReservation(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateReservation)
	assert.Equal(t, 1, f.countRows(t, "reservations"))

	req.ReservationDatetime = "2024-01-05 19:30"
	second, err := f.svc.BookReservation(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, id, second)
}

func TestBookReservationValidation(t *testing.T) {
	f := setupService(t)
	valid := BookingRequest{
		FirstName: "Jane", LastName: "Doe", Phone: "555-867-5309",
		NumPeople: 2, ReservationDatetime: "2024-01-05 19:00",
	}
	tests := []struct {
		name   string
		mutate func(r *BookingRequest)
	}{
		{"bad phone", func(r *BookingRequest) { r.Phone = "867-5309" }},
		{"bad datetime", func(r *BookingRequest) { r.ReservationDatetime = "2024-13-45 19:00" }},
		{"zero people", func(r *BookingRequest) { r.NumPeople = 0 }},
		{"negative highchairs", func(r *BookingRequest) { r.NumHighchairs = -1 }},
		{"missing name", func(r *BookingRequest) { r.LastName = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := f.svc.BookReservation(context.Background(), req)
			assert.Equal(t, ErrInvalidParameter, err)
		})
	}
	assert.Equal(t, 0, f.countRows(t, "reservations"))
	assert.Equal(t, 0, f.countRows(t, "customers"))
}

func TestBookReservationDefaults(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.svc.SetClock(func() time.Time { return time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC) })

	id, err := f.svc.BookReservation(ctx, BookingRequest{
		FirstName: "Jane", LastName: "Doe", Phone: "555-867-5309", Email: "jane@example.com",
		NumPeople: 3, ReservationDatetime: "2024-01-05 19:00", DateCreated: "2024-99-99",
		NumHighchairs: 1, Notes: "birthday",
	})
	require.NoError(t, err)

	res, err := f.svc.GetReservation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 09:30:00", res.DateCreated)
	assert.Equal(t, "2024-01-05 19:00:00", res.ReservationDatetime)
	assert.Equal(t, 1, res.NumHighchairs)
	assert.Equal(t, "birthday", res.Notes)
	assert.Empty(t, res.TableNumbers)
	assert.False(t, res.Assigned())
	require.NotNil(t, res.Customer)
	assert.Equal(t, "(555) 867-5309", res.Customer.PhoneNumber)
	assert.Equal(t, "jane@example.com", res.Customer.Email)

	id2, err := f.svc.BookReservation(ctx, BookingRequest{
		FirstName: "Jane", LastName: "Doe", Phone: "555-867-5309",
		NumPeople: 3, ReservationDatetime: "2024-01-06 19:00", DateCreated: "2023-12-31 08:00",
	})
	require.NoError(t, err)
	res, err = f.svc.GetReservation(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31 08:00:00", res.DateCreated)

	require.Len(t, f.events.created, 2)
	assert.Equal(t, id, f.events.created[0].ReservationID)
	assert.Equal(t, "Jane", f.events.created[0].FirstName)
}

func TestIsTableAvailableBoundaries(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	id := f.book(t, "Jane", "Doe", "555-867-5309", "2024-01-05 19:00:00")
	require.NoError(t, f.svc.AssignTables(ctx, id, []int{3}, 2))

	tests := []struct {
		table   int
		at      string
		spacing float64
		want    bool
	}{
		{3, "2024-01-05 19:00:00", 0, false},
		{3, "2024-01-05 19:00:00", 2, false},
		{3, "2024-01-05 20:59:59", 2, false},
		{3, "2024-01-05 17:00:01", 2, false},
		{3, "2024-01-05 21:00:00", 2, true},
		{3, "2024-01-05 17:00:00", 2, true},
		{3, "2024-01-05 19:00:01", 0, true},
		{3, "2024-01-05 19:00:01", -1, true},
		{3, "2024-01-05 20:30:00", 1.75, false},
		{3, "2024-01-05 20:30:00", 1.5, true},
		{3, "2024-01-05 20:30:00", 1.25, true},
		{4, "2024-01-05 19:00:00", 2, true},
		{3, "2024-01-05 25:00:00", 2, false},
		{3, "2024-01-05 20:00:00", math.NaN(), false},
		{4, "2024-01-05 20:00:00", math.NaN(), false},
		{4, "2024-01-05 20:00:00", math.Inf(1), false},
	}
	for _, tt := range tests {
		got := f.svc.IsTableAvailable(ctx, tt.table, tt.at, tt.spacing)
		assert.Equal(t, tt.want, got, "table %d at %s spacing %g", tt.table, tt.at, tt.spacing)
	}
}

func TestTablesAreValid(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	assert.True(t, f.svc.TablesAreValid(ctx, []int{1, 10}))
	assert.True(t, f.svc.TablesAreValid(ctx, []int{2, 2}))
	assert.False(t, f.svc.TablesAreValid(ctx, []int{1, 11}))
	assert.False(t, f.svc.TablesAreValid(ctx, nil))
}

func TestAssignTablesAllOrNothing(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	first := f.book(t, "Ann", "Lee", "555-000-0001", "2024-01-05 19:00")
	require.NoError(t, f.svc.AssignTables(ctx, first, []int{9}, 2))

	second := f.book(t, "Bob", "Ray", "555-000-0002", "2024-01-05 19:30")
	err := f.svc.AssignTables(ctx, second, []int{5, 9}, 2)
	require.ErrorIs(t, err, ErrOverlappingReservation)
	var overlap *OverlappingReservationError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, 9, overlap.TableNumber)
	assert.Equal(t, "2024-01-05 19:30:00", overlap.Datetime)
	assert.Equal(t, 2.0, overlap.SpacingHours)

	res, err := f.svc.GetReservation(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, res.TableNumbers)
	assert.True(t, f.svc.IsTableAvailable(ctx, 5, "2024-01-05 19:30:00", 0))
	assert.Equal(t, 1, f.countRows(t, "reservation_tables"))
}

func TestAssignTablesErrors(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	id := f.book(t, "Ann", "Lee", "555-000-0001", "2024-01-05 19:00")

	err := f.svc.AssignTables(ctx, id, []int{3, 99}, 2)
	require.ErrorIs(t, err, ErrInvalidTableNumber)
	var invalid *InvalidTableNumberError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []int{99}, invalid.Tables)

	err = f.svc.AssignTables(ctx, id, []int{3, 99, 4, 77, 99}, 2)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []int{99, 77}, invalid.Tables)

	for _, spacing := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err = f.svc.AssignTables(ctx, id, []int{3}, spacing)
		assert.ErrorIs(t, err, ErrInvalidParameter, "spacing %g", spacing)
	}

	err = f.svc.AssignTables(ctx, id, nil, 2)
	assert.ErrorIs(t, err, ErrInvalidTableNumber)

	err = f.svc.AssignTables(ctx, id+1000, []int{3}, 2)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	assert.Equal(t, 0, f.countRows(t, "reservation_tables"))

	require.NoError(t, f.svc.AssignTables(ctx, id, []int{4, 2, 4}, 2))
	res, err := f.svc.GetReservation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, res.TableNumbers)
	require.Len(t, f.events.assigned, 1)
	assert.Equal(t, []int{4, 2}, f.events.assigned[0].TableNumbers)
}

func TestNonFiniteSpacingDoesNotAssign(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	jane := f.book(t, "Jane", "Doe", "555-867-5309", "2024-01-05 19:00")
	require.NoError(t, f.svc.AssignTables(ctx, jane, []int{3}, 2))
	john := f.book(t, "John", "Roe", "555-111-2222", "2024-01-05 20:00")

	assert.False(t, f.svc.IsTableAvailable(ctx, 3, "2024-01-05 20:00", math.NaN()))
	err := f.svc.AssignTables(ctx, john, []int{3}, math.NaN())
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, 1, f.countRows(t, "reservation_tables"))

	_, err = f.svc.TableAvailability(ctx, 3, "2024-01-05 20:00", math.NaN())
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestJaneDoeScenario(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	jane, err := f.svc.BookReservation(ctx, BookingRequest{
		FirstName: "Jane", LastName: "Doe", Phone: "555-867-5309",
		NumPeople: 4, ReservationDatetime: "2024-01-05 19:00",
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.AssignTables(ctx, jane, []int{3}, DefaultSpacingHours))

	late := f.book(t, "John", "Roe", "555-111-2222", "2024-01-05 20:00")
	err = f.svc.AssignTables(ctx, late, []int{3}, DefaultSpacingHours)
	assert.ErrorIs(t, err, ErrOverlappingReservation)

	later := f.book(t, "Mary", "Poe", "555-333-4444", "2024-01-05 21:00")
	assert.NoError(t, f.svc.AssignTables(ctx, later, []int{3}, DefaultSpacingHours))

	list, err := f.svc.ListReservationsForDate(ctx, "2024-01-05")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{3}, list[0].TableNumbers)
	assert.Empty(t, list[1].TableNumbers)
	assert.Equal(t, []int{3}, list[2].TableNumbers)
}

func TestConcurrentAssignmentSameTable(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	ids := []uint64{
		f.book(t, "Ann", "Lee", "555-000-0001", "2024-01-05 19:00"),
		f.book(t, "Bob", "Ray", "555-000-0002", "2024-01-05 19:00"),
		f.book(t, "Cy", "Fox", "555-000-0003", "2024-01-05 19:30"),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			errs[i] = f.svc.AssignTables(ctx, id, []int{7}, 2)
		}(i, id)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrOverlappingReservation)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.countRows(t, "reservation_tables"))
}

func TestConcurrentDuplicateBooking(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	req := BookingRequest{
		FirstName: "Jane", LastName: "Doe", Phone: "555-867-5309",
		NumPeople: 2, ReservationDatetime: "2024-01-05 19:00",
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.BookReservation(ctx, req)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateReservation)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.countRows(t, "reservations"))
	assert.Equal(t, 1, f.countRows(t, "customers"))
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := setupService(t)
	f.events.fail = true
	id := f.book(t, "Jane", "Doe", "555-867-5309", "2024-01-05 19:00")
	assert.NoError(t, f.svc.AssignTables(context.Background(), id, []int{1}, 2))
}

func TestTableAvailability(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	id := f.book(t, "Jane", "Doe", "555-867-5309", "2024-01-05 19:00")
	require.NoError(t, f.svc.AssignTables(ctx, id, []int{3}, 2))

	free, err := f.svc.TableAvailability(ctx, 3, "2024-01-05 20:00", 2)
	require.NoError(t, err)
	assert.False(t, free)

	free, err = f.svc.TableAvailability(ctx, 3, "2024-01-05 21:00", 2)
	require.NoError(t, err)
	assert.True(t, free)

	_, err = f.svc.TableAvailability(ctx, 42, "2024-01-05 21:00", 2)
	assert.ErrorIs(t, err, ErrInvalidTableNumber)

	_, err = f.svc.TableAvailability(ctx, 3, "2024-02-30 10:00", 2)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	tables, err := f.svc.ListTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 10)

	_, err = f.svc.ListReservationsForDate(ctx, "2024-13-01")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestStorageFailureFailsClosed(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	id, err := f.svc.ResolveOrCreateCustomer(ctx, "Jane", "Doe", "555-867-5309", "")
	require.NoError(t, err)
	require.NotZero(t, id)

	require.NoError(t, f.db.Close())

	assert.False(t, f.svc.IsTableAvailable(ctx, 3, "2024-01-05 19:00:00", 2))
	assert.False(t, f.svc.TablesAreValid(ctx, []int{3}))
	_, found := f.svc.FindCustomer(ctx, "Jane", "Doe", "555-867-5309")
	assert.False(t, found)

	_, err = f.svc.BookReservation(ctx, BookingRequest{
		FirstName: "Jane", LastName: "Doe", Phone: "555-867-5309",
		NumPeople: 2, ReservationDatetime: "2024-01-05 19:00",
	})
	assert.ErrorIs(t, err, ErrReservationPersistence)
	assert.ErrorIs(t, f.svc.AssignTables(ctx, 1, []int{3}, 2), ErrAssignmentPersistence)
}

func TestErrorMessages(t *testing.T) {
	err := &OverlappingReservationError{Datetime: "2024-01-05 19:00:00", TableNumber: 3, SpacingHours: 2}
	assert.Equal(t, "there is already a reservation at table 3 within 2 hours of 2024-01-05 19:00:00", err.Error())
	assert.True(t, errors.Is(err, ErrOverlappingReservation))
	assert.False(t, errors.Is(err, ErrInvalidTableNumber))

	inv := &InvalidTableNumberError{Tables: []int{1, 99}}
	assert.Equal(t, "invalid table number in [1 99]", inv.Error())
	assert.True(t, errors.Is(inv, ErrInvalidTableNumber))
}
