package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

// -- Test doubles --

// staleReadRepo hides existing bookings from the Scheduler, the way a
// concurrent caller that read before another's commit would see the store.
type staleReadRepo struct {
	*MemoryRepository
}

func (r staleReadRepo) FindByDoctorAndDate(context.Context, uuid.UUID, clock.Date) ([]Appointment, error) {
	return nil, nil
}

func (r staleReadRepo) ExistsSlot(context.Context, Slot) (bool, error) {
	return false, nil
}

// blockingRepo blocks store reads until the context is done.
type blockingRepo struct {
	*MemoryRepository
}

func (r blockingRepo) FindByDoctorAndDate(ctx context.Context, _ uuid.UUID, _ clock.Date) ([]Appointment, error) {
	<-ctx.Done()
	return nil, storageError("find by doctor and date", ctx.Err())
}

type failingLocker struct{ err error }

func (l failingLocker) WithDoctorDayLock(context.Context, uuid.UUID, clock.Date, func(context.Context) error) error {
	return l.err
}

type fixture struct {
	repo    *MemoryRepository
	svc     *Service
	doctor  Doctor
	patient Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := NewMemoryRepository()
	f := &fixture{
		repo: repo,
		doctor: Doctor{
			ID:            uuid.New(),
			FullName:      "Dr. Ada Lovelace",
			Email:         "ada@vitacare.test",
			LicenseNumber: "LIC-001",
		},
		patient: Patient{ID: uuid.New(), Email: "pat@vitacare.test", FirstName: "Pat", LastName: "Smith"},
	}
	require.NoError(t, repo.AddDoctor(context.Background(), f.doctor))
	require.NoError(t, repo.AddPatient(context.Background(), f.patient))
	f.svc = NewService(repo, nil, ServiceConfig{Now: fixedNow, StoreTimeout: time.Second})
	return f
}

func (f *fixture) request() BookRequest {
	return BookRequest{
		PatientID: f.patient.ID,
		Doctor:    DoctorRef{ID: f.doctor.ID},
		Date:      datePtr(testToday),
	}
}

// -- Book --

func TestBook_CommitsSuggestedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Book(ctx, f.request())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.Appointment.ID)
	assert.Equal(t, testToday, first.Appointment.Date)
	assert.Equal(t, clock.NewTime(6, 0, 0), first.Appointment.Time)
	assert.Equal(t, "Dr. Ada Lovelace", first.Appointment.DoctorName)
	assert.Nil(t, first.Appointment.Reason)

	second, err := f.svc.Book(ctx, f.request())
	require.NoError(t, err)
	assert.Equal(t, clock.NewTime(7, 30, 0), second.Appointment.Time)
	assert.NotEqual(t, first.Appointment.ID, second.Appointment.ID)

	stored, err := f.svc.GetDetail(ctx, second.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Appointment.Time, stored.Time)
}

func TestBook_RollsOverAfterLateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request()
	req.Time = timePtr(19, 0, 0)
	_, err := f.svc.Book(ctx, req)
	require.NoError(t, err)

	b, err := f.svc.Book(ctx, f.request())
	require.NoError(t, err)
	assert.Equal(t, testToday.AddDays(1), b.Appointment.Date)
	assert.Equal(t, clock.NewTime(6, 0, 0), b.Appointment.Time)
	assert.True(t, b.Proposal.RolledOver)
}

func TestBook_ByDoctorEmailWithReason(t *testing.T) {
	f := newFixture(t)

	req := f.request()
	req.Doctor = DoctorRef{Email: "ADA@vitacare.test"}
	req.Reason = "  recurring headaches "

	b, err := f.svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, f.doctor.ID, b.Appointment.DoctorID)
	require.NotNil(t, b.Appointment.Reason)
	assert.Equal(t, "recurring headaches", *b.Appointment.Reason)
}

func TestBook_DoctorNameIsSnapshotted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Book(ctx, f.request())
	require.NoError(t, err)

	renamed := f.doctor
	renamed.FullName = "Dr. Ada King"
	require.NoError(t, f.repo.AddDoctor(ctx, renamed))

	stored, err := f.svc.GetDetail(ctx, b.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ada Lovelace", stored.DoctorName)
}

func TestBook_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *fixture, r *BookRequest)
		wantErr error
	}{
		{
			name:    "unknown doctor",
			mutate:  func(_ *fixture, r *BookRequest) { r.Doctor = DoctorRef{ID: uuid.New()} },
			wantErr: ErrDoctorNotFound,
		},
		{
			name:    "unknown doctor email",
			mutate:  func(_ *fixture, r *BookRequest) { r.Doctor = DoctorRef{Email: "nobody@vitacare.test"} },
			wantErr: ErrDoctorNotFound,
		},
		{
			name:    "missing doctor",
			mutate:  func(_ *fixture, r *BookRequest) { r.Doctor = DoctorRef{} },
			wantErr: ErrValidation,
		},
		{
			name:    "missing patient",
			mutate:  func(_ *fixture, r *BookRequest) { r.PatientID = uuid.Nil },
			wantErr: ErrValidation,
		},
		{
			name:    "unknown patient",
			mutate:  func(_ *fixture, r *BookRequest) { r.PatientID = uuid.New() },
			wantErr: ErrPatientNotFound,
		},
		{
			name:    "out of hours",
			mutate:  func(_ *fixture, r *BookRequest) { r.Time = timePtr(5, 0, 0) },
			wantErr: ErrOutOfBusinessHours,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.request()
			tt.mutate(f, &req)

			_, err := f.svc.Book(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBook_ConflictRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request()
	req.Time = timePtr(9, 0, 0)
	_, err := f.svc.Book(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)
}

func TestBook_StoreConstraintIsTheLastLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request()
	req.Time = timePtr(9, 0, 0)
	_, err := f.svc.Book(ctx, req)
	require.NoError(t, err)

	stale := NewService(staleReadRepo{f.repo}, nil, ServiceConfig{Now: fixedNow})
	_, err = stale.Book(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateSlot)
	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)
}

func TestBook_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	req := f.request()
	req.Time = timePtr(9, 0, 0)

	const callers = 8
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make(chan error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Book(context.Background(), req)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSlotAlreadyBooked):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, conflicts)

	appts, err := f.svc.ListForDoctor(context.Background(), DoctorRef{ID: f.doctor.ID})
	require.NoError(t, err)
	assert.Len(t, appts, 1)
}

func TestBook_LockFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.repo, failingLocker{err: errors.New("lock not acquired")}, ServiceConfig{Now: fixedNow})

	_, err := svc.Book(context.Background(), f.request())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestBook_StoreTimeout(t *testing.T) {
	f := newFixture(t)
	svc := NewService(blockingRepo{f.repo}, nil, ServiceConfig{Now: fixedNow, StoreTimeout: 20 * time.Millisecond})

	_, err := svc.Book(context.Background(), f.request())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// -- Queries --

func TestLatestForPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	latest, err := f.svc.LatestForPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	tomorrow := f.request()
	tomorrow.Date = datePtr(testToday.AddDays(1))
	tomorrow.Time = timePtr(8, 0, 0)
	_, err = f.svc.Book(ctx, tomorrow)
	require.NoError(t, err)

	today := f.request()
	today.Time = timePtr(15, 0, 0)
	_, err = f.svc.Book(ctx, today)
	require.NoError(t, err)

	latest, err = f.svc.LatestForPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, testToday.AddDays(1), latest.Date)
	assert.Equal(t, clock.NewTime(8, 0, 0), latest.Time)
}

func TestListForDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appts, err := f.svc.ListForDoctor(ctx, DoctorRef{Email: f.doctor.Email})
	require.NoError(t, err)
	assert.NotNil(t, appts)
	assert.Empty(t, appts)

	for _, d := range []clock.Date{testToday.AddDays(2), testToday, testToday.AddDays(1)} {
		req := f.request()
		req.Date = datePtr(d)
		_, err := f.svc.Book(ctx, req)
		require.NoError(t, err)
	}
	req := f.request()
	_, err = f.svc.Book(ctx, req)
	require.NoError(t, err)

	appts, err = f.svc.ListForDoctor(ctx, DoctorRef{ID: f.doctor.ID})
	require.NoError(t, err)
	require.Len(t, appts, 4)
	assert.Equal(t, testToday, appts[0].Date)
	assert.Equal(t, clock.NewTime(6, 0, 0), appts[0].Time)
	assert.Equal(t, testToday, appts[1].Date)
	assert.Equal(t, clock.NewTime(7, 30, 0), appts[1].Time)
	assert.Equal(t, testToday.AddDays(1), appts[2].Date)
	assert.Equal(t, testToday.AddDays(2), appts[3].Date)

	_, err = f.svc.ListForDoctor(ctx, DoctorRef{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

// -- Completion --

func TestComplete_IsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Book(ctx, f.request())
	require.NoError(t, err)
	id := b.Appointment.ID

	require.NoError(t, f.svc.Complete(ctx, id))

	_, err = f.svc.GetDetail(ctx, id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	err = f.svc.Complete(ctx, id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	// the freed slot can be booked again
	again, err := f.svc.Book(ctx, f.request())
	require.NoError(t, err)
	assert.Equal(t, clock.NewTime(6, 0, 0), again.Appointment.Time)
}

func TestHistory_OutlivesCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Book(ctx, f.request())
	require.NoError(t, err)
	require.NoError(t, f.svc.Complete(ctx, b.Appointment.ID))

	events, err := f.svc.History(ctx, b.Appointment.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventAppointmentBooked, events[0].EventType)
	assert.Equal(t, EventAppointmentCompleted, events[1].EventType)
	assert.Contains(t, string(events[0].Payload), `"time":"06:00:00"`)

	_, err = f.svc.History(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestDoctorOf_AfterCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Book(ctx, f.request())
	require.NoError(t, err)
	require.NoError(t, f.svc.Complete(ctx, b.Appointment.ID))

	doctorID, err := f.svc.DoctorOf(ctx, b.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, f.doctor.ID, doctorID)

	_, err = f.svc.DoctorOf(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
