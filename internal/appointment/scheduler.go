package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

// MinSeparation is the minimum gap after a doctor's last appointment of the day.
const MinSeparation = 90 // minutes

// PastDatePolicy controls whether slots before the scheduling instant are accepted.
type PastDatePolicy string

const (
	PastDatesAllow  PastDatePolicy = "allow"
	PastDatesReject PastDatePolicy = "reject"
)

func ParsePastDatePolicy(s string) (PastDatePolicy, error) {
	switch p := PastDatePolicy(s); p {
	case PastDatesAllow, PastDatesReject:
		return p, nil
	default:
		return "", fmt.Errorf("past date policy must be %q or %q, got %q", PastDatesAllow, PastDatesReject, s)
	}
}

// Proposal is the slot the Scheduler settled on.
type Proposal struct {
	Date clock.Date
	Time clock.TimeOfDay
	// Suggested is the time the Scheduler would pick without a requested time.
	Suggested clock.TimeOfDay
	// RolledOver is set when the suggestion moved to the next day.
	RolledOver bool
}

// Scheduler decides the final (date, time) of a new appointment. It only
// reads from the store; committing is the caller's job.
type Scheduler struct {
	reader SlotReader
	policy PastDatePolicy
	now    func() time.Time
}

func NewScheduler(reader SlotReader, policy PastDatePolicy, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if policy == "" {
		policy = PastDatesAllow
	}
	return &Scheduler{reader: reader, policy: policy, now: now}
}

// suggestTime returns the default time for a day holding existing (ordered
// by time ascending) and whether a prior appointment exists at all.
func suggestTime(existing []Appointment) (clock.TimeOfDay, bool) {
	if len(existing) == 0 {
		return clock.BusinessOpen, false
	}
	last := existing[0].Time
	for _, a := range existing[1:] {
		if clock.Compare(a.Time, last) == clock.After {
			last = a.Time
		}
	}
	return clock.AddMinutes(last, MinSeparation), true
}

// ProposeSlot computes the slot for a booking with doctorID. A nil
// requestedDate means today; a nil requestedTime means the suggested time.
//
// With no requested time, a suggestion at or after business close rolls to
// 06:00:00 the next day. The rolled-over slot is only checked for an exact
// conflict, not for separation against that day's bookings.
//
// With a requested time, rollover does not apply and the request is judged
// against the requested date only. A SeparationError still points at the
// next day's opening when nothing later that day is bookable.
func (s *Scheduler) ProposeSlot(ctx context.Context, doctorID uuid.UUID, requestedDate *clock.Date, requestedTime *clock.TimeOfDay) (Proposal, error) {
	now := s.now()

	date := clock.DateOf(now)
	if requestedDate != nil {
		date = *requestedDate
	}

	existing, err := s.reader.FindByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return Proposal{}, fmt.Errorf("load doctor's appointments: %w", err)
	}

	suggested, hasPrior := suggestTime(existing)

	p := Proposal{Date: date, Suggested: suggested}

	if requestedTime != nil {
		t := *requestedTime
		if !clock.IsWithinBusinessWindow(t) {
			return Proposal{}, ErrOutOfBusinessHours
		}
		// An exact clash is reported as such before the separation rule.
		for _, a := range existing {
			if a.Time == t {
				return Proposal{}, ErrSlotAlreadyBooked
			}
		}
		if hasPrior && clock.Compare(t, suggested) == clock.Before {
			sepErr := &SeparationError{Date: date, Suggested: suggested}
			if !clock.IsWithinBusinessWindow(suggested) {
				sepErr.Date = date.AddDays(1)
				sepErr.Suggested = clock.BusinessOpen
			}
			return Proposal{}, sepErr
		}
		p.Time = t
	} else {
		if clock.Compare(suggested, clock.BusinessClose) != clock.Before {
			p.Date = date.AddDays(1)
			p.Suggested = clock.BusinessOpen
			p.RolledOver = true
		}
		p.Time = p.Suggested
	}

	if s.policy == PastDatesReject && p.Time.On(p.Date, now.Location()).Before(now) {
		return Proposal{}, ErrPastDate
	}

	taken, err := s.reader.ExistsSlot(ctx, Slot{DoctorID: doctorID, Date: p.Date, Time: p.Time})
	if err != nil {
		return Proposal{}, fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return Proposal{}, ErrSlotAlreadyBooked
	}

	return p, nil
}
