package domain

import (
	"encoding/json"
	"fmt"
)

// BookingStatus is the lifecycle state of a ritual-service booking. The set is
// closed: unknown wire values fail to decode.
type BookingStatus uint8

const (
	BookingPending BookingStatus = iota + 1
	BookingAccepted
	BookingRejected
	BookingOnTheWay
	BookingInProgress
	BookingCompleted
	BookingCancelled
)

// BookingStatuses lists every status in lifecycle order.
var BookingStatuses = []BookingStatus{
	BookingPending,
	BookingAccepted,
	BookingRejected,
	BookingOnTheWay,
	BookingInProgress,
	BookingCompleted,
	BookingCancelled,
}

// Tone is the presentation class of a status badge.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	for _, st := range BookingStatuses {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown booking status %q", s)
}

func (s BookingStatus) String() string {
	switch s {
	case BookingPending:
		return "pending"
	case BookingAccepted:
		return "accepted"
	case BookingRejected:
		return "rejected"
	case BookingOnTheWay:
		return "on_the_way"
	case BookingInProgress:
		return "in_progress"
	case BookingCompleted:
		return "completed"
	case BookingCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("BookingStatus(%d)", uint8(s))
}

func (s BookingStatus) Label() string {
	switch s {
	case BookingPending:
		return "Awaiting confirmation"
	case BookingAccepted:
		return "Confirmed"
	case BookingRejected:
		return "Declined"
	case BookingOnTheWay:
		return "Provider on the way"
	case BookingInProgress:
		return "Ritual in progress"
	case BookingCompleted:
		return "Completed"
	case BookingCancelled:
		return "Cancelled"
	}
	panic(fmt.Sprintf("domain: no label for %v", s))
}

func (s BookingStatus) Tone() Tone {
	switch s {
	case BookingPending:
		return ToneNeutral
	case BookingAccepted, BookingOnTheWay, BookingInProgress:
		return ToneInfo
	case BookingCompleted:
		return ToneSuccess
	case BookingRejected, BookingCancelled:
		return ToneDanger
	}
	panic(fmt.Sprintf("domain: no tone for %v", s))
}

// Trackable reports whether a live location channel may be open.
func (s BookingStatus) Trackable() bool {
	switch s {
	case BookingOnTheWay:
		return true
	case BookingPending, BookingAccepted, BookingRejected, BookingInProgress, BookingCompleted, BookingCancelled:
		return false
	}
	panic(fmt.Sprintf("domain: unknown status %v", s))
}

func (s BookingStatus) MarshalJSON() ([]byte, error) {
	if _, err := ParseBookingStatus(s.String()); err != nil {
		return nil, err
	}
	return json.Marshal(s.String())
}

func (s *BookingStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	st, err := ParseBookingStatus(str)
	if err != nil {
		return err
	}
	*s = st
	return nil
}
