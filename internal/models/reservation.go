package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const DateLayout = "2006-01-02"

type Reservation struct {
	ID              string   `json:"id"`
	CourtNumber     int      `json:"court_number"`
	ReservationDate string   `json:"reservation_date"`
	ReservationTime int      `json:"reservation_time"`
	Duration        int      `json:"duration"`
	MemberIDs       []string `json:"member_ids"`
}

// EndHour is the first hour after the reservation.
func (r *Reservation) EndHour() int {
	return r.ReservationTime + r.Duration
}

// Overlaps reports whether both reservations hold the same court at the same time.
func (r *Reservation) Overlaps(other *Reservation) bool {
	if r.CourtNumber != other.CourtNumber || r.ReservationDate != other.ReservationDate {
		return false
	}
	return r.ReservationTime < other.EndHour() && other.ReservationTime < r.EndHour()
}

func (r *Reservation) HasMember(memberID string) bool {
	for _, id := range r.MemberIDs {
		if id == memberID {
			return true
		}
	}
	return false
}

type ReservationInput struct {
	ID              string  `json:"id"`
	MemberID        string  `json:"member_id"`
	CourtNumber     int     `json:"court_number"`
	ReservationDate string  `json:"reservation_date" valid:"required"`
	ReservationTime int     `json:"reservation_time"`
	Duration        FlexInt `json:"duration"`
}

// PlanningEntry is one member of one reservation of the day.
type PlanningEntry struct {
	ID              string `json:"id"`
	MemberID        string `json:"member_id"`
	CourtNumber     int    `json:"court_number"`
	ReservationDate string `json:"reservation_date"`
	ReservationTime int    `json:"reservation_time"`
	Duration        int    `json:"duration"`
	MemberFirstName string `json:"member_first_name"`
	MemberLastName  string `json:"member_last_name"`
}

type CreatedResource struct {
	ID string `json:"id"`
}

// FlexInt accepts a JSON number, a numeric string or an empty string (zero).
// Values outside the SMALLINT range are rejected.
type FlexInt int

const (
	minFlexInt = math.MinInt16
	maxFlexInt = math.MaxInt16
)

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = 0
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*f = 0
			return nil
		}
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid integer %q", raw)
	}
	if n < minFlexInt || n > maxFlexInt {
		return fmt.Errorf("integer %q out of range", raw)
	}
	*f = FlexInt(n)
	return nil
}
