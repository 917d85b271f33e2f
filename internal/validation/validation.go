package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Varun5711/clubhouse/internal/idgen"
	"github.com/asaskevich/govalidator"
)

var (
	ErrInvalidMemberID  = errors.New("member id must be 6 characters of digits and uppercase letters, with at least one of each")
	ErrInvalidPhone     = errors.New("phone must contain 6 to 20 digits, optionally prefixed with +")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	ErrInvalidEmail     = errors.New("email is not valid")
	ErrInvalidCourt     = errors.New("court number is out of range")
	ErrInvalidHour      = errors.New("reservation time is outside opening hours")
	ErrInvalidDuration  = errors.New("duration must be at least one hour")
	ErrInvalidDate      = errors.New("date must use the YYYY-MM-DD format")
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{6,20}$`)

// Struct runs the `valid` tags of a payload and flattens the failures into one error.
func Struct(payload interface{}) error {
	ok, err := govalidator.ValidateStruct(payload)
	if ok {
		return nil
	}
	if err == nil {
		return errors.New("invalid payload")
	}

	byField := govalidator.ErrorsByField(err)
	if len(byField) == 0 {
		return err
	}

	fields := make([]string, 0, len(byField))
	for field, msg := range byField {
		fields = append(fields, field+": "+msg)
	}
	sort.Strings(fields)
	return errors.New(strings.Join(fields, "; "))
}

func ValidateMemberID(id string) error {
	if !idgen.IsMemberID(id) {
		return ErrInvalidMemberID
	}
	return nil
}

// NormalizePhone drops spaces, dots and dashes.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(NormalizePhone(phone)) {
		return ErrInvalidPhone
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

func ValidateEmail(email string) error {
	if !govalidator.IsEmail(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateCourt(court, courtCount int) error {
	if court < 1 || court > courtCount {
		return ErrInvalidCourt
	}
	return nil
}

// ValidateSlot checks that [hour, hour+duration) fits within [open, close).
func ValidateSlot(hour, duration, open, close int) error {
	if duration < 1 {
		return ErrInvalidDuration
	}
	if hour < open || hour >= close {
		return ErrInvalidHour
	}
	if duration > close-open || hour+duration > close {
		return ErrInvalidHour
	}
	return nil
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}
