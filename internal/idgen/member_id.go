package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	MemberIDLength = 6
	OTPLength      = 6

	digits    = "0123456789"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	alphabet  = digits + uppercase
)

// NewMemberID returns six characters from 0-9A-Z with at least one digit and
// one uppercase letter.
func NewMemberID() (string, error) {
	id := make([]byte, MemberIDLength)

	var err error
	if id[0], err = pick(digits); err != nil {
		return "", err
	}
	if id[1], err = pick(uppercase); err != nil {
		return "", err
	}
	for i := 2; i < MemberIDLength; i++ {
		if id[i], err = pick(alphabet); err != nil {
			return "", err
		}
	}

	if err := shuffle(id); err != nil {
		return "", err
	}
	return string(id), nil
}

func IsMemberID(s string) bool {
	if len(s) != MemberIDLength {
		return false
	}

	var hasDigit, hasUpper bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		default:
			return false
		}
	}
	return hasDigit && hasUpper
}

// NewOTP returns a six digit one-time password.
func NewOTP() (string, error) {
	otp := make([]byte, OTPLength)
	for i := range otp {
		c, err := pick(digits)
		if err != nil {
			return "", err
		}
		otp[i] = c
	}
	return string(otp), nil
}

func pick(set string) (byte, error) {
	n, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[n], nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}

func randInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return int(n.Int64()), nil
}
