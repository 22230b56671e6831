package session

import (
	"errors"
	"strconv"
	"time"
)

// Storage keys of the three durable session entries.
const (
	KeyVerified = "tg_phone_verified"
	KeyPhone    = "tg_user_phone"
	KeyAuthTime = "tg_auth_time"

	verifiedFlag = "true"
)

// DefaultMaxAge is how long a verified session stays valid.
const DefaultMaxAge = 30 * 24 * time.Hour

// ErrIncomplete is returned when the stored group is missing a field or holds
// a value that cannot be parsed.
var ErrIncomplete = errors.New("session record incomplete")

// Fields is the raw persisted form of a session: verified flag, phone digits
// and the epoch-millisecond timestamp. The three values are always written and
// read together.
type Fields struct {
	Verified string
	Phone    string
	AuthTime string
}

// Complete reports whether every field is present.
func (f Fields) Complete() bool {
	return f.Verified != "" && f.Phone != "" && f.AuthTime != ""
}

// Empty reports whether no field is present.
func (f Fields) Empty() bool {
	return f.Verified == "" && f.Phone == "" && f.AuthTime == ""
}

// Session is a verified phone login.
type Session struct {
	Phone         string
	Verified      bool
	EstablishedAt time.Time
}

// New builds a verified session established at the given instant.
func New(phone string, at time.Time) Session {
	return Session{Phone: phone, Verified: true, EstablishedAt: at}
}

// Fields converts the session to its persisted form.
func (s Session) Fields() Fields {
	f := Fields{
		Phone:    s.Phone,
		AuthTime: strconv.FormatInt(s.EstablishedAt.UnixMilli(), 10),
	}
	if s.Verified {
		f.Verified = verifiedFlag
	}
	return f
}

// FromFields reconstructs a session. Any missing or malformed field yields
// ErrIncomplete so callers fail closed.
func FromFields(f Fields) (Session, error) {
	if !f.Complete() || f.Verified != verifiedFlag {
		return Session{}, ErrIncomplete
	}
	millis, err := strconv.ParseInt(f.AuthTime, 10, 64)
	if err != nil {
		return Session{}, ErrIncomplete
	}
	return Session{
		Phone:         f.Phone,
		Verified:      true,
		EstablishedAt: time.UnixMilli(millis),
	}, nil
}

// Age is the time elapsed since the session was established.
func (s Session) Age(now time.Time) time.Duration {
	return now.Sub(s.EstablishedAt)
}

// Valid reports whether the session is verified and younger than maxAge.
func (s Session) Valid(now time.Time, maxAge time.Duration) bool {
	return s.Verified && s.Phone != "" && s.Age(now) < maxAge
}
