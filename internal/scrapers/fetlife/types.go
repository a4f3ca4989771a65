package fetlife

import (
	"fmt"
	"strconv"
	"strings"
)

// Unknown replaces optional values the markup did not carry (a missing timestamp,
// venue or comment).
const Unknown = "unknown"

// Account is one login identity on the site plus the session artifacts that belong
// to it. It is created by a successful login and owned by the caller.
type Account struct {
	Id string
	// UserId is only set once logged in.
	UserId   int64
	Nickname string
	Jar      Jar

	// csrf is re-derived from responses and never persisted.
	csrf string
}

// NewAccount returns an anonymous account with an empty jar.
func NewAccount(id string) *Account {
	return &Account{Id: id, Jar: NewJar()}
}

func (a *Account) Authenticated() bool {
	return a != nil && a.UserId > 0
}

// CsrfToken is the most recent anti-forgery token seen for this account.
func (a *Account) CsrfToken() string {
	return a.csrf
}

type Profile struct {
	Id       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

type RSVPStatus int

const (
	RSVPGoing RSVPStatus = iota
	RSVPMaybe
	RSVPNotGoing
)

// RSVPStatuses lists every status in the order attendee pages are fetched.
var RSVPStatuses = []RSVPStatus{RSVPGoing, RSVPMaybe, RSVPNotGoing}

func (s RSVPStatus) String() string {
	switch s {
	case RSVPGoing:
		return "going"
	case RSVPMaybe:
		return "maybe"
	case RSVPNotGoing:
		return "not_going"
	}
	return fmt.Sprintf("rsvp(%d)", int(s))
}

type Attendee struct {
	Profile Profile
	// Comment is Unknown when the attendee left none.
	Comment string
}

// AttendeeSets holds the attendee list of each RSVP status.
type AttendeeSets struct {
	Going    []Attendee
	Maybe    []Attendee
	NotGoing []Attendee
}

func (a AttendeeSets) Of(status RSVPStatus) []Attendee {
	switch status {
	case RSVPGoing:
		return a.Going
	case RSVPMaybe:
		return a.Maybe
	case RSVPNotGoing:
		return a.NotGoing
	}
	return nil
}

func (a *AttendeeSets) set(status RSVPStatus, attendees []Attendee) {
	switch status {
	case RSVPGoing:
		a.Going = attendees
	case RSVPMaybe:
		a.Maybe = attendees
	case RSVPNotGoing:
		a.NotGoing = attendees
	}
}

type Event struct {
	Id    int64
	Title string
	// StartTime is kept in the format the site renders it in.
	StartTime string
	Venue     string
	Link      string

	Attendees AttendeeSets
	Populated bool
}

type Writing struct {
	Id        int64
	Title     string
	Link      string
	Published string
}

type GroupPost struct {
	Id        int64
	Title     string
	Author    string
	Link      string
	Published string
}

type Message struct {
	Id     int64
	Sender string
	Text   string
	Sent   string
	Link   string
}

// Who names the user a profile operation is about: the logged in user, an id, or a
// raw string that may or may not be numeric.
type Who struct {
	id  int64
	raw string
	set bool
}

// Me refers to the logged in user.
func Me() Who {
	return Who{}
}

func ByID(id int64) Who {
	return Who{id: id, set: true}
}

// ByString accepts what a caller typed, digits are treated as an id and anything else
// as a nickname.
func ByString(s string) Who {
	s = strings.TrimSpace(s)
	if s == "" {
		return Me()
	}
	return Who{raw: s, set: true}
}

func (w Who) resolve(account *Account) (int64, error) {
	if !w.set {
		if !account.Authenticated() {
			return 0, ErrNotAuthenticated
		}
		return account.UserId, nil
	}
	if w.raw == "" {
		if w.id <= 0 {
			return 0, &InvalidUserIdError{Raw: strconv.FormatInt(w.id, 10)}
		}
		return w.id, nil
	}
	if isDigits(w.raw) {
		id, err := strconv.ParseInt(w.raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, &InvalidUserIdError{Raw: w.raw}
		}
		return id, nil
	}
	return 0, &UnsupportedOperationError{Operation: "resolve nickname to user id"}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
