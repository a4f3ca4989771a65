package fetlife

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"fetlife-adapter/internal/components/assert"
	"fetlife-adapter/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_user_login           = "user.login"
	report_user_get_events      = "user.get-events"
	report_user_get_event       = "user.get-event"
	report_user_populate        = "user.populate"
	report_user_get_writings    = "user.get-writings"
	report_user_get_profile     = "user.get-profile"
	report_user_get_group_posts = "user.get-group-posts"
	report_user_get_messages    = "user.get-messages"
	report_user_extraction_gap  = "user.extraction-gap"
)

// User is the set of operations available to one account. It performs sequential,
// blocking requests and updates the account's jar and csrf token after each one. It is
// meant to live for one logical request and is not safe for concurrent use.
type User struct {
	account   *Account
	transport Transport
	tel       telemetry.API

	gaps []ExtractionGap
}

func NewUser(account *Account, transport Transport, tel telemetry.API) *User {
	assert.NotNil(account)
	assert.NotNil(transport)
	assert.NotNil(tel)

	return &User{
		account:   account,
		transport: transport,
		tel:       telemetry.NewScopedAPI("fetlife_user", tel),
	}
}

func (u *User) Account() *Account {
	return u.account
}

// Gaps returns every listing entry skipped so far by this User.
func (u *User) Gaps() []ExtractionGap {
	return append([]ExtractionGap(nil), u.gaps...)
}

func (u *User) recordGaps(id string, gaps []ExtractionGap) {
	for _, gap := range gaps {
		u.tel.ReportWarning(report_user_extraction_gap, "operation", id, "gap", gap)
	}
	u.gaps = append(u.gaps, gaps...)
}

// LogIn runs a full AuthSession for the account. On failure the account is left as it
// was and must not be persisted.
func (u *User) LogIn(ctx context.Context, nickname, password string) error {
	u.tel.ReportDebug(report_user_login)
	return NewAuthSession(u.transport, u.account, u.tel).Login(ctx, nickname, password)
}

// get fetches one page as the account. Landing on the sign in page means the site no
// longer accepts the session.
func (u *User) get(ctx context.Context, path string) (*goquery.Document, error) {
	if !u.account.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	res, err := u.transport.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   path,
		Csrf:   u.account.csrf,
	}, u.account.Jar)
	if err != nil {
		return nil, err
	}
	u.account.Jar = res.Jar

	if res.FinalPath == signInPath {
		return nil, ErrSessionExpired
	}
	if res.Status == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if res.Status < 200 || res.Status >= 300 {
		return nil, &TransportError{Method: http.MethodGet, Path: path, Status: res.Status}
	}

	doc, err := parseDocument(res.Body)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, Path: path, Status: res.Status, Err: err}
	}
	if token, ok := ExtractCsrf(doc); ok {
		u.account.csrf = token
	}
	return doc, nil
}

// listing fetches pages of a paginated listing and merges what extract finds in page
// order. It stops early at a page with no entries at all.
func listing[T any](
	ctx context.Context,
	u *User,
	report, base string,
	pages int,
	extract func(*goquery.Document) ([]T, []ExtractionGap),
) ([]T, error) {
	out := []T{}
	for page := 1; page <= normalizePages(pages); page++ {
		doc, err := u.get(ctx, pagePath(base, page))
		if err != nil {
			return nil, err
		}
		found, gaps := extract(doc)
		u.recordGaps(report, gaps)
		out = append(out, found...)
		if len(found) == 0 && len(gaps) == 0 {
			break
		}
	}
	u.tel.ReportCount(report, int64(len(out)))
	return out, nil
}

// GetUpcomingEventsInLocation lists the events of a location path like "cities/5898",
// without attendees.
func (u *User) GetUpcomingEventsInLocation(ctx context.Context, location string, pages int) ([]Event, error) {
	location = strings.Trim(strings.TrimSpace(location), "/")
	if location == "" {
		return nil, errors.New("location is empty")
	}
	u.tel.ReportDebug(report_user_get_events, "location", location, "pages", pages)
	return listing(ctx, u, report_user_get_events, "/"+location+"/events", pages, ExtractEventListing)
}

func (u *User) GetEventById(ctx context.Context, id int64) (Event, error) {
	u.tel.ReportDebug(report_user_get_event, "id", id)
	path := fmt.Sprintf("/events/%d", id)
	doc, err := u.get(ctx, path)
	if err != nil {
		return Event{}, err
	}
	event, err := ExtractEventDetail(doc, id, path)
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", path, err)
	}
	return event, nil
}

// Populate replaces the attendee sets of event with pages of every RSVP status. The
// event is left untouched if any page fails, so populating twice gives the same sets.
func (u *User) Populate(ctx context.Context, event *Event, pages int) error {
	assert.NotNil(event)
	u.tel.ReportDebug(report_user_populate, "id", event.Id, "pages", pages)

	var sets AttendeeSets
	for _, status := range RSVPStatuses {
		base := fmt.Sprintf("/events/%d/rsvps/%s", event.Id, status)
		attendees, err := listing(ctx, u, report_user_populate, base, pages, ExtractAttendees)
		if err != nil {
			return err
		}
		sets.set(status, attendees)
	}

	event.Attendees = sets
	event.Populated = true
	return nil
}

func (u *User) GetWritingsOf(ctx context.Context, who Who) ([]Writing, error) {
	id, err := who.resolve(u.account)
	if err != nil {
		return nil, err
	}
	u.tel.ReportDebug(report_user_get_writings, "id", id)
	return listing(ctx, u, report_user_get_writings, fmt.Sprintf("/users/%d/writings", id), 1, ExtractWritings)
}

// GetUserProfile resolves who (Me() for the logged in user) and reads their profile.
// Nicknames cannot be resolved and give an *UnsupportedOperationError.
func (u *User) GetUserProfile(ctx context.Context, who Who) (Profile, error) {
	id, err := who.resolve(u.account)
	if err != nil {
		return Profile{}, err
	}
	u.tel.ReportDebug(report_user_get_profile, "id", id)

	path := fmt.Sprintf("/users/%d", id)
	doc, err := u.get(ctx, path)
	if err != nil {
		return Profile{}, err
	}
	profile, err := ExtractProfile(doc, id)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return profile, nil
}

func (u *User) GetGroupPosts(ctx context.Context, groupId int64) ([]GroupPost, error) {
	u.tel.ReportDebug(report_user_get_group_posts, "id", groupId)
	return listing(ctx, u, report_user_get_group_posts, fmt.Sprintf("/groups/%d/group_posts", groupId), 1, ExtractGroupPosts)
}

func (u *User) GetConversationMessages(ctx context.Context) ([]Message, error) {
	u.tel.ReportDebug(report_user_get_messages)
	return listing(ctx, u, report_user_get_messages, "/inbox", 1, ExtractMessages)
}
