package fetlife

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"fetlife-adapter/internal/components/assert"
	"fetlife-adapter/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_auth_login = "auth.login"

	signInPath = "/users/sign_in"
)

type AuthState int

const (
	StateAnonymous AuthState = iota
	StateLoginPageFetched
	StateSubmitted
	StateAuthenticated
	StateFailed
)

func (s AuthState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateLoginPageFetched:
		return "login_page_fetched"
	case StateSubmitted:
		return "submitted"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	}
	return "auth_state(" + strconv.Itoa(int(s)) + ")"
}

// userIdPatterns are the two ways the site has embedded the current user's id in a
// page over time, tried in this order.
var userIdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`FetLife\.currentUser\.id\s*=\s*(\d+);`),
	regexp.MustCompile(`var currentUserId\s*=\s*(\d+)`),
}

// ExtractUserId finds the id of the logged in user in a raw page body.
func ExtractUserId(body []byte) (int64, bool) {
	for _, pattern := range userIdPatterns {
		groups := pattern.FindSubmatch(body)
		if len(groups) < 2 {
			continue
		}
		id, err := strconv.ParseInt(string(groups[1]), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		return id, true
	}
	return 0, false
}

// AuthSession drives one login attempt for an account:
// Anonymous -> LoginPageFetched -> Submitted -> Authenticated | Failed.
// The account is only written to once the attempt is Authenticated, a failed attempt
// leaves it exactly as it was.
type AuthSession struct {
	transport Transport
	account   *Account
	state     AuthState
	tel       telemetry.API

	jar  Jar
	csrf string
}

func NewAuthSession(transport Transport, account *Account, tel telemetry.API) *AuthSession {
	assert.NotNil(transport)
	assert.NotNil(account)
	assert.NotNil(tel)

	return &AuthSession{
		transport: transport,
		account:   account,
		state:     StateAnonymous,
		tel:       telemetry.NewScopedAPI("fetlife_auth", tel),
	}
}

func (s *AuthSession) State() AuthState {
	return s.state
}

// Login always starts over from an empty jar, so running it again derives a fresh
// session. It never retries.
func (s *AuthSession) Login(ctx context.Context, nickname, password string) error {
	s.state = StateAnonymous
	s.jar = NewJar()
	s.csrf = ""

	s.tel.ReportDebug(report_auth_login, "state", s.state.String())

	res, _, err := s.exchange(ctx, Request{Method: http.MethodGet, Path: signInPath})
	if err != nil {
		return err
	}
	if res.Status >= 400 {
		return &TransportError{Method: http.MethodGet, Path: signInPath, Status: res.Status}
	}
	s.state = StateLoginPageFetched
	s.tel.ReportDebug(report_auth_login, "state", s.state.String())

	form := url.Values{}
	form.Set("utf8", "✓")
	form.Set("user[login]", nickname)
	form.Set("user[password]", password)
	form.Set("user[otp_attempt]", "step_1")

	res, _, err = s.exchange(ctx, Request{
		Method: http.MethodPost,
		Path:   signInPath,
		Form:   form,
		Csrf:   s.csrf,
	})
	if err != nil {
		return err
	}
	s.state = StateSubmitted
	s.tel.ReportDebug(report_auth_login, "state", s.state.String())

	userId, ok := ExtractUserId(res.Body)
	if !ok {
		s.state = StateFailed
		s.tel.ReportDebug(report_auth_login, "state", s.state.String())
		return &AuthenticationError{Reason: "login failed"}
	}

	s.state = StateAuthenticated
	s.tel.ReportDebug(report_auth_login, "state", s.state.String())

	s.account.UserId = userId
	s.account.Nickname = nickname
	s.account.Jar = s.jar
	s.account.csrf = s.csrf
	return nil
}

// exchange sends req with the attempt's jar and takes the jar and any fresher token
// from the response.
func (s *AuthSession) exchange(ctx context.Context, req Request) (Response, *goquery.Document, error) {
	res, err := s.transport.Do(ctx, req, s.jar)
	if err != nil {
		return Response{}, nil, err
	}
	s.jar = res.Jar

	doc, err := parseDocument(res.Body)
	if err != nil {
		return res, nil, nil
	}
	if token, ok := ExtractCsrf(doc); ok {
		s.csrf = token
	}
	return res, doc, nil
}
