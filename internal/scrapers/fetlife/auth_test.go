package fetlife

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"fetlife-adapter/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestExtractUserId(t *testing.T) {
	id, ok := ExtractUserId([]byte(`<script>FetLife.currentUser.id = 4242;</script>`))
	require.True(t, ok)
	require.Equal(t, int64(4242), id)

	id, ok = ExtractUserId([]byte(`<script>var currentUserId=77</script>`))
	require.True(t, ok)
	require.Equal(t, int64(77), id)

	// the newer pattern wins when both are present
	id, ok = ExtractUserId([]byte(`var currentUserId = 1; FetLife.currentUser.id = 2;`))
	require.True(t, ok)
	require.Equal(t, int64(2), id)

	_, ok = ExtractUserId([]byte(`FetLife.currentUser.id = null;`))
	require.False(t, ok)
}

func TestLogin(t *testing.T) {
	cases := []struct {
		page string
		id   int64
	}{
		{page: "login_success.html", id: 4242},
		{page: "login_success_legacy.html", id: 77},
	}
	for _, c := range cases {
		t.Run(c.page, func(t *testing.T) {
			transport := loginTransport(t, c.page)
			account := NewAccount("acct")
			session := NewAuthSession(transport, account, &telemetry.Recorder{})

			err := session.Login(context.Background(), "Kinky_Nick", "hunter2")
			require.NoError(t, err)
			require.Equal(t, StateAuthenticated, session.State())
			require.Equal(t, c.id, account.UserId)
			require.Equal(t, "Kinky_Nick", account.Nickname)
			require.True(t, account.Authenticated())

			_, ok := account.Jar.Get("fetlife.com", "_fl_sessionid")
			require.True(t, ok)
			_, ok = account.Jar.Get("fetlife.com", "__cf_bm")
			require.True(t, ok)
		})
	}
}

func TestLoginSubmitsForm(t *testing.T) {
	transport := loginTransport(t, "login_success.html")
	account := NewAccount("acct")
	err := NewAuthSession(transport, account, &telemetry.Recorder{}).
		Login(context.Background(), "Kinky_Nick", "hunter2")
	require.NoError(t, err)

	require.Equal(t, []string{"GET /users/sign_in", "POST /users/sign_in"}, transport.paths())

	post := transport.last()
	require.Equal(t, "login&token==", post.Csrf)
	require.Equal(t, "Kinky_Nick", post.Form.Get("user[login]"))
	require.Equal(t, "hunter2", post.Form.Get("user[password]"))
	require.Equal(t, "step_1", post.Form.Get("user[otp_attempt]"))
	require.Equal(t, "✓", post.Form.Get("utf8"))

	// the cookies from the login page are sent along with the credentials
	require.Len(t, post.Cookies, 1)
	require.Equal(t, "__cf_bm", post.Cookies[0].Name)

	form := formWithCsrf(post.Request)
	require.Equal(t, "login&token==", form.Get("authenticity_token"))

	require.Equal(t, "home-token", account.CsrfToken())
}

func TestLoginFailed(t *testing.T) {
	transport := newFakeTransport().
		get(signInPath, fixture(t, "login_page.html")).
		on(http.MethodPost, signInPath, fakePage{
			body:    fixture(t, "login_failed.html"),
			cookies: []Cookie{{Domain: "fetlife.com", Name: "_fl_sessionid", Value: "anon"}},
		})
	account := NewAccount("acct")
	session := NewAuthSession(transport, account, &telemetry.Recorder{})

	err := session.Login(context.Background(), "Kinky_Nick", "wrong")
	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	require.Equal(t, "login failed", authErr.Reason)
	require.Equal(t, StateFailed, session.State())

	// nothing from the failed attempt reaches the account
	require.False(t, account.Authenticated())
	require.Zero(t, account.Jar.Len())
	require.Empty(t, account.Nickname)
}

func TestLoginUnreachable(t *testing.T) {
	transport := newFakeTransport().on(http.MethodGet, signInPath, fakePage{err: errors.New("connection refused")})
	session := NewAuthSession(transport, NewAccount("acct"), &telemetry.Recorder{})

	err := session.Login(context.Background(), "Kinky_Nick", "hunter2")
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, StateAnonymous, session.State())
	require.Len(t, transport.paths(), 1)
}

func TestLoginPageBlocked(t *testing.T) {
	transport := newFakeTransport().on(http.MethodGet, signInPath, fakePage{status: http.StatusForbidden, body: []byte("blocked")})
	session := NewAuthSession(transport, NewAccount("acct"), &telemetry.Recorder{})

	err := session.Login(context.Background(), "Kinky_Nick", "hunter2")
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, http.StatusForbidden, transportErr.Status)
}

func TestLoginDoesNotReportCredentials(t *testing.T) {
	recorder := &telemetry.Recorder{}
	transport := loginTransport(t, "login_success.html")
	err := NewAuthSession(transport, NewAccount("acct"), recorder).
		Login(context.Background(), "Kinky_Nick", "hunter2")
	require.NoError(t, err)

	for _, report := range recorder.Reports("") {
		for _, param := range report.Params {
			require.NotEqual(t, "hunter2", param)
		}
	}
}
