package sessionstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"fetlife-adapter/internal/components/chrono"
	"fetlife-adapter/internal/components/telemetry"
	"fetlife-adapter/internal/db"
	"fetlife-adapter/internal/scrapers/fetlife"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)

var testKey = bytes.Repeat([]byte{7}, 32)

func setup(t testing.TB, sealer Sealer) *Store {
	t.Helper()
	database, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database, sealer, chrono.FixedImpl{At: testNow}, &telemetry.Recorder{})
}

// siteTransport answers the two sign in requests the way the site does.
type siteTransport struct {
	password string
}

func (s siteTransport) Do(_ context.Context, req fetlife.Request, jar fetlife.Jar) (fetlife.Response, error) {
	out := jar.Clone()
	switch {
	case req.Method == http.MethodGet && req.Path == "/users/sign_in":
		out.Set(fetlife.Cookie{Domain: "fetlife.com", Name: "__cf_bm", Value: "cf"})
		return fetlife.Response{
			Status:    200,
			Body:      []byte(`<html><head><meta name="csrf-token" content="t0"></head></html>`),
			Jar:       out,
			FinalPath: req.Path,
		}, nil
	case req.Method == http.MethodPost && req.Path == "/users/sign_in":
		if req.Form.Get("user[password]") != s.password {
			return fetlife.Response{Status: 200, Body: []byte(`<html>Invalid</html>`), Jar: out, FinalPath: req.Path}, nil
		}
		out.Set(fetlife.Cookie{
			Domain: "fetlife.com", Name: "_fl_sessionid", Value: "sess-" + req.Csrf,
			HttpOnly: true, Secure: true, Expires: testNow.Add(24 * time.Hour).Unix(),
		})
		out.Set(fetlife.Cookie{Domain: "fetlife.com", Name: "remember_user_token", Value: "r|1", Path: "/users"})
		return fetlife.Response{
			Status:    200,
			Body:      []byte(`<script>FetLife.currentUser.id = 4242;</script>`),
			Jar:       out,
			FinalPath: "/home",
		}, nil
	}
	return fetlife.Response{Status: 404, Jar: out, FinalPath: req.Path}, nil
}

func login(ctx context.Context, transport fetlife.Transport, password string) func(*fetlife.Account) error {
	return func(account *fetlife.Account) error {
		return fetlife.NewUser(account, transport, &telemetry.Recorder{}).LogIn(ctx, "Kinky_Nick", password)
	}
}

func TestRoundTripAfterLogin(t *testing.T) {
	for name, sealer := range map[string]func() Sealer{
		"plain": func() Sealer { return Plain{} },
		"secretbox": func() Sealer {
			s, err := NewSecretbox(testKey)
			require.NoError(t, err)
			return s
		},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := setup(t, sealer())

			var produced fetlife.Jar
			err := store.Cycle(ctx, "acct", func(account *fetlife.Account) error {
				if err := login(ctx, siteTransport{password: "hunter2"}, "hunter2")(account); err != nil {
					return err
				}
				produced = account.Jar.Clone()
				return nil
			})
			require.NoError(t, err)

			loaded, ok, err := store.Load(ctx, "acct")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "acct", loaded.Id)
			require.Equal(t, int64(4242), loaded.UserId)
			require.Equal(t, "Kinky_Nick", loaded.Nickname)
			require.True(t, loaded.Authenticated())

			if diff := cmp.Diff(produced.Cookies(), loaded.Jar.Cookies()); diff != "" {
				t.Fatal(diff)
			}
			for _, raw := range []string{"https://fetlife.com/inbox", "https://fetlife.com/users/1", "http://fetlife.com/"} {
				u, err := url.Parse(raw)
				require.NoError(t, err)
				require.Equal(t, produced.CookiesFor(u, testNow), loaded.Jar.CookiesFor(u, testNow), raw)
			}
		})
	}
}

func TestFailedLoginIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	store := setup(t, Plain{})

	err := store.Cycle(ctx, "acct", login(ctx, siteTransport{password: "hunter2"}, "wrong"))
	var authErr *fetlife.AuthenticationError
	require.True(t, errors.As(err, &authErr))

	_, ok, err := store.Load(ctx, "acct")
	require.NoError(t, err)
	require.False(t, ok)
	ids, err := store.AccountIds(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestFailedLoginKeepsPreviousSession(t *testing.T) {
	ctx := context.Background()
	store := setup(t, Plain{})
	transport := siteTransport{password: "hunter2"}

	require.NoError(t, store.Cycle(ctx, "acct", login(ctx, transport, "hunter2")))
	before, _, err := store.Load(ctx, "acct")
	require.NoError(t, err)

	err = store.Cycle(ctx, "acct", login(ctx, transport, "wrong"))
	require.Error(t, err)

	after, _, err := store.Load(ctx, "acct")
	require.NoError(t, err)
	require.Equal(t, before.Jar.Cookies(), after.Jar.Cookies())
}

func TestCycleWithoutSession(t *testing.T) {
	ctx := context.Background()
	store := setup(t, Plain{})

	called := false
	err := store.Cycle(ctx, "fresh", func(account *fetlife.Account) error {
		called = true
		require.Equal(t, "fresh", account.Id)
		require.False(t, account.Authenticated())
		_, err := fetlife.NewUser(account, siteTransport{}, &telemetry.Recorder{}).GetConversationMessages(ctx)
		return err
	})
	require.True(t, called)
	require.ErrorIs(t, err, fetlife.ErrNotAuthenticated)

	// an anonymous account is never written
	require.NoError(t, store.Cycle(ctx, "fresh", func(*fetlife.Account) error { return nil }))
	_, ok, err := store.Load(ctx, "fresh")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAccountsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := setup(t, Plain{})

	a := fetlife.NewAccount("a")
	a.UserId = 1
	a.Jar.Set(fetlife.Cookie{Domain: "fetlife.com", Name: "_fl_sessionid", Value: "aaa"})
	b := fetlife.NewAccount("b")
	b.UserId = 2
	b.Jar.Set(fetlife.Cookie{Domain: "fetlife.com", Name: "_fl_sessionid", Value: "bbb"})
	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))

	loaded, _, err := store.Load(ctx, "a")
	require.NoError(t, err)
	c, _ := loaded.Jar.Get("fetlife.com", "_fl_sessionid")
	require.Equal(t, "aaa", c.Value)

	// mutating a loaded account does not touch storage until it is saved
	loaded.Jar.Set(fetlife.Cookie{Domain: "fetlife.com", Name: "_fl_sessionid", Value: "changed"})
	reloaded, _, err := store.Load(ctx, "a")
	require.NoError(t, err)
	c, _ = reloaded.Jar.Get("fetlife.com", "_fl_sessionid")
	require.Equal(t, "aaa", c.Value)

	ids, err := store.AccountIds(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := setup(t, Plain{})

	account := fetlife.NewAccount("acct")
	account.UserId = 1
	require.NoError(t, store.Save(ctx, account))

	deleted, err := store.Delete(ctx, "acct")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = store.Delete(ctx, "acct")
	require.NoError(t, err)
	require.False(t, deleted)

	_, ok, err := store.Load(ctx, "acct")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSealing(t *testing.T) {
	sealer, err := NewSecretbox(testKey)
	require.NoError(t, err)
	store := setup(t, sealer)

	account := fetlife.NewAccount("acct")
	account.UserId = 4242
	account.Nickname = "Kinky_Nick"
	account.Jar.Set(fetlife.Cookie{Domain: "fetlife.com", Name: "_fl_sessionid", Value: "very-secret"})

	data, err := store.Encode(account)
	require.NoError(t, err)
	require.True(t, isSealed(data))
	require.False(t, bytes.Contains(data, []byte("very-secret")))
	require.False(t, bytes.Contains(data, []byte("Kinky_Nick")))

	again, err := store.Encode(account)
	require.NoError(t, err)
	require.NotEqual(t, data, again, "nonces must not repeat")

	decoded, err := store.Decode("acct", data)
	require.NoError(t, err)
	require.Equal(t, account.Jar.Cookies(), decoded.Jar.Cookies())

	_, err = (&Store{sealer: Plain{}}).Decode("acct", data)
	require.ErrorIs(t, err, ErrSealed)

	other, err := NewSecretbox(bytes.Repeat([]byte{8}, 32))
	require.NoError(t, err)
	_, err = other.Open(data)
	require.Error(t, err)

	tampered := append([]byte(nil), data...)
	tampered[len(tampered)-1] ^= 1
	_, err = sealer.Open(tampered)
	require.Error(t, err)

	_, err = sealer.Open(sealedMagic)
	require.Error(t, err)

	// unsealed blobs written before a key was configured stay readable
	plain, err := encode(account, 0)
	require.NoError(t, err)
	decoded, err = store.Decode("acct", plain)
	require.NoError(t, err)
	require.Equal(t, int64(4242), decoded.UserId)
}

func TestParseSealKey(t *testing.T) {
	sealer, err := ParseSealKey("")
	require.NoError(t, err)
	require.IsType(t, Plain{}, sealer)

	sealer, err = ParseSealKey(base64.StdEncoding.EncodeToString(testKey))
	require.NoError(t, err)
	require.IsType(t, &Secretbox{}, sealer)

	_, err = ParseSealKey("not base64!")
	require.Error(t, err)
	_, err = ParseSealKey(base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
}

func TestDecodeCompatibility(t *testing.T) {
	// unknown fields from a later minor change are ignored
	account, err := decode("acct", []byte(`{
		"version": 1,
		"user_id": 7,
		"nickname": "Nick",
		"cookies": [{"domain": "fetlife.com", "name": "a", "value": "1"}],
		"future_field": {"x": 1}
	}`))
	require.NoError(t, err)
	require.Equal(t, int64(7), account.UserId)
	require.Equal(t, 1, account.Jar.Len())

	// unversioned blobs kept the jar as a cookies.txt file
	legacy := `{"user_id": 9, "nickname": "Old", "cookie_file": "# Netscape HTTP Cookie File\n.fetlife.com\tTRUE\t/\tTRUE\t0\t_fl_sessionid\tlegacy\n"}`
	account, err = decode("acct", []byte(legacy))
	require.NoError(t, err)
	require.Equal(t, int64(9), account.UserId)
	c, ok := account.Jar.Get("fetlife.com", "_fl_sessionid")
	require.True(t, ok)
	require.Equal(t, "legacy", c.Value)

	_, err = decode("acct", []byte(`{"version": 2, "user_id": 1}`))
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = decode("acct", []byte(`not json`))
	require.Error(t, err)
}

func TestNewerBlobIsLeftUntouched(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer database.Close()
	store := New(database, Plain{}, chrono.FixedImpl{At: testNow}, &telemetry.Recorder{})

	newer := []byte(`{"version": 2, "user_id": 1, "sessions": []}`)
	require.NoError(t, db.New(database).SaveAccount(ctx, db.SaveAccountParams{AccountID: "acct", Blob: newer, UpdatedAt: 1}))

	err = store.Cycle(ctx, "acct", func(*fetlife.Account) error {
		t.Fatal("must not run on an unreadable blob")
		return nil
	})
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	row, err := db.New(database).GetAccount(ctx, "acct")
	require.NoError(t, err)
	require.Equal(t, newer, row.Blob)
}

func TestReseal(t *testing.T) {
	ctx := context.Background()
	store := setup(t, Plain{})

	for _, id := range []string{"a", "b"} {
		account := fetlife.NewAccount(id)
		account.UserId = 1
		account.Jar.Set(fetlife.Cookie{Domain: "fetlife.com", Name: "s", Value: id})
		require.NoError(t, store.Save(ctx, account))
	}

	sealer, err := NewSecretbox(testKey)
	require.NoError(t, err)
	require.NoError(t, store.Reseal(ctx, sealer))

	row, err := store.qry.GetAccount(ctx, "b")
	require.NoError(t, err)
	require.True(t, isSealed(row.Blob))

	loaded, ok, err := store.Load(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	c, _ := loaded.Jar.Get("fetlife.com", "s")
	require.Equal(t, "b", c.Value)

	// a store that cannot open its blobs changes nothing
	broken := &Store{qry: store.qry, makeTx: store.makeTx, sealer: Plain{}, time: store.time, tel: store.tel}
	err = broken.Reseal(ctx, Plain{})
	require.ErrorIs(t, err, ErrSealed)
	row, err = store.qry.GetAccount(ctx, "a")
	require.NoError(t, err)
	require.True(t, isSealed(row.Blob))
}

func TestCycleReleasesStagedJarOnError(t *testing.T) {
	ctx := context.Background()
	store := setup(t, Plain{})
	scratch := t.TempDir()

	transport, err := fetlife.NewCurlTransport(fetlife.CurlTransportOptions{
		Binary:     "/nonexistent/curl",
		ScratchDir: scratch,
	}, &telemetry.Recorder{})
	require.NoError(t, err)

	err = store.Cycle(ctx, "acct", login(ctx, transport, "hunter2"))
	var transportErr *fetlife.TransportError
	require.True(t, errors.As(err, &transportErr))

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	require.Empty(t, entries)

	_, ok, err := store.Load(ctx, "acct")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEncodeIsJSON(t *testing.T) {
	account := fetlife.NewAccount("acct")
	account.UserId = 3
	data, err := encode(account, testNow.Unix())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), `{"version":1,`))
}
