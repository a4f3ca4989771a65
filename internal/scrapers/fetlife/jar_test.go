package fetlife

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var jarNow = time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)

func mustUrl(t testing.TB, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestJarSetGet(t *testing.T) {
	jar := NewJar()
	jar.Set(Cookie{Domain: ".FetLife.com", Name: "a", Value: "1"})

	c, ok := jar.Get("fetlife.com", "a")
	require.True(t, ok)
	require.Equal(t, "/", c.Path)
	require.Equal(t, "fetlife.com", c.Domain)

	jar.Set(Cookie{Domain: "fetlife.com", Name: "a", Value: "2"})
	require.Equal(t, 1, jar.Len())
	c, _ = jar.Get("fetlife.com", "a")
	require.Equal(t, "2", c.Value)

	jar.Delete(".fetlife.com", "a")
	require.Zero(t, jar.Len())

	var zero Jar
	zero.Set(Cookie{Domain: "fetlife.com", Name: "z"})
	require.Equal(t, 1, zero.Len())
}

func TestJarCloneIsIndependent(t *testing.T) {
	jar := JarOf(Cookie{Domain: "fetlife.com", Name: "a", Value: "1"})
	clone := jar.Clone()
	clone.Set(Cookie{Domain: "fetlife.com", Name: "a", Value: "changed"})
	clone.Set(Cookie{Domain: "fetlife.com", Name: "b", Value: "new"})

	c, _ := jar.Get("fetlife.com", "a")
	require.Equal(t, "1", c.Value)
	require.Equal(t, 1, jar.Len())
}

func TestJarCookiesFor(t *testing.T) {
	jar := JarOf(
		Cookie{Domain: "fetlife.com", Name: "session", Value: "s", Secure: true},
		Cookie{Domain: "fetlife.com", Name: "host", Value: "h", HostOnly: true},
		Cookie{Domain: "fetlife.com", Name: "old", Value: "o", Expires: jarNow.Add(-time.Hour).Unix()},
		Cookie{Domain: "fetlife.com", Name: "scoped", Value: "p", Path: "/events"},
		Cookie{Domain: "example.com", Name: "other", Value: "x"},
	)

	names := func(cookies []*http.Cookie) []string {
		out := []string{}
		for _, c := range cookies {
			out = append(out, c.Name)
		}
		return out
	}

	require.Equal(t, []string{"host", "scoped", "session"}, names(jar.CookiesFor(mustUrl(t, "https://fetlife.com/events/1"), jarNow)))
	require.Equal(t, []string{"host"}, names(jar.CookiesFor(mustUrl(t, "http://fetlife.com/"), jarNow)))
	require.Equal(t, []string{"session"}, names(jar.CookiesFor(mustUrl(t, "https://www.fetlife.com/"), jarNow)))
}

func TestJarAbsorb(t *testing.T) {
	jar := JarOf(Cookie{Domain: "fetlife.com", Name: "gone", Value: "1"})
	u := mustUrl(t, "https://fetlife.com/users/sign_in")

	jar.absorb(u, []*http.Cookie{
		{Name: "_fl_sessionid", Value: "abc", HttpOnly: true, Secure: true},
		{Name: "remember", Value: "r", Domain: ".fetlife.com", MaxAge: 3600},
		{Name: "gone", Value: "", MaxAge: -1},
		{Name: "evil", Value: "e", Domain: "example.com"},
		{Name: "stale", Value: "s", Expires: jarNow.Add(-time.Minute)},
	}, jarNow)

	expected := []Cookie{
		{Domain: "fetlife.com", Name: "_fl_sessionid", Value: "abc", Path: "/", HttpOnly: true, Secure: true, HostOnly: true},
		{Domain: "fetlife.com", Name: "remember", Value: "r", Path: "/", Expires: jarNow.Add(time.Hour).Unix()},
	}
	if diff := cmp.Diff(expected, jar.Cookies()); diff != "" {
		t.Fatal(diff)
	}
}

func TestNetscapeRoundTrip(t *testing.T) {
	jar := JarOf(
		Cookie{Domain: "fetlife.com", Name: "_fl_sessionid", Value: "abc", HttpOnly: true, Secure: true, HostOnly: true},
		Cookie{Domain: "fetlife.com", Name: "remember", Value: "r=1", Expires: jarNow.Add(time.Hour).Unix()},
		Cookie{Domain: "127.0.0.1", Name: "local", Value: "l", Path: "/events", HostOnly: true},
	)

	var buf bytes.Buffer
	require.NoError(t, jar.WriteNetscape(&buf))
	require.True(t, strings.HasPrefix(buf.String(), "# Netscape HTTP Cookie File"))
	require.Contains(t, buf.String(), "#HttpOnly_fetlife.com\tFALSE\t/\tTRUE\t0\t_fl_sessionid\tabc")

	read, err := ReadNetscapeJar(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(jar.Cookies(), read.Cookies()); diff != "" {
		t.Fatal(diff)
	}

	// replaying either jar gives the same request cookies
	for _, raw := range []string{"https://fetlife.com/", "http://127.0.0.1/events/2"} {
		u := mustUrl(t, raw)
		require.Equal(t, jar.CookiesFor(u, jarNow), read.CookiesFor(u, jarNow))
	}
}

func TestReadNetscapeJarCurlOutput(t *testing.T) {
	file := "# Netscape HTTP Cookie File\n" +
		"# https://curl.se/docs/http-cookies.html\n" +
		"# This file was generated by libcurl! Edit at your own risk.\n\n" +
		"#HttpOnly_.fetlife.com\tTRUE\t/\tTRUE\t1735689600\t_fl_sessionid\tabc\n" +
		"127.0.0.1\tFALSE\t/\tFALSE\t0\tlocal\tl\r\n"

	jar, err := ReadNetscapeJar(strings.NewReader(file))
	require.NoError(t, err)
	require.Equal(t, []Cookie{
		{Domain: "127.0.0.1", Name: "local", Value: "l", Path: "/", HostOnly: true},
		{Domain: "fetlife.com", Name: "_fl_sessionid", Value: "abc", Path: "/", Secure: true, HttpOnly: true, Expires: 1735689600},
	}, jar.Cookies())

	_, err = ReadNetscapeJar(strings.NewReader("fetlife.com\tTRUE\t/\n"))
	require.Error(t, err)
}

func TestLiveJar(t *testing.T) {
	jar := JarOf(Cookie{Domain: "fetlife.com", Name: "a", Value: "1"})
	live := newLiveJar(jar, func() time.Time { return jarNow })
	u := mustUrl(t, "https://fetlife.com/")

	live.SetCookies(u, []*http.Cookie{{Name: "b", Value: "2"}})
	require.Len(t, live.Cookies(u), 2)

	// the source jar is never written to
	require.Equal(t, 1, jar.Len())
	require.Equal(t, 2, live.snapshot().Len())
}
