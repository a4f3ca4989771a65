package fetlife

import (
	"context"
	"embed"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/*.html
var fixtures embed.FS

func fixture(t testing.TB, name string) []byte {
	t.Helper()
	body, err := fixtures.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return body
}

func fixtureDoc(t testing.TB, name string) *goquery.Document {
	t.Helper()
	doc, err := parseDocument(fixture(t, name))
	require.NoError(t, err)
	return doc
}

type fakePage struct {
	status    int
	body      []byte
	finalPath string
	cookies   []Cookie
	err       error
}

type recordedRequest struct {
	Request
	Cookies []Cookie
}

// fakeTransport answers "METHOD /path" keys from pages. Unknown paths are a 404 with an
// empty document, the jar is handed back with the page's cookies applied.
type fakeTransport struct {
	mu       sync.Mutex
	pages    map[string]fakePage
	requests []recordedRequest
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{pages: map[string]fakePage{}}
}

func (f *fakeTransport) on(method, path string, page fakePage) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[method+" "+path] = page
	return f
}

func (f *fakeTransport) get(path string, body []byte) *fakeTransport {
	return f.on(http.MethodGet, path, fakePage{body: body})
}

func (f *fakeTransport) Do(_ context.Context, req Request, jar Jar) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, recordedRequest{Request: req, Cookies: jar.Cookies()})

	page, ok := f.pages[req.Method+" "+req.Path]
	if !ok {
		page = fakePage{status: http.StatusNotFound, body: []byte("<html></html>")}
	}
	if page.err != nil {
		return Response{}, &TransportError{Method: req.Method, Path: req.Path, Err: page.err}
	}

	out := jar.Clone()
	for _, c := range page.cookies {
		out.Set(c)
	}
	status := page.status
	if status == 0 {
		status = http.StatusOK
	}
	finalPath := page.finalPath
	if finalPath == "" {
		finalPath, _, _ = strings.Cut(req.Path, "?")
	}
	return Response{Status: status, Body: page.body, Jar: out, FinalPath: finalPath}, nil
}

func (f *fakeTransport) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.requests {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}

func (f *fakeTransport) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

var sessionCookie = Cookie{Domain: "fetlife.com", Name: "_fl_sessionid", Value: "sess-1", HttpOnly: true, Secure: true}

// loginTransport is a fake site where logging in works with the given success page.
func loginTransport(t testing.TB, successPage string) *fakeTransport {
	return newFakeTransport().
		on(http.MethodGet, signInPath, fakePage{
			body:    fixture(t, "login_page.html"),
			cookies: []Cookie{{Domain: "fetlife.com", Name: "__cf_bm", Value: "cf-1"}},
		}).
		on(http.MethodPost, signInPath, fakePage{
			body:      fixture(t, successPage),
			finalPath: "/home",
			cookies:   []Cookie{sessionCookie},
		})
}
