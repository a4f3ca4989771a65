package fetlife

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Cookie is one stored cookie. Expires is a unix timestamp, zero for session cookies.
type Cookie struct {
	Domain   string `json:"domain"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Expires  int64  `json:"expires,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HttpOnly bool   `json:"http_only,omitempty"`
	HostOnly bool   `json:"host_only,omitempty"`
}

func (c Cookie) expired(now time.Time) bool {
	return c.Expires != 0 && c.Expires <= now.Unix()
}

type cookieKey struct {
	domain string
	name   string
}

// Jar maps (domain, name) to a cookie. It is a value: Clone before handing it to
// anything that outlives the current request, the zero value is an empty jar.
type Jar struct {
	entries map[cookieKey]Cookie
}

func NewJar() Jar {
	return Jar{entries: map[cookieKey]Cookie{}}
}

// JarOf builds a jar from a list of cookies, later duplicates win.
func JarOf(cookies ...Cookie) Jar {
	jar := NewJar()
	for _, c := range cookies {
		jar.Set(c)
	}
	return jar
}

func (j Jar) Clone() Jar {
	out := NewJar()
	for k, v := range j.entries {
		out.entries[k] = v
	}
	return out
}

func (j Jar) Len() int {
	return len(j.entries)
}

func (j *Jar) Set(c Cookie) {
	if j.entries == nil {
		j.entries = map[cookieKey]Cookie{}
	}
	c.Domain = normalizeDomain(c.Domain)
	if c.Path == "" {
		c.Path = "/"
	}
	j.entries[cookieKey{domain: c.Domain, name: c.Name}] = c
}

func (j *Jar) Delete(domain, name string) {
	delete(j.entries, cookieKey{domain: normalizeDomain(domain), name: name})
}

func (j Jar) Get(domain, name string) (Cookie, bool) {
	c, ok := j.entries[cookieKey{domain: normalizeDomain(domain), name: name}]
	return c, ok
}

// Cookies returns every cookie sorted by domain then name.
func (j Jar) Cookies() []Cookie {
	out := make([]Cookie, 0, len(j.entries))
	for _, c := range j.entries {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Cookie) int {
		if a.Domain != b.Domain {
			return strings.Compare(a.Domain, b.Domain)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// CookiesFor returns the cookies a request to u would carry at time now, sorted by name.
func (j Jar) CookiesFor(u *url.URL, now time.Time) []*http.Cookie {
	host := strings.ToLower(u.Hostname())
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	var out []*http.Cookie
	for _, c := range j.Cookies() {
		if c.expired(now) {
			continue
		}
		if c.Secure && u.Scheme != "https" {
			continue
		}
		if !domainMatches(host, c.Domain, c.HostOnly) {
			continue
		}
		if !strings.HasPrefix(path, c.Path) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	slices.SortStableFunc(out, func(a, b *http.Cookie) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// absorb applies cookies received from u at time now.
func (j *Jar) absorb(u *url.URL, cookies []*http.Cookie, now time.Time) {
	host := strings.ToLower(u.Hostname())
	for _, hc := range cookies {
		c := Cookie{
			Domain:   normalizeDomain(hc.Domain),
			Name:     hc.Name,
			Value:    hc.Value,
			Path:     hc.Path,
			Secure:   hc.Secure,
			HttpOnly: hc.HttpOnly,
		}
		if c.Domain == "" {
			c.Domain = host
			c.HostOnly = true
		}
		if !domainMatches(host, c.Domain, false) {
			continue
		}
		switch {
		case hc.MaxAge < 0:
			j.Delete(c.Domain, c.Name)
			continue
		case hc.MaxAge > 0:
			c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second).Unix()
		case !hc.Expires.IsZero():
			c.Expires = hc.Expires.Unix()
		}
		if c.expired(now) {
			j.Delete(c.Domain, c.Name)
			continue
		}
		j.Set(c)
	}
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimPrefix(domain, "."))
}

func domainMatches(host, domain string, hostOnly bool) bool {
	if host == domain {
		return true
	}
	if hostOnly {
		return false
	}
	return strings.HasSuffix(host, "."+domain)
}

// liveJar adapts a Jar to http.CookieJar for the duration of one exchange.
type liveJar struct {
	mu  sync.Mutex
	jar Jar
	now func() time.Time
}

func newLiveJar(jar Jar, now func() time.Time) *liveJar {
	return &liveJar{jar: jar.Clone(), now: now}
}

func (l *liveJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jar.absorb(u, cookies, l.now())
}

func (l *liveJar) Cookies(u *url.URL) []*http.Cookie {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jar.CookiesFor(u, l.now())
}

func (l *liveJar) snapshot() Jar {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jar.Clone()
}

const netscapeHeader = "# Netscape HTTP Cookie File\n"
const httpOnlyPrefix = "#HttpOnly_"

func netscapeBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// WriteNetscape writes the jar in the cookies.txt format curl reads and writes.
func (j Jar) WriteNetscape(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(netscapeHeader); err != nil {
		return err
	}
	for _, c := range j.Cookies() {
		domain := c.Domain
		if !c.HostOnly {
			domain = "." + domain
		}
		if c.HttpOnly {
			domain = httpOnlyPrefix + domain
		}
		_, err := fmt.Fprintf(
			bw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain,
			netscapeBool(!c.HostOnly),
			c.Path,
			netscapeBool(c.Secure),
			c.Expires,
			c.Name,
			c.Value,
		)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadNetscapeJar parses a cookies.txt file, comment lines other than the
// #HttpOnly_ marker are skipped.
func ReadNetscapeJar(r io.Reader) (Jar, error) {
	jar := NewJar()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		httpOnly := false
		if strings.HasPrefix(text, httpOnlyPrefix) {
			httpOnly = true
			text = strings.TrimPrefix(text, httpOnlyPrefix)
		}
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 7 {
			return Jar{}, fmt.Errorf("cookies.txt line %d: expected 7 fields, got %d", line, len(fields))
		}
		expires, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return Jar{}, fmt.Errorf("cookies.txt line %d: expiry: %w", line, err)
		}
		jar.Set(Cookie{
			Domain:   fields[0],
			HostOnly: fields[1] != "TRUE",
			Path:     fields[2],
			Secure:   fields[3] == "TRUE",
			Expires:  expires,
			Name:     fields[5],
			Value:    fields[6],
			HttpOnly: httpOnly,
		})
	}
	if err := scanner.Err(); err != nil {
		return Jar{}, err
	}
	return jar, nil
}
