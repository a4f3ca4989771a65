package restyutil

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
)

const redacted = "[redacted]"

var secretHeaders = []string{"Authorization", "Cookie", "Set-Cookie", "X-Csrf-Token"}

var secretFields = []string{"authenticity_token", "user[password]", "password"}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out strings.Builder
	for _, k := range keys {
		secret := slices.Contains(secretHeaders, http.CanonicalHeaderKey(k))
		for _, v := range headers[k] {
			if secret {
				v = redacted
			}
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func formatForm(form url.Values) string {
	if len(form) == 0 {
		return ""
	}
	clean := url.Values{}
	for k, vals := range form {
		for _, v := range vals {
			if slices.Contains(secretFields, k) {
				v = redacted
			}
			clean.Add(k, v)
		}
	}
	// Encode escapes the brackets of rails style field names, readability wins here
	decoded, err := url.QueryUnescape(clean.Encode())
	if err != nil {
		return clean.Encode()
	}
	return decoded
}

// 1: request method
// 2: request url
// 3: request headers in ("Key: Value" format)
// 4: request form
// 5: response status
// 6: final url after redirects
// 7: response headers in ("Key: Value" format)
// 8: response body
const exchangeTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%d %s

%s

%s`

// formatExchange renders res with every cookie, token and password replaced.
func formatExchange(res *resty.Response) string {
	var requestHeaders string
	finalUrl := res.Request.URL
	if raw := res.Request.RawRequest; raw != nil {
		requestHeaders = formatHeaders(raw.Header)
	}
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}

	return fmt.Sprintf(
		exchangeTemplate,

		res.Request.Method, res.Request.URL,
		requestHeaders,
		formatForm(res.Request.FormData),

		res.StatusCode(), finalUrl,
		formatHeaders(res.Header()),
		res.String(),
	)
}
