package fetlife

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"fetlife-adapter/internal/components/assert"
	"fetlife-adapter/internal/components/chrono"
	"fetlife-adapter/internal/components/telemetry"
	"fetlife-adapter/lib/util/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseUrl = "https://fetlife.com"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

	csrfHeader    = "X-CSRF-Token"
	csrfFormField = "authenticity_token"
)

// Request is one exchange with the site. Path is relative to the base url and may
// carry a query string. Form is only sent on POST.
type Request struct {
	Method string
	Path   string
	Form   url.Values
	// Csrf is injected as a header, and as a form field on POST, when not empty.
	Csrf string
}

type Response struct {
	Status int
	Body   []byte
	// Jar is the request jar with every cookie the exchange set applied to it.
	Jar Jar
	// FinalPath is the path of the last url reached after following redirects.
	FinalPath string
}

// Transport sends a request carrying the cookies of jar, follows redirects and returns
// the body together with the updated jar. It must not retry. A failure to complete the
// exchange is reported as a *TransportError with no usable response.
//
// note: fault injection point
type Transport interface {
	Do(ctx context.Context, req Request, jar Jar) (Response, error)
}

func defaultRoundTripper() http.RoundTripper {
	return cloudflarebp.AddCloudFlareByPass(http.DefaultTransport.(*http.Transport).Clone())
}

func formWithCsrf(req Request) url.Values {
	form := url.Values{}
	for k, v := range req.Form {
		form[k] = append([]string(nil), v...)
	}
	if req.Csrf != "" && form.Get(csrfFormField) == "" {
		form.Set(csrfFormField, req.Csrf)
	}
	return form
}

type HTTPTransportOptions struct {
	BaseUrl string
	Timeout time.Duration
	// RoundTripper defaults to a cloudflare bypassing clone of http.DefaultTransport.
	RoundTripper http.RoundTripper
	Clock        chrono.API
	// Dumper, when set, records every exchange for debugging.
	Dumper *restyutil.Dumper
}

// HTTPTransport is the resty based Transport. It shares one round tripper (and so one
// connection pool) across calls, but every call gets its own http.Client around a
// private copy of the jar, so concurrent calls for different accounts never touch the
// same cookies.
type HTTPTransport struct {
	baseUrl *url.URL
	timeout time.Duration
	rt      http.RoundTripper
	clock   chrono.API
	dumper  *restyutil.Dumper
	tel     telemetry.API
}

func NewHTTPTransport(opts HTTPTransportOptions, tel telemetry.API) (*HTTPTransport, error) {
	assert.NotNil(tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.RoundTripper == nil {
		opts.RoundTripper = defaultRoundTripper()
	}
	if opts.Clock == nil {
		opts.Clock = chrono.StandardImpl{}
	}

	return &HTTPTransport{
		baseUrl: baseUrl,
		timeout: opts.Timeout,
		rt:      opts.RoundTripper,
		clock:   opts.Clock,
		dumper:  opts.Dumper,
		tel:     telemetry.NewScopedAPI("fetlife_transport", tel),
	}, nil
}

func (t *HTTPTransport) BaseUrl() *url.URL {
	return t.baseUrl
}

func (t *HTTPTransport) Do(ctx context.Context, req Request, jar Jar) (Response, error) {
	live := newLiveJar(jar, t.clock.Now)

	client := resty.NewWithClient(&http.Client{
		Transport: t.rt,
		Jar:       live,
	})
	client.SetBaseURL(t.baseUrl.String())
	client.SetTimeout(t.timeout)
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(10),
		resty.DomainCheckRedirectPolicy(t.baseUrl.Hostname()),
	)
	telemetry.InstrumentResty(client, t.tel)
	t.dumper.Attach(client)

	r := client.R().SetContext(ctx)
	if req.Csrf != "" {
		r.SetHeader(csrfHeader, req.Csrf)
	}
	if req.Method == http.MethodPost {
		r.SetFormDataFromValues(formWithCsrf(req))
	}

	res, err := r.Execute(req.Method, req.Path)
	if err != nil {
		return Response{}, &TransportError{Method: req.Method, Path: req.Path, Err: err}
	}

	finalPath := req.Path
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalPath = res.RawResponse.Request.URL.Path
	}

	return Response{
		Status:    res.StatusCode(),
		Body:      res.Body(),
		Jar:       live.snapshot(),
		FinalPath: finalPath,
	}, nil
}
