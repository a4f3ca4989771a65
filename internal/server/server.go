package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"fetlife-adapter/internal/components/assert"
	"fetlife-adapter/internal/components/telemetry"
	"fetlife-adapter/internal/scrapers/fetlife"
	"fetlife-adapter/internal/sessionstore"
	"fetlife-adapter/lib/util/serviceutil"

	"github.com/go-chi/chi/v5"
)

const (
	report_server_request = "server.request"

	accountHeader = "X-Account-ID"
)

type Options struct {
	// AccessToken gates every route but /healthz and /metrics. Empty refuses all of
	// them with "server misconfigured".
	AccessToken    string
	DefaultAccount string
	// DefaultUsername and DefaultPassword are used by /login when the request has no
	// credentials.
	DefaultUsername string
	DefaultPassword string
	// BaseUrl turns the site relative links of entities into absolute ones.
	BaseUrl *url.URL
}

// Server is the thin HTTP layer in front of the scraper. It keeps no session between
// requests: every request loads its account from the store and saves it back before
// responding.
type Server struct {
	store      *sessionstore.Store
	transports func() (fetlife.Transport, error)
	metrics    *Metrics
	logger     *slog.Logger
	tel        telemetry.API
	opts       Options
}

// New builds a server. transports is called once per request so no two requests share
// a transport.
func New(
	store *sessionstore.Store,
	transports func() (fetlife.Transport, error),
	metrics *Metrics,
	logger *slog.Logger,
	tel telemetry.API,
	opts Options,
) *Server {
	assert.NotNil(store)
	assert.NotNil(transports)
	assert.NotNil(metrics)
	assert.NotNil(logger)
	assert.NotNil(tel)

	if opts.BaseUrl == nil {
		opts.BaseUrl, _ = url.Parse(fetlife.DefaultBaseUrl)
	}

	return &Server{
		store:      store,
		transports: transports,
		metrics:    metrics,
		logger:     logger,
		tel:        telemetry.NewScopedAPI("server", tel),
		opts:       opts,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestId)
	r.Use(withLogging(s.logger, s.metrics))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(serviceutil.VerifyAccessToken(s.opts.AccessToken, func(w http.ResponseWriter, status int, message string) {
			writeJSON(w, status, errorBody{Error: message})
		}))

		r.Post("/login", s.login)
		r.Post("/logout", s.logout)
		r.Get("/events", s.events)
		r.Get("/events/{id}", s.event)
		r.Get("/events/{id}/attendees", s.attendees)
		r.Get("/users/{id}", s.profile)
		r.Get("/users/{id}/writings", s.writings)
		r.Get("/groups/{id}/posts", s.groupPosts)
		r.Get("/messages", s.messages)
	})

	return r
}

func (s *Server) accountId(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(accountHeader))
	if id == "" {
		id = s.opts.DefaultAccount
	}
	if id == "" {
		return "", badRequest{message: "missing account"}
	}
	return id, nil
}

// fail writes err as a response. Server side failures are the one place hard errors of
// the scraper get reported.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= 500 {
		s.tel.ReportBroken(report_server_request, err, "request_id", RequestId(r.Context()), "path", r.URL.Path)
	}
	writeError(w, r, status, message)
}

// withUser runs fn as the request's account: the account must already be logged in, and
// whatever fn did to its session is saved before the response is written.
func (s *Server) withUser(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, user *fetlife.User) (any, error)) {
	accountId, err := s.accountId(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	transport, err := s.transports()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var result any
	err = s.store.Cycle(r.Context(), accountId, func(account *fetlife.Account) error {
		if !account.Authenticated() {
			return fetlife.ErrNotAuthenticated
		}
		user := fetlife.NewUser(account, transport, s.tel)
		var fnErr error
		result, fnErr = fn(r.Context(), user)
		s.metrics.RecordExtractionGaps(len(user.Gaps()))
		return fnErr
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) link(href string) string {
	u, err := s.opts.BaseUrl.Parse(href)
	if err != nil {
		return href
	}
	return u.String()
}
