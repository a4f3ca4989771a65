package fetlife

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"fetlife-adapter/internal/components/assert"
	"fetlife-adapter/internal/components/telemetry"
)

const report_curl_do = "curl.do"

type CurlTransportOptions struct {
	BaseUrl string
	// Binary defaults to "curl" looked up on PATH.
	Binary string
	// ScratchDir is where per-request cookie files are staged, os.TempDir when empty.
	ScratchDir string
	Timeout    time.Duration
}

// CurlTransport runs every exchange through the curl binary with a staged cookies.txt
// as both its cookie source and cookie sink. Useful where curl is the only client that
// gets through whatever sits in front of the site.
type CurlTransport struct {
	baseUrl    *url.URL
	binary     string
	scratchDir string
	timeout    time.Duration
	tel        telemetry.API
}

func NewCurlTransport(opts CurlTransportOptions, tel telemetry.API) (*CurlTransport, error) {
	assert.NotNil(tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.Binary == "" {
		opts.Binary = "curl"
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	return &CurlTransport{
		baseUrl:    baseUrl,
		binary:     opts.Binary,
		scratchDir: opts.ScratchDir,
		timeout:    opts.Timeout,
		tel:        telemetry.NewScopedAPI("fetlife_transport", tel),
	}, nil
}

func (t *CurlTransport) BaseUrl() *url.URL {
	return t.baseUrl
}

// curl prints this after the body has been written to the -o file.
const curlWriteOut = "%{http_code} %{url_effective}"

func (t *CurlTransport) Do(ctx context.Context, req Request, jar Jar) (Response, error) {
	fail := func(err error) (Response, error) {
		return Response{}, &TransportError{Method: req.Method, Path: req.Path, Err: err}
	}

	target, err := t.baseUrl.Parse(req.Path)
	if err != nil {
		return fail(err)
	}

	staged, err := stageJar(t.scratchDir, jar)
	if err != nil {
		return fail(err)
	}
	defer staged.release()

	bodyPath := staged.Path("body")
	args := []string{
		"--silent", "--show-error", "--location",
		"--max-redirs", "10",
		"--max-time", strconv.Itoa(int(t.timeout.Seconds())),
		"--cookie", staged.JarPath(),
		"--cookie-jar", staged.JarPath(),
		"--user-agent", userAgent,
		"--output", bodyPath,
		"--write-out", curlWriteOut,
	}
	switch req.Method {
	case http.MethodGet, http.MethodPost:
		// curl keeps an explicit --request across redirects
	default:
		args = append(args, "--request", req.Method)
	}
	if req.Csrf != "" {
		args = append(args, "--header", fmt.Sprintf("%s: %s", csrfHeader, req.Csrf))
	}
	if req.Method == http.MethodPost {
		args = append(args, "--data-raw", formWithCsrf(req).Encode())
	}
	args = append(args, target.String())

	t.tel.ReportDebug(report_curl_do, req.Method, req.Path)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fail(fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	status, effective, err := parseCurlWriteOut(stdout.String())
	if err != nil {
		return fail(err)
	}
	body, err := os.ReadFile(bodyPath)
	if err != nil && !os.IsNotExist(err) {
		return fail(err)
	}
	updated, err := staged.reload()
	if err != nil {
		return fail(fmt.Errorf("reload cookies: %w", err))
	}

	finalPath := target.Path
	if u, err := url.Parse(effective); err == nil {
		finalPath = u.Path
	}

	return Response{
		Status:    status,
		Body:      body,
		Jar:       updated,
		FinalPath: finalPath,
	}, nil
}

func parseCurlWriteOut(out string) (int, string, error) {
	code, effective, _ := strings.Cut(strings.TrimSpace(out), " ")
	status, err := strconv.Atoi(code)
	if err != nil {
		return 0, "", fmt.Errorf("parse curl status %q: %w", code, err)
	}
	return status, effective, nil
}
