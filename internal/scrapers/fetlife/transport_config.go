package fetlife

import (
	"fmt"
	"time"

	"fetlife-adapter/internal/components/telemetry"
	"fetlife-adapter/lib/util/restyutil"
)

const (
	TransportHTTP = "http"
	TransportCurl = "curl"
)

// TransportConfig is the json form of a transport choice, shared by the daemon and
// the cli.
type TransportConfig struct {
	// Kind is TransportHTTP (the default) or TransportCurl.
	Kind           string `json:"transport"`
	BaseUrl        string `json:"base_url"`
	CurlBinary     string `json:"curl_binary"`
	ScratchDir     string `json:"scratch_dir"`
	TimeoutSeconds int    `json:"request_timeout_seconds"`
	// DumpDir, when set, receives a redacted dump of every exchange of the http
	// transport.
	DumpDir string `json:"dump_dir"`
}

// NewTransportFactory validates c and returns a constructor for fresh transports.
// Every HTTPTransport it builds shares one connection pool.
func NewTransportFactory(c TransportConfig, tel telemetry.API) (func() (Transport, error), error) {
	timeout := time.Duration(c.TimeoutSeconds) * time.Second

	switch c.Kind {
	case "", TransportHTTP:
		var dumper *restyutil.Dumper
		if c.DumpDir != "" {
			output, err := restyutil.NewFilesystemOutput(c.DumpDir)
			if err != nil {
				return nil, err
			}
			dumper = restyutil.NewDumper("fetlife-", output)
		}
		rt := defaultRoundTripper()
		factory := func() (Transport, error) {
			return NewHTTPTransport(HTTPTransportOptions{
				BaseUrl:      c.BaseUrl,
				Timeout:      timeout,
				RoundTripper: rt,
				Dumper:       dumper,
			}, tel)
		}
		_, err := factory()
		return factory, err
	case TransportCurl:
		factory := func() (Transport, error) {
			return NewCurlTransport(CurlTransportOptions{
				BaseUrl:    c.BaseUrl,
				Binary:     c.CurlBinary,
				ScratchDir: c.ScratchDir,
				Timeout:    timeout,
			}, tel)
		}
		_, err := factory()
		return factory, err
	}
	return nil, fmt.Errorf("unknown transport %q", c.Kind)
}
