package games

import (
	"benchsync/internal/assert"
	"benchsync/internal/fetch"
	"benchsync/internal/telemetry"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultURLTemplate = "https://games.crossfit.com/athlete/{id}"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/94.0.4606.81 Safari/537.36"

	idPlaceholder = "{id}"
)

type Options struct {
	// URLTemplate is the profile url, "{id}" is replaced by the escaped entity id.
	URLTemplate string `json:"url_template"`
	UserAgent   string `json:"user_agent"`
	// RequestsPerSecond caps the request rate across every worker, 0 disables the limiter.
	RequestsPerSecond float64 `json:"requests_per_second"`
	// TimeoutSeconds bounds a single request, defaults to 30.
	TimeoutSeconds int `json:"timeout_seconds"`
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `json:"insecure_skip_verify"`
}

// Client requests athlete profiles, it implements fetch.Requester.
type Client struct {
	http     *resty.Client
	template string
	tel      telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("games_client", tel)

	if opts.URLTemplate == "" {
		opts.URLTemplate = DefaultURLTemplate
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("timeout_seconds must not be negative, got %d", opts.TimeoutSeconds)
	}
	timeout := 30 * time.Second
	if opts.TimeoutSeconds > 0 {
		timeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	roundTripper := cloudflarebp.AddCloudFlareByPass(transport)
	if opts.InsecureSkipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}
	httpClient.SetTransport(roundTripper)

	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetTimeout(timeout)

	if opts.RequestsPerSecond > 0 {
		// burst >= 1 just means that no requests will be dropped
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(1, int(opts.RequestsPerSecond)))
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		http:     httpClient,
		template: opts.URLTemplate,
		tel:      tel,
	}, nil
}

// ProfileURL returns the profile url of an athlete.
func (c *Client) ProfileURL(id string) string {
	return strings.ReplaceAll(c.template, idPlaceholder, url.PathEscape(id))
}

// Get fetches the profile page of an athlete. Any status is returned as is, only transport failures
// are errors.
func (c *Client) Get(ctx context.Context, id string) (fetch.Response, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(c.ProfileURL(id))
	if err != nil {
		return fetch.Response{}, err
	}
	return fetch.Response{
		Status: res.StatusCode(),
		Body:   res.Body(),
	}, nil
}
