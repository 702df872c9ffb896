package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/resilience"
)

var (
	errUnknownScheme = errors.New("unknown scheme")
	errMissingHost   = errors.New("missing host")
)

// Fetcher retrieves and parses one page. Failures are returned as
// *errors.FetchError values; the crawler decides what they mean for the
// traversal.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// xmlContentType matches the XML flavours a page may be served as.
var xmlContentType = regexp.MustCompile(`^(application|text)/\w*\+?xml`)

// HTTPFetcher fetches pages over net/http with a per-page deadline and a
// cap on the bytes read.
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	maxBody   int64
	userAgent string
}

// NewHTTPFetcher builds a fetcher from the crawler configuration. A nil
// client uses a fresh http.Client.
func NewHTTPFetcher(cfg config.CrawlerConfig, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{
		client:    client,
		timeout:   cfg.FetchTimeout,
		maxBody:   cfg.MaxBodyBytes,
		userAgent: cfg.UserAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &apperrors.FetchError{URL: rawURL, Reason: apperrors.ReasonParse, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &apperrors.FetchError{URL: rawURL, Reason: apperrors.ReasonUnsupportedScheme}
	}

	page, err := resilience.Call(ctx, f.timeout, "fetch "+rawURL, func(ctx context.Context) (*Page, error) {
		return f.get(ctx, u)
	})
	if err == nil {
		return page, nil
	}
	var fe *apperrors.FetchError
	if errors.As(err, &fe) {
		return nil, fe
	}
	reason := apperrors.ReasonTransport
	if errors.Is(err, context.DeadlineExceeded) {
		reason = apperrors.ReasonTimeout
	}
	return nil, &apperrors.FetchError{URL: rawURL, Reason: reason, Err: err}
}

func (f *HTTPFetcher) get(ctx context.Context, u *url.URL) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &apperrors.FetchError{URL: u.String(), Reason: apperrors.ReasonParse, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, &apperrors.FetchError{
			URL:    u.String(),
			Reason: apperrors.ReasonHTTPStatus,
			Err:    fmt.Errorf("status %d", resp.StatusCode),
		}
	}
	contentType := resp.Header.Get("Content-Type")
	if !acceptedContentType(contentType) {
		return nil, &apperrors.FetchError{
			URL:    u.String(),
			Reason: apperrors.ReasonContentType,
			Err:    fmt.Errorf("content type %q", contentType),
		}
	}

	var body io.Reader = resp.Body
	if f.maxBody > 0 {
		body = io.LimitReader(body, f.maxBody)
	}
	if contentType != "" {
		if decoded, err := charset.NewReader(body, contentType); err == nil {
			body = decoded
		}
	}
	// Redirects change the base for relative links.
	pageURL := u
	if resp.Request != nil && resp.Request.URL != nil {
		pageURL = resp.Request.URL
	}
	page, err := ParseHTML(pageURL, body)
	if err != nil {
		return nil, &apperrors.FetchError{URL: u.String(), Reason: apperrors.ReasonParse, Err: err}
	}
	page.URL = u.String()
	return page, nil
}

// acceptedContentType allows text/*, XML flavours and a missing header,
// which is treated as HTML.
func acceptedContentType(header string) bool {
	if strings.TrimSpace(header) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
	}
	return strings.HasPrefix(mediaType, "text/") || xmlContentType.MatchString(mediaType)
}
