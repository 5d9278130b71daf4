package probe

import (
	"HealthScan/internal/domain"
	"HealthScan/internal/shared/constants"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type HTTPProbe struct {
	client *http.Client
}

func NewHTTPProbe() *HTTPProbe {
	return &HTTPProbe{
		client: &http.Client{
			Timeout: constants.HTTPTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: false,
					MinVersion:         tls.VersionTLS12,
				},
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

func (p *HTTPProbe) Kind() domain.Kind {
	return domain.HTTPCheck
}

// Execute reports the response time in milliseconds. A status outside
// expect_status (default any 2xx or 3xx) fails the probe.
func (p *HTTPProbe) Execute(ctx context.Context, spec domain.ProbeSpec) (Observation, error) {
	fullURL, err := p.normalizeURL(spec.Target)
	if err != nil {
		return Observation{}, fmt.Errorf("invalid URL: %w", err)
	}

	method := getStringOption(spec.Params, "method", http.MethodGet)
	headers := getHeadersOption(spec.Params)
	verifySSL := getBoolOption(spec.Params, "verify_ssl", true)
	expected := getStringSliceOption(spec.Params, "expect_status")

	client := p.configureClient(verifySSL)

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return Observation{}, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "HealthScan/1.0")
	}

	start := time.Now()
	resp, err := client.Do(req)
	responseTime := time.Since(start)
	if err != nil {
		return Observation{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if !statusExpected(resp.StatusCode, expected) {
		return Observation{}, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}

	details := map[string]string{
		"status_code": strconv.Itoa(resp.StatusCode),
		"url":         fullURL,
		"proto":       resp.Proto,
	}
	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		details["cert_expires_at"] = resp.TLS.PeerCertificates[0].NotAfter.UTC().Format(time.RFC3339)
	}

	return observe(domain.NumberValue(float64(responseTime.Microseconds())/1000), details), nil
}

func (p *HTTPProbe) normalizeURL(target string) (string, error) {
	if u, err := url.ParseRequestURI(target); err == nil && u.Host != "" {
		return target, nil
	}
	if httpURL, err := url.Parse("http://" + target); err == nil && httpURL.Host != "" {
		return httpURL.String(), nil
	}
	return "", fmt.Errorf("invalid URL format: %s", target)
}

func (p *HTTPProbe) configureClient(verifySSL bool) *http.Client {
	if verifySSL {
		return p.client
	}

	transport := p.client.Transport.(*http.Transport).Clone()
	transport.TLSClientConfig.InsecureSkipVerify = true

	client := *p.client
	client.Transport = transport
	return &client
}

func statusExpected(code int, expected []string) bool {
	if len(expected) == 0 {
		return code >= 200 && code < 400
	}
	for _, e := range expected {
		if strconv.Itoa(code) == e {
			return true
		}
	}
	return false
}
