// Package net provides the HTTP transport used to talk to the ACME server:
// GET/POST with full body and header capture.
package net

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"
)

const (
	version       = "0.1.0"
	userAgentBase = "uacme"
	locale        = "en-us"

	defaultTimeout = 30 * time.Second
)

// Config holds transport options.
type Config struct {
	// Optional file path to one or more PEM encoded CA certificates to be
	// used as trust roots for HTTPS requests to the ACME server. Empty means
	// the system roots.
	CABundlePath string
	// Socket-level timeout for each request. Zero selects the default.
	Timeout time.Duration
}

// ACMENet wraps an http.Client configured for ACME exchanges.
type ACMENet struct {
	httpClient *http.Client
}

// NetResponse bundles an HTTP response with its fully read body.
type NetResponse struct {
	Response *http.Response
	RespBody []byte
}

// New builds an ACMENet from the given Config.
func New(conf Config) (*ACMENet, error) {
	timeout := conf.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	client := &http.Client{Timeout: timeout}

	if bundle := strings.TrimSpace(conf.CABundlePath); bundle != "" {
		pemBundle, err := os.ReadFile(bundle)
		if err != nil {
			return nil, err
		}
		caBundle := x509.NewCertPool()
		if !caBundle.AppendCertsFromPEM(pemBundle) {
			return nil, fmt.Errorf("no CA certificates found in %q", bundle)
		}
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs: caBundle,
			},
		}
	}

	return &ACMENet{httpClient: client}, nil
}

// Close releases idle transport connections.
func (c *ACMENet) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *ACMENet) httpRequest(req *http.Request) (*NetResponse, error) {
	ua := fmt.Sprintf("%s %s (%s; %s)",
		userAgentBase, version, runtime.GOOS, runtime.GOARCH)
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Language", locale)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &NetResponse{
		Response: resp,
		RespBody: respBody,
	}, nil
}

// GetURL performs an unsigned GET of the given URL.
func (c *ACMENet) GetURL(url string) (*NetResponse, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.httpRequest(req)
}

// PostJOSE POSTs the given serialized JWS body to the URL with the
// application/jose+json content type required by RFC 8555.
func (c *ACMENet) PostJOSE(url string, body []byte) (*NetResponse, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/jose+json")
	return c.httpRequest(req)
}
