package client

import (
	"encoding/json"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/uacme/uacme/acme"
	"github.com/uacme/uacme/acme/resources"
	acmenet "github.com/uacme/uacme/net"
)

// LastResponse is the captured state of the most recent HTTP exchange with
// the ACME server. The session owns exactly one; each request replaces it.
type LastResponse struct {
	StatusCode  int
	Header      http.Header
	Body        []byte
	ContentType string
	// Problem is non-nil when the response classifies as an ACME error:
	// either the Content-Type is application/problem+json or the body has
	// a top-level "error" object.
	Problem *resources.Problem
}

// Fetch performs an unsigned GET of the given URL and captures the response.
// A transport failure is returned as a TransportError; any HTTP status is
// a successful fetch.
func (c *Client) Fetch(url string) (*LastResponse, error) {
	log.Debugf("sending GET request to %q", url)
	resp, err := c.net.GetURL(url)
	if err != nil {
		return nil, &acme.TransportError{URL: url, Err: err}
	}
	return c.capture(resp), nil
}

// SignAndSend signs the payload as a JWS for the given URL and POSTs it. An
// empty payload produces a POST-as-GET request. It fails without touching
// the network when the session holds no nonce.
func (c *Client) SignAndSend(url string, payload []byte) (*LastResponse, error) {
	if c.nonce == "" {
		return nil, acme.Protocolf("signed POST to %q: need a nonce first", url)
	}

	signedBody, err := c.sign(url, payload)
	if err != nil {
		return nil, err
	}

	log.Debugf("sending POST request to %q", url)
	resp, err := c.net.PostJOSE(url, signedBody)
	if err != nil {
		return nil, &acme.TransportError{URL: url, Err: err}
	}
	return c.capture(resp), nil
}

// PostAsGet fetches a resource with an empty-payload signed POST.
//
// See https://tools.ietf.org/html/rfc8555#section-6.3
func (c *Client) PostAsGet(url string) (*LastResponse, error) {
	return c.SignAndSend(url, nil)
}

// LastResponseSnapshot returns the session's captured last response.
func (c *Client) LastResponseSnapshot() *LastResponse {
	return c.last
}

// capture replaces the session's last response with the state of resp. Every
// response may carry a new Replay-Nonce; it is always adopted, overwriting
// the previous one.
func (c *Client) capture(resp *acmenet.NetResponse) *LastResponse {
	if nonce := resp.Response.Header.Get(acme.REPLAY_NONCE_HEADER); nonce != "" {
		c.nonce = nonce
		log.Debugf("updated nonce to %q", nonce)
	}

	lr := &LastResponse{
		StatusCode:  resp.Response.StatusCode,
		Header:      resp.Response.Header,
		Body:        resp.RespBody,
		ContentType: resp.Response.Header.Get("Content-Type"),
	}
	lr.Problem = classifyProblem(lr)

	c.last = lr
	return lr
}

// classifyProblem decodes the response body as a problem document when the
// response is an ACME error.
func classifyProblem(lr *LastResponse) *resources.Problem {
	if strings.Contains(lr.ContentType, "application/problem+json") {
		var problem resources.Problem
		if err := json.Unmarshal(lr.Body, &problem); err != nil {
			return nil
		}
		return &problem
	}

	if strings.Contains(lr.ContentType, "json") {
		var wrapper struct {
			Error *resources.Problem
		}
		if err := json.Unmarshal(lr.Body, &wrapper); err != nil {
			return nil
		}
		return wrapper.Error
	}
	return nil
}

// require checks the captured response against the expected status code and
// converts a mismatch into the right error kind. Problem documents are
// emitted to the operator in full.
func (c *Client) require(op string, lr *LastResponse, want int) error {
	if lr.StatusCode == want {
		return nil
	}
	if lr.Problem != nil {
		log.Errorf("%s: server problem document: %s", op, string(lr.Body))
		return &acme.ProblemError{Problem: *lr.Problem, Body: lr.Body}
	}
	return acme.Protocolf("%s: server returned status code %d, expected %d",
		op, lr.StatusCode, want)
}

// decode unmarshals the captured response body into out.
func decode(op string, lr *LastResponse, out interface{}) error {
	if err := json.Unmarshal(lr.Body, out); err != nil {
		return acme.Protocolf("%s: server returned invalid JSON: %s", op, err)
	}
	return nil
}
