package client

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/uacme/uacme/acme"
)

// Nonce satisfies the JWS NonceSource interface. The session holds exactly
// one valid nonce; signing a request consumes it. The replacement arrives
// with the response's Replay-Nonce header (see capture), so a nonce is never
// used twice.
func (c *Client) Nonce() (string, error) {
	if c.nonce == "" {
		return "", acme.Protocolf("need a nonce first")
	}
	n := c.nonce
	c.nonce = ""
	return n, nil
}

// HasNonce reports whether the session currently holds a nonce.
func (c *Client) HasNonce() bool {
	return c.nonce != ""
}

// RefreshNonce primes the session with a fresh nonce from the newNonce
// endpoint. The endpoint always answers an unsigned GET with HTTP 204.
//
// See https://tools.ietf.org/html/rfc8555#section-7.2
func (c *Client) RefreshNonce() error {
	nonceURL, err := c.endpointURL(acme.NEW_NONCE_ENDPOINT)
	if err != nil {
		return err
	}

	lr, err := c.Fetch(nonceURL)
	if err != nil {
		return err
	}
	if lr.StatusCode != http.StatusNoContent {
		return acme.Protocolf("%q returned HTTP status %d, expected %d",
			acme.NEW_NONCE_ENDPOINT, lr.StatusCode, http.StatusNoContent)
	}
	if c.nonce == "" {
		return acme.Protocolf("%q returned no %q header value",
			acme.NEW_NONCE_ENDPOINT, acme.REPLAY_NONCE_HEADER)
	}
	log.Debug("session primed with a fresh nonce")
	return nil
}
