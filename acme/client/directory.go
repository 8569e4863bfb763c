package client

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/uacme/uacme/acme"
	"github.com/uacme/uacme/acme/resources"
)

// UpdateDirectory fetches the ACME directory resource and caches it on the
// session.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.1
func (c *Client) UpdateDirectory() error {
	lr, err := c.Fetch(c.directoryURL)
	if err != nil {
		return err
	}
	if err := c.require("directory", lr, http.StatusOK); err != nil {
		return err
	}

	var directory resources.Directory
	if err := decode("directory", lr, &directory); err != nil {
		return err
	}

	c.Directory = &directory
	log.Debugf("updated directory from %q", c.directoryURL)
	return nil
}

// endpointURL resolves a directory operation name to its URL.
func (c *Client) endpointURL(name string) (string, error) {
	if c.Directory == nil {
		return "", acme.Protocolf("no directory: the session was not bootstrapped")
	}

	var url string
	switch name {
	case acme.NEW_NONCE_ENDPOINT:
		url = c.Directory.NewNonce
	case acme.NEW_ACCOUNT_ENDPOINT:
		url = c.Directory.NewAccount
	case acme.NEW_ORDER_ENDPOINT:
		url = c.Directory.NewOrder
	case acme.REVOKE_CERT_ENDPOINT:
		url = c.Directory.RevokeCert
	}
	if url == "" {
		return "", acme.Protocolf("ACME server directory has no %q endpoint", name)
	}
	return url, nil
}
