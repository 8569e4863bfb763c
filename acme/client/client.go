// Package client implements the ACME v2 protocol state machine: signed
// request construction, nonce lifecycle, and the account, order,
// authorization and challenge flows.
package client

import (
	"crypto"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/uacme/uacme/acme"
	"github.com/uacme/uacme/acme/resources"
	acmenet "github.com/uacme/uacme/net"
)

const defaultPollInterval = 5 * time.Second

// Client is the protocol session. It owns all mutable protocol state: the
// account key used to sign every request, the optional domain key used for
// CSRs, the cached directory, the single currently valid nonce, the account
// URL ("kid") once known, and the most recent response.
//
// A Client drives one strictly sequential conversation with the ACME server;
// it is not safe for concurrent use.
type Client struct {
	// AccountKey signs all JWS requests. Always required.
	AccountKey crypto.Signer
	// DomainKey is the keypair for the certificate's CSR. Loaded only when
	// issuing.
	DomainKey crypto.Signer
	// Directory is the parsed directory resource after Bootstrap.
	Directory *resources.Directory
	// Account is the most recent account resource snapshot.
	Account *resources.Account
	// Order is the most recent order resource snapshot.
	Order *resources.Order
	// KID is the account's canonical URL once known; empty before the
	// account is established. While empty, requests embed the public JWK.
	KID string
	// Confirmer answers interactive y/n prompts (terms of service, manual
	// challenge confirmation).
	Confirmer Confirmer
	// AcceptTOS makes account creation agree to the server's terms of
	// service without prompting. It does not apply to challenge prompts.
	AcceptTOS bool
	// PollInterval is the fixed delay between status polls.
	PollInterval time.Duration
	// PollDeadline optionally bounds the wall-clock time of a polling loop.
	// Zero preserves the default behavior of polling until a terminal
	// status or transport error.
	PollDeadline time.Duration

	directoryURL string
	net          *acmenet.ACMENet
	nonce        string
	last         *LastResponse
}

// Config contains configuration options provided to New.
type Config struct {
	// A fully qualified URL for the ACME server's directory resource. Must
	// include an HTTP/HTTPS protocol prefix.
	DirectoryURL string
	// An optional file path to one or more PEM encoded CA certificates to be
	// used as trust roots for HTTPS requests to the ACME server.
	CABundle string
	// The account keypair. Required.
	AccountKey crypto.Signer
	// Optional keypair for CSR generation (issue action only).
	DomainKey crypto.Signer
	// Confirmer for interactive prompts. Defaults to a terminal
	// implementation reading standard input.
	Confirmer Confirmer
	// Agree to the server's terms of service without prompting.
	AcceptTOS bool
	// Socket-level HTTP timeout. Zero selects the transport default.
	Timeout time.Duration
}

// New creates a Client from the given Config. The returned Client holds no
// nonce and no directory until Bootstrap is called.
func New(config Config) (*Client, error) {
	dirURL := strings.TrimSpace(config.DirectoryURL)
	if dirURL == "" {
		return nil, &acme.InputError{Msg: "directory URL must not be empty"}
	}
	if _, err := url.Parse(dirURL); err != nil {
		return nil, &acme.InputError{Msg: "directory URL invalid: " + err.Error()}
	}
	if config.AccountKey == nil {
		return nil, &acme.InputError{Msg: "an account key is required"}
	}

	net, err := acmenet.New(acmenet.Config{
		CABundlePath: config.CABundle,
		Timeout:      config.Timeout,
	})
	if err != nil {
		return nil, &acme.FilesystemError{Path: config.CABundle, Err: err}
	}

	confirmer := config.Confirmer
	if confirmer == nil {
		confirmer = NewTerminalConfirmer()
	}

	return &Client{
		AccountKey:   config.AccountKey,
		DomainKey:    config.DomainKey,
		Confirmer:    confirmer,
		AcceptTOS:    config.AcceptTOS,
		PollInterval: defaultPollInterval,
		directoryURL: dirURL,
		net:          net,
	}, nil
}

// Bootstrap fetches and caches the directory resource, then primes the
// session with its first nonce from the newNonce endpoint.
func (c *Client) Bootstrap() error {
	if err := c.UpdateDirectory(); err != nil {
		return err
	}
	return c.RefreshNonce()
}

// Close tears the session down: protocol snapshots and key references are
// dropped and idle transport connections are closed.
func (c *Client) Close() {
	c.AccountKey = nil
	c.DomainKey = nil
	c.Directory = nil
	c.Account = nil
	c.Order = nil
	c.nonce = ""
	c.last = nil
	if c.net != nil {
		c.net.Close()
	}
	log.Debug("session closed")
}
