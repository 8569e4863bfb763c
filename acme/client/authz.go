package client

import (
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/uacme/uacme/acme"
	"github.com/uacme/uacme/acme/keys"
	"github.com/uacme/uacme/acme/resources"
	"github.com/uacme/uacme/hook"
)

// AuthorizeOrder completes every authorization of the session's order,
// fulfilling one challenge per identifier through the hook (or the
// interactive prompt when no hook is configured).
func (c *Client) AuthorizeOrder(hookPath string) error {
	if c.Order == nil {
		return acme.Protocolf("authorize: no order on session")
	}
	for _, authzURL := range c.Order.Authorizations {
		if err := c.authorize(authzURL, hookPath); err != nil {
			return err
		}
	}
	return nil
}

// authorize fetches one authorization and drives one of its challenges to
// the valid status.
//
// See https://tools.ietf.org/html/rfc8555#section-7.5
func (c *Client) authorize(authzURL string, hookPath string) error {
	lr, err := c.PostAsGet(authzURL)
	if err != nil {
		return err
	}
	if err := c.require("authorization", lr, http.StatusOK); err != nil {
		return err
	}

	authz := resources.Authorization{ID: authzURL}
	if err := decode("authorization", lr, &authz); err != nil {
		return err
	}

	switch authz.Status {
	case acme.STATUS_VALID:
		log.Infof("authorization %q is already valid", authzURL)
		return nil
	case acme.STATUS_PENDING:
	default:
		return acme.Protocolf("authorization %q has status %q", authzURL, authz.Status)
	}

	if authz.Identifier.Type != "dns" {
		return acme.Protocolf("authorization %q has identifier type %q, expected \"dns\"",
			authzURL, authz.Identifier.Type)
	}
	ident := authz.Identifier.Value

	for i := range authz.Challenges {
		chall := &authz.Challenges[i]
		if chall.Status != acme.STATUS_PENDING {
			continue
		}

		keyAuth := c.keyAuthorization(chall)
		accepted, err := c.offerChallenge(chall, ident, keyAuth, hookPath)
		if err != nil {
			return err
		}
		if !accepted {
			continue
		}

		// Committed: once the challenge is activated no other challenge type
		// is attempted for this authorization.
		err = c.completeChallenge(chall)
		if hookPath != "" {
			method := hook.MethodDone
			if err != nil {
				method = hook.MethodFailed
			}
			if _, cleanupErr := hook.Run(
				hookPath, method, chall.Type, ident, chall.Token, keyAuth); cleanupErr != nil {
				log.Debugf("cleanup hook did not run: %s", cleanupErr)
			}
		}
		if err == nil {
			log.Infof("authorization for %q completed with %q challenge", ident, chall.Type)
		}
		return err
	}

	return acme.Protocolf("authorization %q has no challenge the validator accepts", authzURL)
}

// keyAuthorization computes the provisioning value handed to the validator:
// dns-01 uses the base64url SHA-256 digest of the key authorization, every
// other type the raw token "." thumbprint string.
func (c *Client) keyAuthorization(chall *resources.Challenge) string {
	if chall.Type == acme.CHALLENGE_DNS01 {
		return keys.DNS01KeyAuthorization(c.AccountKey, chall.Token)
	}
	return keys.KeyAuthorization(c.AccountKey, chall.Token)
}

// offerChallenge asks the validator to provision the challenge response.
// With a hook, exit status 0 accepts, a positive status declines the
// challenge type, and a spawn failure aborts the authorization. Without
// a hook the operator is prompted.
func (c *Client) offerChallenge(chall *resources.Challenge, ident string, keyAuth string, hookPath string) (bool, error) {
	if hookPath == "" {
		prompt := fmt.Sprintf(
			"%s challenge for %q\n  token: %s\n  key authorization: %s\nProvision the response, then continue?",
			chall.Type, ident, chall.Token, keyAuth)
		return c.Confirmer.Confirm(prompt), nil
	}

	rc, err := hook.Run(hookPath, hook.MethodBegin, chall.Type, ident, chall.Token, keyAuth)
	if err != nil {
		return false, &acme.HookError{Code: rc, Err: err}
	}
	if rc > 0 {
		log.Debugf("hook declined %q challenge for %q (status %d)", chall.Type, ident, rc)
		return false, nil
	}
	return true, nil
}

// completeChallenge activates the challenge and polls it until the server
// reports it valid. A status outside processing/pending is terminal.
func (c *Client) completeChallenge(chall *resources.Challenge) error {
	lr, err := c.SignAndSend(chall.URL, []byte("{}"))
	if err != nil {
		return err
	}
	if err := c.require("challenge", lr, http.StatusOK); err != nil {
		return err
	}

	check := func() error {
		lr, err := c.PostAsGet(chall.URL)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := c.require("challenge", lr, http.StatusOK); err != nil {
			return backoff.Permanent(err)
		}

		updated := resources.Challenge{URL: chall.URL}
		if err := decode("challenge", lr, &updated); err != nil {
			return backoff.Permanent(err)
		}

		switch updated.Status {
		case acme.STATUS_VALID:
			return nil
		case acme.STATUS_PROCESSING, acme.STATUS_PENDING:
			log.Debugf("challenge %q has status %q, polling again", chall.URL, updated.Status)
			return fmt.Errorf("challenge status %q", updated.Status)
		}
		if updated.Error != nil {
			return backoff.Permanent(acme.Protocolf(
				"challenge %q failed with status %q: %s", chall.URL, updated.Status, updated.Error))
		}
		return backoff.Permanent(acme.Protocolf(
			"challenge %q has unexpected status %q", chall.URL, updated.Status))
	}
	return c.poll(check)
}
