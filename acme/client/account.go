package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/uacme/uacme/acme"
	"github.com/uacme/uacme/acme/resources"
)

// findAccount asks newAccount for the account bound to the session key
// without creating one, by POSTing {"onlyReturnExisting":true}. The caller
// interprets the captured response: 200 means the account exists, 400 with
// an accountDoesNotExist problem means it does not.
//
// See https://tools.ietf.org/html/rfc8555#section-7.3.1
func (c *Client) findAccount() (*LastResponse, error) {
	newAcctURL, err := c.endpointURL(acme.NEW_ACCOUNT_ENDPOINT)
	if err != nil {
		return nil, err
	}

	probe := struct {
		OnlyReturnExisting bool `json:"onlyReturnExisting"`
	}{
		OnlyReturnExisting: true,
	}
	reqBody, err := json.Marshal(&probe)
	if err != nil {
		return nil, acme.Protocolf("findAccount: %s", err)
	}

	return c.SignAndSend(newAcctURL, reqBody)
}

// accountMissing reports whether the captured response is the 400
// accountDoesNotExist answer to an onlyReturnExisting probe.
func accountMissing(lr *LastResponse) bool {
	return lr.StatusCode == http.StatusBadRequest &&
		lr.Problem != nil &&
		lr.Problem.Type == acme.ERROR_ACCOUNT_DOES_NOT_EXIST
}

// adoptAccount captures the Location header as the session kid and stores
// the decoded account snapshot.
func (c *Client) adoptAccount(op string, lr *LastResponse) error {
	locHeader := lr.Header.Get(acme.LOCATION_HEADER)
	if locHeader == "" {
		return acme.Protocolf("%s: server returned response with no %s header",
			op, acme.LOCATION_HEADER)
	}

	var acct resources.Account
	if err := decode(op, lr, &acct); err != nil {
		return err
	}
	if acct.Status != acme.STATUS_VALID {
		return acme.Protocolf("%s: account status is %q, expected %q",
			op, acct.Status, acme.STATUS_VALID)
	}

	acct.ID = locHeader
	c.KID = locHeader
	c.Account = &acct
	return nil
}

// RegisterAccount creates a new account for the session key, agreeing to the
// server's terms of service after confirmation. It fails when an account
// already exists for the key, reporting the existing account URL.
//
// See https://tools.ietf.org/html/rfc8555#section-7.3
func (c *Client) RegisterAccount(email string) error {
	lr, err := c.findAccount()
	if err != nil {
		return err
	}

	switch {
	case lr.StatusCode == http.StatusOK:
		locHeader := lr.Header.Get(acme.LOCATION_HEADER)
		c.KID = locHeader
		return acme.Protocolf(
			"create: an account already exists for this key at %q", locHeader)
	case accountMissing(lr):
		// No account yet. Proceed to creation.
	default:
		return c.require("create", lr, http.StatusOK)
	}

	if tosURL := c.Directory.Meta.TermsOfService; tosURL != "" {
		if c.AcceptTOS {
			log.Infof("agreeing to terms of service at %q", tosURL)
		} else if !c.Confirmer.Confirm(fmt.Sprintf(
			"Do you accept the terms of service at %s?", tosURL)) {
			return &acme.InputError{Msg: "terms of service were not accepted"}
		}
	}

	newAcctReq := struct {
		ToSAgreed bool     `json:"termsOfServiceAgreed"`
		Contact   []string `json:"contact,omitempty"`
	}{
		ToSAgreed: true,
	}
	if email != "" {
		newAcctReq.Contact = []string{"mailto:" + email}
	}
	reqBody, err := json.Marshal(&newAcctReq)
	if err != nil {
		return acme.Protocolf("create: %s", err)
	}

	newAcctURL, err := c.endpointURL(acme.NEW_ACCOUNT_ENDPOINT)
	if err != nil {
		return err
	}
	lr, err = c.SignAndSend(newAcctURL, reqBody)
	if err != nil {
		return err
	}
	if err := c.require("create", lr, http.StatusCreated); err != nil {
		return err
	}
	if err := c.adoptAccount("create", lr); err != nil {
		return err
	}

	log.Infof("created account %q", c.KID)
	return nil
}

// RetrieveAccount locates the existing account for the session key and
// stores it on the session. Subsequent signed requests use the account URL
// as the JWS kid.
func (c *Client) RetrieveAccount() error {
	lr, err := c.findAccount()
	if err != nil {
		return err
	}

	switch {
	case lr.StatusCode == http.StatusOK:
		if err := c.adoptAccount("account", lr); err != nil {
			return err
		}
		log.Debugf("using account %q", c.KID)
		return nil
	case accountMissing(lr):
		return acme.Protocolf(
			`account: no account exists for this key (run the "new" subcommand first)`)
	default:
		return c.require("account", lr, http.StatusOK)
	}
}

// contactEmail extracts the single canonical email address from an account's
// contact list. Every contact must be a mailto: URL (matched
// case-insensitively); an empty contact list yields an empty address.
func contactEmail(contacts []string) (string, error) {
	if len(contacts) == 0 {
		return "", nil
	}
	for _, contact := range contacts {
		if !strings.HasPrefix(strings.ToLower(contact), "mailto:") {
			return "", acme.Protocolf("account contact %q is not a mailto: URL", contact)
		}
	}
	return contacts[0][len("mailto:"):], nil
}

// UpdateContact updates the account's contact email when it differs from
// email. Addresses are compared case-insensitively; local parts are
// case-sensitive per RFC 5321, but a spurious mismatch only costs one
// idempotent update request. An empty email clears the contact list.
//
// See https://tools.ietf.org/html/rfc8555#section-7.3.2
func (c *Client) UpdateContact(email string) error {
	if c.Account == nil || c.KID == "" {
		return acme.Protocolf("update: no account on session")
	}

	current, err := contactEmail(c.Account.Contact)
	if err != nil {
		return err
	}
	if strings.EqualFold(current, email) {
		log.Infof("account contact is already %q, nothing to update", current)
		return nil
	}

	updateReq := struct {
		Contact []string `json:"contact"`
	}{
		Contact: []string{},
	}
	if email != "" {
		updateReq.Contact = []string{"mailto:" + email}
	}
	reqBody, err := json.Marshal(&updateReq)
	if err != nil {
		return acme.Protocolf("update: %s", err)
	}

	lr, err := c.SignAndSend(c.KID, reqBody)
	if err != nil {
		return err
	}
	if err := c.require("update", lr, http.StatusOK); err != nil {
		return err
	}

	var acct resources.Account
	if err := decode("update", lr, &acct); err != nil {
		return err
	}
	acct.ID = c.KID
	c.Account = &acct
	log.Infof("updated account contact to %q", email)
	return nil
}

// DeactivateAccount permanently deactivates the session's account.
//
// See https://tools.ietf.org/html/rfc8555#section-7.3.6
func (c *Client) DeactivateAccount() error {
	if c.KID == "" {
		return acme.Protocolf("deactivate: no account on session")
	}

	deactivateReq := struct {
		Status string `json:"status"`
	}{
		Status: acme.STATUS_DEACTIVATED,
	}
	reqBody, err := json.Marshal(&deactivateReq)
	if err != nil {
		return acme.Protocolf("deactivate: %s", err)
	}

	lr, err := c.SignAndSend(c.KID, reqBody)
	if err != nil {
		return err
	}
	if err := c.require("deactivate", lr, http.StatusOK); err != nil {
		return err
	}

	if c.Account != nil {
		c.Account.Status = acme.STATUS_DEACTIVATED
	}
	log.Infof("deactivated account %q", c.KID)
	return nil
}
