package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/uacme/uacme/acme"
	"github.com/uacme/uacme/acme/resources"
)

// identifiersRequest builds the newOrder payload for the given DNS names.
func identifiersRequest(names []string) ([]byte, error) {
	req := struct {
		Identifiers []resources.Identifier `json:"identifiers"`
	}{}
	for _, name := range names {
		req.Identifiers = append(req.Identifiers, resources.Identifier{
			Type:  "dns",
			Value: name,
		})
	}
	return json.Marshal(&req)
}

// CreateOrder creates an order for the given DNS names and stores it on the
// session. The server must answer 201 with a Location header and an order in
// the "pending" or "ready" status.
//
// See https://tools.ietf.org/html/rfc8555#section-7.4
func (c *Client) CreateOrder(names []string) error {
	reqBody, err := identifiersRequest(names)
	if err != nil {
		return acme.Protocolf("createOrder: %s", err)
	}

	newOrderURL, err := c.endpointURL(acme.NEW_ORDER_ENDPOINT)
	if err != nil {
		return err
	}

	lr, err := c.SignAndSend(newOrderURL, reqBody)
	if err != nil {
		return err
	}
	if err := c.require("createOrder", lr, http.StatusCreated); err != nil {
		return err
	}

	locHeader := lr.Header.Get(acme.LOCATION_HEADER)
	if locHeader == "" {
		return acme.Protocolf("createOrder: server returned response with no %s header",
			acme.LOCATION_HEADER)
	}

	var order resources.Order
	if err := decode("createOrder", lr, &order); err != nil {
		return err
	}
	if order.Status != acme.STATUS_PENDING && order.Status != acme.STATUS_READY {
		return acme.Protocolf("createOrder: new order has status %q", order.Status)
	}

	order.ID = locHeader
	c.Order = &order
	log.Infof("created order %q", order.ID)
	return nil
}

// updateOrder refreshes the session's order snapshot with a POST-as-GET of
// its URL.
func (c *Client) updateOrder() error {
	lr, err := c.PostAsGet(c.Order.ID)
	if err != nil {
		return err
	}
	if err := c.require("order", lr, http.StatusOK); err != nil {
		return err
	}

	order := resources.Order{ID: c.Order.ID}
	if err := decode("order", lr, &order); err != nil {
		return err
	}
	c.Order = &order
	return nil
}

// pollOrder refreshes the order every poll interval until its status reaches
// target. A status outside allowed is terminal and fails the order.
func (c *Client) pollOrder(target string, allowed ...string) error {
	check := func() error {
		if err := c.updateOrder(); err != nil {
			return backoff.Permanent(err)
		}

		status := c.Order.Status
		if status == target {
			return nil
		}
		for _, ok := range allowed {
			if status == ok {
				log.Debugf("order %q has status %q, polling again", c.Order.ID, status)
				return fmt.Errorf("order status %q", status)
			}
		}
		if c.Order.Error != nil {
			return backoff.Permanent(acme.Protocolf(
				"order %q failed with status %q: %s", c.Order.ID, status, c.Order.Error))
		}
		return backoff.Permanent(acme.Protocolf(
			"order %q has unexpected status %q", c.Order.ID, status))
	}
	return c.poll(check)
}

// FinalizeOrder submits a CSR for the session's order. The server must
// answer 200; the response body replaces the order snapshot.
//
// See https://tools.ietf.org/html/rfc8555#section-7.4
func (c *Client) FinalizeOrder(names []string) error {
	if c.Order == nil || c.Order.Finalize == "" {
		return acme.Protocolf("finalize: no order on session")
	}

	csr, err := c.CSR(names)
	if err != nil {
		return err
	}

	finalizeReq := struct {
		CSR string `json:"csr"`
	}{
		CSR: csr,
	}
	reqBody, err := json.Marshal(&finalizeReq)
	if err != nil {
		return acme.Protocolf("finalize: %s", err)
	}

	lr, err := c.SignAndSend(c.Order.Finalize, reqBody)
	if err != nil {
		return err
	}
	if err := c.require("finalize", lr, http.StatusOK); err != nil {
		return err
	}

	order := resources.Order{ID: c.Order.ID}
	if err := decode("finalize", lr, &order); err != nil {
		return err
	}
	c.Order = &order
	log.Debugf("finalized order %q", order.ID)
	return nil
}

// DownloadCertificate fetches the issued PEM chain for a valid order.
//
// See https://tools.ietf.org/html/rfc8555#section-7.4.2
func (c *Client) DownloadCertificate() ([]byte, error) {
	if c.Order == nil || c.Order.Certificate == "" {
		return nil, acme.Protocolf("certificate: order has no certificate URL")
	}

	lr, err := c.PostAsGet(c.Order.Certificate)
	if err != nil {
		return nil, err
	}
	if err := c.require("certificate", lr, http.StatusOK); err != nil {
		return nil, err
	}
	return lr.Body, nil
}

// IssueCertificate drives the full order lifecycle for the given names:
// order creation, authorization of each identifier, CSR finalization and
// certificate download. It returns the PEM chain.
func (c *Client) IssueCertificate(names []string, hookPath string) ([]byte, error) {
	if err := c.CreateOrder(names); err != nil {
		return nil, err
	}

	if c.Order.Status == acme.STATUS_PENDING {
		if err := c.AuthorizeOrder(hookPath); err != nil {
			return nil, err
		}
		if err := c.pollOrder(acme.STATUS_READY, acme.STATUS_PENDING); err != nil {
			return nil, err
		}
	}

	if err := c.FinalizeOrder(names); err != nil {
		return nil, err
	}
	if err := c.pollOrder(acme.STATUS_VALID, acme.STATUS_PROCESSING); err != nil {
		return nil, err
	}

	log.Infof("order %q is valid, downloading certificate", c.Order.ID)
	return c.DownloadCertificate()
}
