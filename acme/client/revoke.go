package client

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/uacme/uacme/acme"
)

// RevokeCertificate asks the server to revoke the certificate given as DER
// bytes, with the given RFC 5280 reason code.
//
// See https://tools.ietf.org/html/rfc8555#section-7.6
func (c *Client) RevokeCertificate(der []byte, reason int) error {
	revokeURL, err := c.endpointURL(acme.REVOKE_CERT_ENDPOINT)
	if err != nil {
		return err
	}

	revokeReq := struct {
		Certificate string `json:"certificate"`
		Reason      int    `json:"reason"`
	}{
		Certificate: base64.RawURLEncoding.EncodeToString(der),
		Reason:      reason,
	}
	reqBody, err := json.Marshal(&revokeReq)
	if err != nil {
		return acme.Protocolf("revoke: %s", err)
	}

	lr, err := c.SignAndSend(revokeURL, reqBody)
	if err != nil {
		return err
	}
	if err := c.require("revoke", lr, http.StatusOK); err != nil {
		return err
	}

	log.Info("certificate revoked")
	return nil
}
