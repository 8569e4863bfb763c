package client

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"

	"github.com/uacme/uacme/acme"
)

// CSR produces the base64url DER encoding of a certificate signing request
// for the given names, signed with the session's domain key. The first name
// becomes the subject common name; all names are carried as DNS SANs.
func (c *Client) CSR(names []string) (string, error) {
	if len(names) == 0 {
		return "", acme.Protocolf("csr: no names specified")
	}
	if c.DomainKey == nil {
		return "", acme.Protocolf("csr: no domain key loaded")
	}

	template := x509.CertificateRequest{
		Subject: pkix.Name{
			CommonName: names[0],
		},
		DNSNames: names,
	}

	csrBytes, err := x509.CreateCertificateRequest(rand.Reader, &template, c.DomainKey)
	if err != nil {
		return "", acme.Protocolf("csr: %s", err)
	}

	return base64.RawURLEncoding.EncodeToString(csrBytes), nil
}
