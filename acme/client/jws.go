package client

import (
	"crypto"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/uacme/uacme/acme"
	"github.com/uacme/uacme/acme/keys"
)

// signingOptions selects between the two JWS protected header forms of RFC
// 8555 section 6.2: an embedded public JWK, or a "kid" referencing the
// account URL. Exactly one form is used per request.
type signingOptions struct {
	// Embed the public JWK instead of using a Key ID header. Used until the
	// account URL is known. Mutually exclusive with a non-empty keyID.
	embedKey bool
	// The account URL for the JWS Key ID header.
	keyID string
	// The private key signing the JWS.
	signer crypto.Signer
	// Source for the anti-replay nonce placed in the protected header.
	nonceSource jose.NonceSource
}

func (opts *signingOptions) validate() error {
	if opts.keyID != "" && opts.embedKey {
		return acme.Protocolf("sign: cannot embed a JWK and use a key ID")
	}
	if opts.keyID == "" && !opts.embedKey {
		return acme.Protocolf("sign: a key ID or an embedded JWK is required")
	}
	if opts.signer == nil {
		return acme.Protocolf("sign: a signer is required")
	}
	if opts.nonceSource == nil {
		return acme.Protocolf("sign: a nonce source is required")
	}
	return nil
}

// sign produces the flattened JWS serialization of payload for a POST to
// url, signed with the account key. The jwk form is used exactly while the
// session has no kid.
func (c *Client) sign(url string, payload []byte) ([]byte, error) {
	opts := signingOptions{
		signer:      c.AccountKey,
		nonceSource: c,
	}
	if c.KID != "" {
		opts.keyID = c.KID
	} else {
		opts.embedKey = true
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	signingKey := keys.SigningKeyForSigner(opts.signer, opts.keyID)
	joseOpts := &jose.SignerOptions{
		NonceSource: opts.nonceSource,
		EmbedJWK:    opts.embedKey,
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": url,
		},
	}

	signer, err := jose.NewSigner(signingKey, joseOpts)
	if err != nil {
		return nil, acme.Protocolf("sign: %s", err)
	}

	if payload == nil {
		payload = []byte{}
	}
	signed, err := signer.Sign(payload)
	if err != nil {
		return nil, acme.Protocolf("sign: %s", err)
	}

	return []byte(signed.FullSerialize()), nil
}
