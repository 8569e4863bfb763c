// Package acme provides ACME protocol constants and the error kinds used to
// classify failures talking to an ACME server.
package acme

const (
	// See https://tools.ietf.org/html/rfc8555#section-7.1.1
	// The ACME directory key for the newNonce endpoint.
	NEW_NONCE_ENDPOINT = "newNonce"
	// The ACME directory key for the newAccount endpoint.
	NEW_ACCOUNT_ENDPOINT = "newAccount"
	// The ACME directory key for the newOrder endpoint.
	NEW_ORDER_ENDPOINT = "newOrder"
	// The ACME directory key for the revokeCert endpoint.
	REVOKE_CERT_ENDPOINT = "revokeCert"

	// The HTTP response header used by ACME to communicate a fresh nonce. See
	// https://tools.ietf.org/html/rfc8555#section-6.5.1
	REPLAY_NONCE_HEADER = "Replay-Nonce"
	// The HTTP response header carrying the canonical URL of a created
	// resource (account or order).
	LOCATION_HEADER = "Location"

	// The Content-Type for JWS request bodies. See
	// https://tools.ietf.org/html/rfc8555#section-6.2
	JOSE_CONTENT_TYPE = "application/jose+json"
	// The Content-Type for error documents. See
	// https://tools.ietf.org/html/rfc8555#section-6.7
	PROBLEM_CONTENT_TYPE = "application/problem+json"

	// The URN namespace prefix for ACME error types.
	ERROR_TYPE_PREFIX = "urn:ietf:params:acme:error:"
	// The error type the server returns for an onlyReturnExisting newAccount
	// request when no account matches the key.
	ERROR_ACCOUNT_DOES_NOT_EXIST = ERROR_TYPE_PREFIX + "accountDoesNotExist"
)

// Status values shared by accounts, orders, authorizations and challenges.
// See https://tools.ietf.org/html/rfc8555#section-7.1.6
const (
	STATUS_PENDING     = "pending"
	STATUS_READY       = "ready"
	STATUS_PROCESSING  = "processing"
	STATUS_VALID       = "valid"
	STATUS_INVALID     = "invalid"
	STATUS_DEACTIVATED = "deactivated"
)

// Challenge types defined by RFC 8555 and RFC 8737.
const (
	CHALLENGE_HTTP01    = "http-01"
	CHALLENGE_DNS01     = "dns-01"
	CHALLENGE_TLSALPN01 = "tls-alpn-01"
)
