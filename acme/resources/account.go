package resources

// The Account resource represents the ACME account bound to the account key.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.2
type Account struct {
	// The server-assigned ID (the Location URL) identifying the Account. It
	// doubles as the "kid" value for JWS protected headers once known.
	ID string `json:"-"`
	// The Status of the Account. Possible values are: "valid", "deactivated",
	// and "revoked".
	Status string
	// Contact URLs (typically a single "mailto:" address).
	Contact []string
	// A URL for the account's orders list.
	Orders string
	// Whether the account holder agreed to the server's terms of service.
	TermsOfServiceAgreed bool
}

// String returns the Account's ID URL.
func (a Account) String() string {
	return a.ID
}
