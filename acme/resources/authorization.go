package resources

// The Identifier resource represents a subject identifier that can be
// included in a certificate.
//
// See:
// https://tools.ietf.org/html/rfc8555#section-7.1.4
//
// In practice ACME servers only support "dns" type identifiers where the
// value specifies a fully qualified domain name. The lowercase JSON field
// names are significant: Identifier is marshaled into newOrder requests.
type Identifier struct {
	// The Type of the Identifier value ("dns").
	Type string `json:"type"`
	// The Identifier value.
	Value string `json:"value"`
}

// The ACME Authorization resource represents an Account's authorization to
// issue for a specified identifier, based on interactions with associated
// Challenges.
//
// For information about the Authorization resource see
// https://tools.ietf.org/html/rfc8555#section-7.1.4
//
// To understand the Authorization Status changes specified by ACME see
// https://tools.ietf.org/html/rfc8555#section-7.1.6
type Authorization struct {
	// The server-assigned ID (a URL) identifying the Authorization.
	ID string `json:"-"`
	// The status of this authorization. Possible values are: "pending",
	// "valid", "invalid", "deactivated", "expired", and "revoked".
	Status string
	// The identifier that the account holding this Authorization is
	// authorized to represent.
	Identifier Identifier
	// For pending authorizations, the challenges that the client can fulfill
	// in order to prove possession of the identifier.
	Challenges []Challenge
	// A string representing a RFC 3339 date at which time the Authorization
	// is considered expired by the server.
	Expires string
	// True for authorizations created as a result of a newOrder request
	// containing a DNS identifier with a wildcard prefix.
	Wildcard bool
}

// String returns the Authorization's server-assigned ID.
func (a Authorization) String() string {
	return a.ID
}
