package resources

// The Order resource represents a collection of identifiers that an account
// wishes to create a Certificate for.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.3
//
// To understand the Status changes specified by ACME for the Order resource
// see https://tools.ietf.org/html/rfc8555#section-7.1.6
type Order struct {
	// The server-assigned ID (a URL) identifying the Order, taken from the
	// Location header of the newOrder response.
	ID string `json:"-"`
	// The Status of the Order. One of "pending", "ready", "processing",
	// "valid" or "invalid".
	Status string
	// The Identifiers the Order wishes to finalize a Certificate for.
	Identifiers []Identifier
	// A list of URLs for Authorization resources the server specifies for the
	// Order Identifiers.
	Authorizations []string
	// A URL used to Finalize the Order with a CSR once the Order has a status
	// of "ready".
	Finalize string
	// A URL used to fetch the Certificate issued by the server for the Order
	// after being Finalized. Present and non-empty when the Order has
	// a status of "valid".
	Certificate string
	// RFC 3339 expiry of the Order.
	Expires string
	// The error that occurred while processing the Order, if any.
	Error *Problem
}

// String returns the Order's ID URL.
func (o Order) String() string {
	return o.ID
}
