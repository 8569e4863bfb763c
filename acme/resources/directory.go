// Package resources holds typed representations of the ACME resources
// exchanged with the server.
package resources

// Directory is the root JSON document returned by the CA, mapping operation
// names to URLs.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.1
type Directory struct {
	NewNonce   string
	NewAccount string
	NewOrder   string
	RevokeCert string
	KeyChange  string
	Meta       DirectoryMeta
}

// DirectoryMeta carries the optional "meta" member of the directory.
type DirectoryMeta struct {
	// URL of the server's terms of service. When present, account creation
	// must agree to the terms.
	TermsOfService string
	Website        string
	CaaIdentities  []string
}
