package resources

import "encoding/json"

// Problem is a struct representing a problem document from the server.
//
// See https://tools.ietf.org/html/rfc8555#section-6.7
type Problem struct {
	Type        string
	Detail      string
	Status      int
	Subproblems []Problem `json:",omitempty"`
}

// String returns the problem document re-serialized as JSON so it can be
// shown to the operator verbatim.
func (p Problem) String() string {
	out, err := json.Marshal(p)
	if err != nil {
		return p.Type
	}
	return string(out)
}
