package acme

import "strings"

// ValidDomain reports whether name is acceptable as a DNS identifier for an
// order. A name is accepted when it is non-empty (also after stripping
// a leading wildcard label), does not begin with ".", uses "*" only as
// a leading "*." wildcard label, and otherwise contains only ASCII letters,
// digits, ".", "-" and "_".
func ValidDomain(name string) bool {
	if name == "" || name[0] == '.' {
		return false
	}

	rest := name
	if strings.HasPrefix(name, "*") {
		if !strings.HasPrefix(name, "*.") {
			return false
		}
		rest = name[len("*."):]
	}
	if rest == "" {
		return false
	}

	for _, r := range rest {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// BaseDomain returns the directory-layout name for a domain: the name with
// a leading "*." wildcard label stripped.
func BaseDomain(name string) string {
	return strings.TrimPrefix(name, "*.")
}
