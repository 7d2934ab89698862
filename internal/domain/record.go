package domain

import "strings"

// Candidate is one entry of a listing page.
type Candidate struct {
	DisplayName string
	DetailURL   string
}

// Record is the fixed schema extracted from a detail page.
type Record struct {
	FirstName    string
	LastName     string
	InmateID     string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	ZipCode      string
}

// IdentityKey returns the key two records must share to be the same person.
// Differences in any other field are ignored.
func (r Record) IdentityKey() string {
	return r.InmateID + "_" + r.FirstName + "_" + r.LastName
}

// SplitName splits a display name on whitespace. The first token is the given
// name and the last token the family name; a single token has no family name.
func SplitName(displayName string) (first, last string) {
	parts := strings.Fields(displayName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[len(parts)-1]
	}
}

// ParseInmateID extracts the identifier from cell text such as
// "#A12345\nSome Facility". Only the first line is considered and the value is
// whatever follows its last '#'. ok is false when the first line has no '#'.
func ParseInmateID(text string) (id string, ok bool) {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	i := strings.LastIndexByte(line, '#')
	if i < 0 {
		return strings.TrimSpace(line), false
	}
	return strings.TrimSpace(line[i+1:]), true
}

// FormatInmateID renders the identifier the way the tabular files store it.
func FormatInmateID(id string) string {
	return "#" + id
}

// NormalizeInmateID strips the stored '#' prefix and surrounding whitespace.
func NormalizeInmateID(stored string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(stored), "#"))
}
