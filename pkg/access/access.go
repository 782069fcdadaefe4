package access

import "strings"

type Capability string

const (
	// ManageLoans covers the full borrowed list and loan renewal.
	ManageLoans Capability = "can_manage_loans"
	// EditCatalog covers create/update/delete of catalog records.
	EditCatalog Capability = "can_edit_catalog"
)

var known = map[Capability]bool{
	ManageLoans: true,
	EditCatalog: true,
}

// ParseCapabilities keeps the recognised names and drops the rest.
func ParseCapabilities(names []string) []Capability {
	out := make([]Capability, 0, len(names))
	for _, n := range names {
		c := Capability(strings.TrimSpace(n))
		if known[c] {
			out = append(out, c)
		}
	}
	return out
}

// Viewer is the identity a request acts as. The zero value is anonymous.
type Viewer struct {
	UserID       string
	Username     string
	Capabilities []Capability
}

func Anonymous() Viewer {
	return Viewer{}
}

func (v Viewer) Authenticated() bool {
	return v.UserID != ""
}

func (v Viewer) Can(c Capability) bool {
	if !v.Authenticated() {
		return false
	}
	for _, have := range v.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}
