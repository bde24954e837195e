// Package inventory reads Sphinx object inventories (objects.inv), the
// index Sphinx publishes alongside a documentation site.
package inventory

import (
	"fmt"
	"strings"
)

// Domain is the Sphinx domain an inventory entry belongs to.
type Domain string

const (
	DomainPython     Domain = "py"
	DomainC          Domain = "c"
	DomainCPP        Domain = "cpp"
	DomainJavaScript Domain = "js"
	DomainRST        Domain = "rst"
	DomainMath       Domain = "math"
	DomainStd        Domain = "std"
	// DomainOther covers domains added by Sphinx extensions.
	DomainOther Domain = "other"
)

func parseDomain(s string) Domain {
	switch d := Domain(s); d {
	case DomainPython, DomainC, DomainCPP, DomainJavaScript, DomainRST, DomainMath, DomainStd:
		return d
	}
	return DomainOther
}

// Kind is the "domain:role" tag of an entry, e.g. py:function or std:doc.
type Kind struct {
	Domain Domain
	Role   string
	// raw keeps the original spelling for domains folded into DomainOther.
	raw string
}

// ParseKind parses a "domain:role" tag.
func ParseKind(s string) (Kind, error) {
	domain, role, ok := strings.Cut(s, ":")
	if !ok || domain == "" || role == "" {
		return Kind{}, fmt.Errorf("invalid kind %q: expected domain:role", s)
	}
	k := Kind{Domain: parseDomain(domain), Role: role}
	if k.Domain == DomainOther {
		k.raw = domain
	}
	return k, nil
}

func (k Kind) String() string {
	domain := string(k.Domain)
	if k.raw != "" {
		domain = k.raw
	}
	return domain + ":" + k.Role
}

// Importable reports whether entries of this kind can be linked to from
// Python docstrings: anything in the Python domain, plus whole documents.
func (k Kind) Importable() bool {
	switch k.Domain {
	case DomainPython:
		return true
	case DomainStd:
		return k.Role == "doc"
	}
	return false
}

// Entry is one line of an inventory.
type Entry struct {
	Name        string
	DisplayName string
	Kind        Kind
	Priority    int
	// Location is relative to the documentation root, with any "$"
	// shorthand already expanded.
	Location string
}

type Inventory struct {
	Project string
	Version string
	Entries []Entry
}

// FormatError reports an inventory that does not follow the version 2
// layout. Path is empty when decoding from a stream.
type FormatError struct {
	Path   string
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("invalid inventory")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}
