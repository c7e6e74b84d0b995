package elemid

import "github.com/google/uuid"

// ID is the opaque handle of a document element.
type ID string

// New returns a fresh, globally unique element ID.
func New() ID {
	return ID(uuid.NewString())
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id == ""
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Ref points at one attribute of a named element, e.g. `light.shadowAtten`.
type Ref struct {
	Element   string
	Attribute string
	Index     int // -1 indicates no index is present.
}

// NewRef creates a reference without an index.
func NewRef(element, attribute string) Ref {
	return Ref{Element: element, Attribute: attribute, Index: -1}
}

// NewRefWithIndex creates a reference that addresses one element of an
// array attribute.
func NewRefWithIndex(element, attribute string, index int) Ref {
	return Ref{Element: element, Attribute: attribute, Index: index}
}

// HasIndex returns true if the reference has an explicit index.
func (r Ref) HasIndex() bool {
	return r.Index != -1
}
