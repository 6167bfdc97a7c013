package name

import (
	"strings"

	"github.com/drmem-io/drmem/core/errors"
)

// Field identifies which piece of device metadata a DeviceSpec addresses.
type Field string

// The fields a DeviceSpec may address, per the core data model.
const (
	FieldValue    Field = "value"
	FieldUnit     Field = "unit"
	FieldLocation Field = "location"
	FieldSummary  Field = "summary"
	FieldDetail   Field = "detail"
)

var validFields = map[Field]bool{
	FieldValue:    true,
	FieldUnit:     true,
	FieldLocation: true,
	FieldSummary:  true,
	FieldDetail:   true,
}

// DeviceSpec is a Name optionally suffixed with ".field" to address a
// specific piece of device metadata. The default field, when omitted, is
// FieldValue.
type DeviceSpec struct {
	Name  Name
	Field Field
}

// ParseSpec parses s into a DeviceSpec. The field suffix, if present,
// follows the last "." in s; since Name segments never contain ".", this is
// unambiguous.
func ParseSpec(s string) (DeviceSpec, error) {
	namePart := s
	field := FieldValue

	if idx := strings.LastIndex(s, "."); idx >= 0 {
		namePart = s[:idx]
		field = Field(s[idx+1:])
		if !validFields[field] {
			return DeviceSpec{}, errors.InvArgument("invalid device spec field %q in %q", field, s)
		}
	}

	n, err := Parse(namePart)
	if err != nil {
		return DeviceSpec{}, err
	}
	return DeviceSpec{Name: n, Field: field}, nil
}

// String renders the canonical form of the spec. The default field
// (FieldValue) is suppressed, matching the round-trip law in the core
// testable properties.
func (d DeviceSpec) String() string {
	if d.Field == FieldValue || d.Field == "" {
		return d.Name.String()
	}
	return d.Name.String() + "." + string(d.Field)
}
