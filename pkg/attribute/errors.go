// Package attribute is the user-facing mutation surface for component
// attributes: decoding the wire format for updates, resolving sources,
// vivifying missing subtree nodes, and applying ordered update pairs.
package attribute

import "fmt"

// Sentinel errors matching spec.md §4.3's failure-mode table. graph's
// ErrPathInvalid/ErrPathOutOfBounds are wrapped rather than duplicated so
// callers can match on either layer's sentinel.
var (
	ErrPathInvalid             = fmt.Errorf("attribute: path invalid")
	ErrPathOutOfBounds         = fmt.Errorf("attribute: path index out of bounds")
	ErrSourceInvalid           = fmt.Errorf("attribute: malformed source")
	ErrSourceHasExtraFields    = fmt.Errorf("attribute: $source object has sibling keys")
	ErrValueNotFromComponent   = fmt.Errorf("attribute: attribute value does not belong to the named component")
	ErrSourceComponentNotFound = fmt.Errorf("attribute: source component not found")
	ErrDuplicateComponentName  = fmt.Errorf("attribute: component name is ambiguous")
	ErrFuncNotFound            = fmt.Errorf("attribute: subscription function not found")
	ErrAppendPastEnd           = fmt.Errorf("attribute: cannot write more than one element past the end of an array")
)
