package locator

import (
	"errors"
	"strconv"
	"strings"
)

// Kind selects how a claim's stored location string is presented.
type Kind uint8

const (
	// KindInvalid is the zero value and is rejected at configuration time.
	KindInvalid Kind = iota
	// KindVerbatim presents the stored location string as-is.
	KindVerbatim
	// KindGateway prepends the configured gateway prefix to the stored
	// location string.
	KindGateway
)

// ErrInvalidKind is returned when a claim is configured with an
// unrecognized locator kind.
var ErrInvalidKind = errors.New("invalid locator kind")

// Valid reports whether k is a recognized, usable locator kind.
func (k Kind) Valid() bool {
	return k == KindVerbatim || k == KindGateway
}

// String returns the kind's config-file spelling.
func (k Kind) String() string {
	switch k {
	case KindVerbatim:
		return "verbatim"
	case KindGateway:
		return "gateway"
	default:
		return "invalid"
	}
}

// Build constructs the locator string for one issued unit.
//
// The base location is the concatenation of parts — Extend appends segments
// without rewriting earlier ones, so long locators are built incrementally.
// When identical is false, each unit gets an indexed variant: the 1-based
// claim-relative index joined with "/".
func Build(kind Kind, gatewayPrefix string, parts []string, identical bool, rel uint32) string {
	var sb strings.Builder
	if kind == KindGateway {
		sb.WriteString(gatewayPrefix)
	}
	for _, p := range parts {
		sb.WriteString(p)
	}
	if !identical {
		sb.WriteString("/")
		sb.WriteString(strconv.FormatUint(uint64(rel)+1, 10))
	}
	return sb.String()
}
