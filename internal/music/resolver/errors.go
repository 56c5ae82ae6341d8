package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies resolution failures so callers can act on them without
// string matching.
type Kind int

const (
	KindNotFound Kind = iota
	KindAccessRestricted
	KindUnsupported
	KindNetwork
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessRestricted:
		return "access_restricted"
	case KindUnsupported:
		return "unsupported"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is a resolution failure with a structured kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from a resolution error. The second return is
// false when err is not a resolver error.
func KindOf(err error) (Kind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}

// IsAccessRestricted reports whether err indicates an age, privacy or
// region restriction that elevated credentials might bypass.
func IsAccessRestricted(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindAccessRestricted
}

var restrictedMarkers = []string{
	"age-restricted",
	"age restricted",
	"sign in to confirm",
	"login required",
	"private video",
	"members-only",
	"available in your country",
}

var notFoundMarkers = []string{
	"video unavailable",
	"not found",
	"does not exist",
	"no video found",
	"has been removed",
}

var unsupportedMarkers = []string{
	"unsupported url",
	"no suitable format",
	"is not a valid url",
	"live event",
}

// classify maps extractor output to a structured kind. Upstream tools only
// expose failure reasons as message text, so keyword matching remains the
// documented fallback heuristic.
func classify(op, output string, err error) error {
	lower := strings.ToLower(output)
	if lower == "" && err != nil {
		lower = strings.ToLower(err.Error())
	}

	kind := KindNetwork
	switch {
	case containsAny(lower, restrictedMarkers):
		kind = KindAccessRestricted
	case containsAny(lower, notFoundMarkers):
		kind = KindNotFound
	case containsAny(lower, unsupportedMarkers):
		kind = KindUnsupported
	}

	return &Error{Kind: kind, Op: op, Err: err}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
