package youtube

import (
	"errors"
	"fmt"
	"time"
)

// FetchErrorKind enumerates the typed outcomes of a failed page fetch.
type FetchErrorKind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown FetchErrorKind = iota
	// KindQuotaExceeded means the daily API budget is spent. Fatal to a
	// run; the user must wait for the published reset time.
	KindQuotaExceeded
	// KindRateLimited means a local or remote rate gate denied the call.
	// Transient; retryable after the reported wait.
	KindRateLimited
	// KindAuthExpired means credentials were rejected (HTTP 401/403).
	// Fatal to a run; credentials must be refreshed out-of-band.
	KindAuthExpired
	// KindNetwork is a transport failure. Transient; retryable with
	// backoff.
	KindNetwork
)

// String returns the kind's display name.
func (k FetchErrorKind) String() string {
	switch k {
	case KindQuotaExceeded:
		return "quota-exceeded"
	case KindRateLimited:
		return "rate-limited"
	case KindAuthExpired:
		return "auth-expired"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// FetchError is the typed outcome of a failed catalog call.
// Use errors.As() to extract it:
//
//	var fetchErr *youtube.FetchError
//	if errors.As(err, &fetchErr) && fetchErr.Kind == youtube.KindAuthExpired {
//		// halt the run, credentials must be refreshed
//	}
type FetchError struct {
	// Kind classifies the failure.
	Kind FetchErrorKind
	// ResetAt is when the condition clears, when known (quota reset,
	// rate window end).
	ResetAt time.Time
	// Err is the underlying error, if any.
	Err error
}

// Error returns a string representation of the fetch error.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("youtube: fetch failed (%s): %v", e.Kind, e.Err)
	}
	if !e.ResetAt.IsZero() {
		return fmt.Sprintf("youtube: fetch failed (%s), resets at %s", e.Kind, e.ResetAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("youtube: fetch failed (%s)", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *FetchError) Unwrap() error { return e.Err }

// IsTransient reports whether the failure is worth retrying with backoff.
func (e *FetchError) IsTransient() bool {
	return e.Kind == KindNetwork || e.Kind == KindRateLimited
}

// IsFatal reports whether the failure must end the run immediately.
func (e *FetchError) IsFatal() bool {
	return e.Kind == KindQuotaExceeded || e.Kind == KindAuthExpired
}

// IsQuotaExceeded reports whether err is a fetch failure caused by an
// exhausted daily quota.
func IsQuotaExceeded(err error) bool {
	return errKind(err) == KindQuotaExceeded
}

// IsAuthExpired reports whether err is a fetch failure caused by
// rejected credentials.
func IsAuthExpired(err error) bool {
	return errKind(err) == KindAuthExpired
}

// IsRateLimited reports whether err is a fetch failure caused by a rate
// gate denial.
func IsRateLimited(err error) bool {
	return errKind(err) == KindRateLimited
}

func errKind(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
