package repositories

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by single-row lookups when no row matches.
var ErrNotFound = errors.New("record not found")

// DownstreamError wraps a failed database read. Code and Details carry the
// driver's error code and detail text when the driver exposes them.
type DownstreamError struct {
	Op      string `json:"op"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *DownstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *DownstreamError) Unwrap() error {
	return e.Err
}

// IsDownstream reports whether err is or wraps a DownstreamError.
func IsDownstream(err error) bool {
	var de *DownstreamError
	return errors.As(err, &de)
}
