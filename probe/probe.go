// Package probe sends single ICMP echo requests.
package probe

import (
	"time"
)

// Result is the outcome of a single echo attempt. Err is set for transport
// failures (no route, permission denied, unresolvable target); callers
// treat those the same as a missing reply.
type Result struct {
	Replied bool
	RTT     time.Duration
	Err     error
}

// TimedOut reports whether no reply arrived, for whatever reason.
func (r Result) TimedOut() bool {
	return !r.Replied
}
