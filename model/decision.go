package model

import (
	"fmt"
	"time"
)

// DenyReason enumerates why an eligibility check denied a claim.
type DenyReason int

const (
	DenyCooldownActive DenyReason = iota
	DenyDuplicateTweet
)

// denyReasonStrings is a map of deny reasons back to their constant names for
// pretty printing.
var denyReasonStrings = map[DenyReason]string{
	DenyCooldownActive: "DenyCooldownActive",
	DenyDuplicateTweet: "DenyDuplicateTweet",
}

// String returns the DenyReason in human-readable form.
func (r DenyReason) String() string {
	if s, ok := denyReasonStrings[r]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Deny Reason (%d)", int(r))
}

// Decision is the outcome of an eligibility check. When Allow is false,
// Reason says why; Remaining is only meaningful for DenyCooldownActive and
// holds the time left until the next allowance.
type Decision struct {
	Allow     bool
	Reason    DenyReason
	Remaining time.Duration
}
