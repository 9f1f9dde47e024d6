package service

import (
	"time"

	"github.com/octopus-network/oct-faucet-server/dal/do"
	"github.com/octopus-network/oct-faucet-server/model"
)

// CheckEligibility decides whether a claim may proceed given the most recent
// record for the account (nil when the account has never been funded), the id
// of the tweet offered as proof, the current time and the cooldown window.
//
// The rules, in order:
//
//  1. An account with no record is always allowed.
//  2. An account funded less than window ago is denied with the remaining
//     wait.
//  3. An account past its window but reusing the tweet consumed by its last
//     claim is denied; a fresh tweet is required for every claim. Reuse of a
//     tweet consumed before the previous claim is not tracked.
//  4. Otherwise the claim is allowed.
//
// The function is pure: the caller supplies the record and the clock, which
// keeps it trivially testable.
func CheckEligibility(latest *do.DisbursementRecord, tweetID string, now time.Time, window time.Duration) model.Decision {
	if latest == nil {
		return model.Decision{Allow: true}
	}

	elapsed := now.Sub(time.Unix(latest.Time, 0))
	if elapsed < window {
		return model.Decision{
			Allow:     false,
			Reason:    model.DenyCooldownActive,
			Remaining: window - elapsed,
		}
	}

	if latest.TweetID != nil && *latest.TweetID == tweetID {
		return model.Decision{
			Allow:  false,
			Reason: model.DenyDuplicateTweet,
		}
	}

	return model.Decision{Allow: true}
}
