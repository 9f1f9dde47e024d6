package service

import (
	"testing"
	"time"

	"github.com/octopus-network/oct-faucet-server/dal/do"
	"github.com/octopus-network/oct-faucet-server/model"
)

const testWindow = 24 * time.Hour

func recordAt(t1 int64, tweetID string) *do.DisbursementRecord {
	rec := &do.DisbursementRecord{
		Account: "alice.testnet",
		Link:    "https://twitter.com/alice/status/" + tweetID,
		Receipt: "abc",
		Time:    t1,
	}
	if tweetID != "" {
		rec.TweetID = &tweetID
	}
	return rec
}

func TestCheckEligibility_NoRecord(t *testing.T) {
	decision := CheckEligibility(nil, "123", time.Unix(1700000000, 0), testWindow)
	if !decision.Allow {
		t.Errorf("expected Allow for account with no record, got %+v", decision)
	}
}

func TestCheckEligibility_CooldownActive(t *testing.T) {
	t1 := int64(1700000000)
	latest := recordAt(t1, "123")

	tests := []struct {
		name      string
		elapsed   time.Duration
		remaining time.Duration
	}{
		{"one_second_later", time.Second, testWindow - time.Second},
		{"one_hour_later", time.Hour, 23 * time.Hour},
		{"one_second_before_expiry", testWindow - time.Second, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Unix(t1, 0).Add(tt.elapsed)
			decision := CheckEligibility(latest, "456", now, testWindow)
			if decision.Allow {
				t.Fatalf("expected Deny within window, got Allow")
			}
			if decision.Reason != model.DenyCooldownActive {
				t.Errorf("reason = %v, want %v", decision.Reason, model.DenyCooldownActive)
			}
			if decision.Remaining != tt.remaining {
				t.Errorf("remaining = %v, want %v", decision.Remaining, tt.remaining)
			}
		})
	}
}

func TestCheckEligibility_WindowExpired(t *testing.T) {
	t1 := int64(1700000000)
	latest := recordAt(t1, "123")

	now := time.Unix(t1, 0).Add(testWindow + time.Second)
	decision := CheckEligibility(latest, "456", now, testWindow)
	if !decision.Allow {
		t.Errorf("expected Allow at window+1s with fresh tweet, got %+v", decision)
	}
}

func TestCheckEligibility_DuplicateTweet(t *testing.T) {
	t1 := int64(1700000000)
	latest := recordAt(t1, "123")

	t.Run("inside_window_cooldown_wins", func(t *testing.T) {
		now := time.Unix(t1, 0).Add(time.Hour)
		decision := CheckEligibility(latest, "123", now, testWindow)
		if decision.Allow || decision.Reason != model.DenyCooldownActive {
			t.Errorf("expected cooldown deny inside window, got %+v", decision)
		}
	})

	t.Run("after_window_same_tweet", func(t *testing.T) {
		now := time.Unix(t1, 0).Add(testWindow + time.Second)
		decision := CheckEligibility(latest, "123", now, testWindow)
		if decision.Allow || decision.Reason != model.DenyDuplicateTweet {
			t.Errorf("expected duplicate tweet deny after window, got %+v", decision)
		}
	})

	t.Run("after_window_fresh_tweet", func(t *testing.T) {
		now := time.Unix(t1, 0).Add(testWindow + time.Second)
		decision := CheckEligibility(latest, "789", now, testWindow)
		if !decision.Allow {
			t.Errorf("expected Allow for fresh tweet after window, got %+v", decision)
		}
	})
}

func TestCheckEligibility_UntrackedTweetID(t *testing.T) {
	// Records written by deployments that never tracked tweet ids must not
	// block a claim once the window expired.
	t1 := int64(1700000000)
	latest := recordAt(t1, "")

	now := time.Unix(t1, 0).Add(testWindow + time.Second)
	decision := CheckEligibility(latest, "123", now, testWindow)
	if !decision.Allow {
		t.Errorf("expected Allow for record without tweet id, got %+v", decision)
	}
}
