package faucetjson

import (
	"fmt"
	"time"
)

// APIErrorCode identifies a kind of user visible faucet error.
type APIErrorCode int

const (
	ErrCodeMissingParams APIErrorCode = 100 + iota
	ErrCodeInvalidTweetURL
	ErrCodeTweetFetch
	ErrCodeAccountNotFound
	ErrCodeAccountNotExist
	ErrCodeCooldownActive
	ErrCodeDuplicateTweet
	ErrCodeTransferFailed
	ErrCodeInternal
)

// APIError carries the message eventually shown to the claimant. It is the
// only error type that crosses the reporting boundary; everything else is
// mapped to one of these by the dispenser.
type APIError struct {
	Code    APIErrorCode `json:"code"`
	Message string       `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// User visible faucet errors. The messages are part of the public contract
// and must stay stable.
var (
	ErrMissingParams = &APIError{
		Code:    ErrCodeMissingParams,
		Message: "Missing parameter(s)",
	}
	ErrInvalidTweetURL = &APIError{
		Code:    ErrCodeInvalidTweetURL,
		Message: "Twitter url invalid",
	}
	ErrTweetFetch = &APIError{
		Code:    ErrCodeTweetFetch,
		Message: "Unable to fetch tweet",
	}
	ErrAccountNotFound = &APIError{
		Code:    ErrCodeAccountNotFound,
		Message: "Not found near account",
	}
	ErrAccountNotExist = &APIError{
		Code:    ErrCodeAccountNotExist,
		Message: "Account not found",
	}
	ErrDuplicateTweet = &APIError{
		Code:    ErrCodeDuplicateTweet,
		Message: "Tweet id was used last time",
	}
	ErrTransferFailed = &APIError{
		Code:    ErrCodeTransferFailed,
		Message: "Token transfer failed",
	}
	ErrInternal = &APIError{
		Code:    ErrCodeInternal,
		Message: "Internal error",
	}
)

// ErrCooldownActiveWithRemaining builds the cooldown error with the remaining
// wait broken down into hours, minutes and seconds.
func ErrCooldownActiveWithRemaining(remaining time.Duration) *APIError {
	h := int(remaining / time.Hour)
	m := int(remaining/time.Minute) % 60
	s := int(remaining/time.Second) % 60
	return &APIError{
		Code:    ErrCodeCooldownActive,
		Message: fmt.Sprintf("%dh %dm %ds until next allowance", h, m, s),
	}
}
