package errcode

import "errors"

// Sentinel errors shared by the dal and service layers. User facing errors
// live in faucetjson; these never leave the process.
var (
	ErrNilGormDB     = errors.New("nil gorm db")
	ErrNilRecord     = errors.New("nil disbursement record when creating")
	ErrRecordTooLong = errors.New("record field exceeds column length")
)
