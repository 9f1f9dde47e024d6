package do

import "time"

// DisbursementRecord is one row per successful claim. Records are only ever
// inserted; nothing in the server updates or deletes them.
type DisbursementRecord struct {
	ID uint64 `gorm:"primaryKey"`
	// Account is the recipient of the disbursement.
	Account string `gorm:"index:idx_disbursement_account;type:varchar(100);not null"`
	// Link is the tweet URL the claimant submitted, kept for audit.
	Link string `gorm:"type:varchar(500);not null"`
	// Receipt holds the transaction hashes of the transfers, comma joined
	// when more than one target was funded.
	Receipt string `gorm:"type:varchar(500);not null"`
	// Time is the Unix timestamp (seconds) of disbursement completion.
	Time int64 `gorm:"not null"`
	// TweetID is the id of the consumed proof tweet. Nullable because
	// early deployments did not track it.
	TweetID *string `gorm:"type:varchar(40)"`
	// SourceIP is the request origin, audit only.
	SourceIP  *string `gorm:"type:varchar(60)"`
	CreatedAt time.Time
}
