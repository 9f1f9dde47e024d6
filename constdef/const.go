package constdef

const (
	// MinAccountLength and MaxAccountLength bound a NEAR named account id,
	// suffix included.
	MinAccountLength = 2
	MaxAccountLength = 64

	MaxLinkLength    = 500
	MaxReceiptLength = 500
	MaxTweetIDLength = 40
)

const (
	// ReceiptDelimiter joins the transaction hashes of a multi-target
	// disbursement into the single receipt column.
	ReceiptDelimiter = ","

	// DefaultRecentRecordNum is the number of records returned by the
	// listing endpoint when the caller does not ask for a specific amount.
	DefaultRecentRecordNum = 5
	MaxRecentRecordNum     = 100
)
