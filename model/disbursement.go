package model

// Disbursement describes one completed claim. It is the payload handed to
// dispenser notification subscribers, such as the websocket live feed.
type Disbursement struct {
	Account string `json:"account"`
	Link    string `json:"link"`
	Receipt string `json:"receipt"`
	Time    int64  `json:"time"`
	TweetID string `json:"tweet_id"`
}
