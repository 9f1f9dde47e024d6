package faucetjson

// RequestCmd is the body of a disbursement request. URL points at the tweet
// that proves control of the receiving account.
type RequestCmd struct {
	URL string `json:"url"`
}

// RequestResult is the uniform envelope returned for every disbursement
// request, success or failure. The transport status is always 200; failure
// information travels in the envelope itself.
type RequestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RecordResult is one disbursement record as exposed by the listing endpoint.
type RecordResult struct {
	Account string `json:"account"`
	Link    string `json:"link"`
	Receipt string `json:"receipt"`
	Time    int64  `json:"time"`
}

// RecordsResult is the response of the listing endpoint.
type RecordsResult struct {
	Data  []RecordResult `json:"data"`
	Total int64          `json:"total"`
}

// LiveNotification is pushed to websocket subscribers whenever a disbursement
// completes.
type LiveNotification struct {
	Account string `json:"account"`
	Link    string `json:"link"`
	Receipt string `json:"receipt"`
	Time    int64  `json:"time"`
}

// VersionResult models objects included in the version response.
type VersionResult struct {
	VersionString string `json:"versionString"`
}
