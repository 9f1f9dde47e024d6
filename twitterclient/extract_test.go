package twitterclient

import "testing"

func TestExtractTweetID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		id   string
		ok   bool
	}{
		{"twitter_url", "https://twitter.com/alice/status/1456789012345678901", "1456789012345678901", true},
		{"x_url", "https://x.com/alice/status/42?s=20", "42", true},
		{"upper_case", "https://twitter.com/alice/STATUS/42", "42", true},
		{"no_id", "https://example.com/no-id-here", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractTweetID(tt.url)
			if ok != tt.ok || id != tt.id {
				t.Errorf("ExtractTweetID(%q) = (%q, %v), want (%q, %v)",
					tt.url, id, ok, tt.id, tt.ok)
			}
		})
	}
}

func TestExtractAccount(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		account string
		ok      bool
	}{
		{"bracketed", "Claiming tokens for [alice.testnet] on the faucet", "alice.testnet", true},
		{"bracketed_spaces", "[ bob.testnet] please", "bob.testnet", true},
		{"colon_label", "account: carol.testnet thanks", "carol.testnet", true},
		{"plain", "send to dave.testnet", "dave.testnet", true},
		{"subaccount", "gimme [app.frank.testnet]", "app.frank.testnet", true},
		{"mixed_case", "Send to Alice.Testnet", "alice.testnet", true},
		{"no_account", "no recognizable token in this tweet", "", false},
		{"wrong_suffix", "my account is alice.near", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, ok := ExtractAccount(tt.text, ".testnet")
			if ok != tt.ok || account != tt.account {
				t.Errorf("ExtractAccount(%q) = (%q, %v), want (%q, %v)",
					tt.text, account, ok, tt.account, tt.ok)
			}
		})
	}
}

func TestExtractAccount_StrategyOrder(t *testing.T) {
	// When both a bracketed and a plain account appear, the bracketed one
	// wins regardless of position.
	text := "first.testnet then [second.testnet]"
	account, ok := ExtractAccount(text, ".testnet")
	if !ok || account != "second.testnet" {
		t.Errorf("ExtractAccount(%q) = (%q, %v), want second.testnet", text, account, ok)
	}
}
