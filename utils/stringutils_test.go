package utils

import (
	"testing"

	"github.com/octopus-network/oct-faucet-server/chaincfg"
)

func TestIsBlank(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"alice", false},
		{" alice ", false},
	}
	for _, test := range tests {
		if got := IsBlank(test.in); got != test.want {
			t.Errorf("IsBlank(%q) = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestCheckAccountValidity(t *testing.T) {
	params := &chaincfg.TestNetParams

	valid := []string{
		"alice.testnet",
		"a1.testnet",
		"under_score.testnet",
		"dash-ed.testnet",
		"sub.account.testnet",
	}
	for _, account := range valid {
		if err := CheckAccountValidity(account, params); err != nil {
			t.Errorf("CheckAccountValidity(%q) = %v, want nil", account, err)
		}
	}

	invalid := []string{
		"",
		"a",
		"alice.near",
		"Alice.testnet",
		"ali ce.testnet",
		"alice..testnet",
		".alice.testnet",
		"alice.-sub.testnet",
	}
	for _, account := range invalid {
		if err := CheckAccountValidity(account, params); err == nil {
			t.Errorf("CheckAccountValidity(%q) = nil, want error", account)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	t.Run("test_1", func(t *testing.T) {
		got, err := NormalizeAddress("localhost", "3088")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "localhost:3088" {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("test_2", func(t *testing.T) {
		got, err := NormalizeAddress("127.0.0.1:8000", "3088")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "127.0.0.1:8000" {
			t.Fatalf("got %v", got)
		}
	})
}
