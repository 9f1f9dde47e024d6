package model

import "testing"

func TestParseTokenTarget(t *testing.T) {
	t.Run("test_1", func(t *testing.T) {
		target, err := ParseTokenTarget("oct.testnet:30000000000000000000")
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if target.ContractID != "oct.testnet" {
			t.Fatalf("unexpected contract %v", target.ContractID)
		}
		if target.Amount != "30000000000000000000" {
			t.Fatalf("unexpected amount %v", target.Amount)
		}
	})

	t.Run("test_2", func(t *testing.T) {
		invalid := []string{
			"",
			"oct.testnet",
			"oct.testnet:",
			":100",
			"oct.testnet:0",
			"oct.testnet:-5",
			"oct.testnet:ten",
		}
		for _, raw := range invalid {
			if _, err := ParseTokenTarget(raw); err == nil {
				t.Errorf("ParseTokenTarget(%q) = nil, want error", raw)
			}
		}
	})
}
