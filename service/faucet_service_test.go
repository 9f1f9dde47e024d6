package service

import (
	"context"
	"strings"
	"testing"

	"github.com/octopus-network/oct-faucet-server/constdef"
	"github.com/octopus-network/oct-faucet-server/dal/do"
	"github.com/octopus-network/oct-faucet-server/errcode"
)

// These tests exercise the validation layer of the service; they never reach
// the DAO so no database is needed.

func TestLatestByAccountValidation(t *testing.T) {
	svc := GetFaucetService()
	ctx := context.Background()

	t.Run("test_1", func(t *testing.T) {
		if _, err := svc.LatestByAccount(ctx, nil, "  "); err == nil {
			t.Fatalf("expected error for blank account")
		}
	})

	t.Run("test_2", func(t *testing.T) {
		long := strings.Repeat("a", constdef.MaxAccountLength+1)
		if _, err := svc.LatestByAccount(ctx, nil, long); err == nil {
			t.Fatalf("expected error for overlong account")
		}
	})
}

func TestCreateRecordValidation(t *testing.T) {
	svc := GetFaucetService()
	ctx := context.Background()

	t.Run("test_1", func(t *testing.T) {
		if _, err := svc.CreateRecord(ctx, nil, nil); err != errcode.ErrNilRecord {
			t.Fatalf("expected ErrNilRecord, got %v", err)
		}
	})

	t.Run("test_2", func(t *testing.T) {
		record := &do.DisbursementRecord{Account: "alice.testnet"}
		if _, err := svc.CreateRecord(ctx, nil, record); err == nil {
			t.Fatalf("expected error for missing receipt")
		}
	})

	t.Run("test_3", func(t *testing.T) {
		record := &do.DisbursementRecord{
			Account: "alice.testnet",
			Receipt: strings.Repeat("x", constdef.MaxReceiptLength+1),
		}
		if _, err := svc.CreateRecord(ctx, nil, record); err != errcode.ErrRecordTooLong {
			t.Fatalf("expected ErrRecordTooLong, got %v", err)
		}
	})

	t.Run("test_4", func(t *testing.T) {
		// A valid record with no database reaches the DAO, which rejects
		// the nil handle.
		record := &do.DisbursementRecord{
			Account: "alice.testnet",
			Receipt: "FakeTx1",
			Time:    1000,
		}
		if _, err := svc.CreateRecord(ctx, nil, record); err != errcode.ErrNilGormDB {
			t.Fatalf("expected ErrNilGormDB, got %v", err)
		}
	})
}
