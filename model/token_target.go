package model

import (
	"fmt"
	"math/big"
	"strings"
)

// TokenTarget is one (token contract, amount) pair the faucet disburses to a
// claimant. A deployment configures one or more targets; every successful
// claim funds all of them.
type TokenTarget struct {
	// ContractID is the account id of the NEP-141 token contract.
	ContractID string

	// Amount is the transfer amount in the token's smallest unit, kept as
	// a decimal string because it routinely exceeds 64 bits.
	Amount string

	// StorageDeposit is the deposit attached to a storage_deposit call
	// when the recipient is not yet registered on ContractID, in
	// yoctoNEAR.
	StorageDeposit *big.Int
}

// ParseTokenTarget parses the "contract:amount" form used by the target
// configuration option. The storage deposit is filled in by the caller from
// its own configuration.
func ParseTokenTarget(s string) (*TokenTarget, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("malformed target %q, expect contract:amount", s)
	}
	amount, ok := new(big.Int).SetString(parts[1], 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("malformed target amount %q, expect a positive decimal", parts[1])
	}
	return &TokenTarget{
		ContractID: parts[0],
		Amount:     amount.String(),
	}, nil
}
