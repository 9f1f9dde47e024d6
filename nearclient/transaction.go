package nearclient

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/near/borsh-go"
)

const (
	// DefaultGas is the gas attached to function calls when the
	// configuration does not specify one: 300 Tgas, the per-transaction
	// maximum.
	DefaultGas uint64 = 300_000_000_000_000

	// OneYocto is the 1 yoctoNEAR deposit NEP-141 requires on
	// ft_transfer calls.
	OneYocto = "1"
)

// ed25519KeyType is the discriminant of ed25519 keys and signatures in the
// NEAR wire format.
const ed25519KeyType uint8 = 0

// The types below mirror the borsh schema of a NEAR transaction. Only the
// FunctionCall action is ever constructed by this client; the remaining
// variants exist to keep the enum discriminants aligned with the protocol.
type publicKey struct {
	KeyType uint8
	Data    [32]byte
}

type signature struct {
	KeyType uint8
	Data    [64]byte
}

type createAccount struct{}

type deployContract struct {
	Code []byte
}

type functionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    big.Int
}

type transferAction struct {
	Deposit big.Int
}

type stakeAction struct {
	Stake     big.Int
	PublicKey publicKey
}

type addKey struct {
	PublicKey publicKey
	AccessKey []byte
}

type deleteKey struct {
	PublicKey publicKey
}

type deleteAccount struct {
	BeneficiaryID string
}

type action struct {
	Enum           borsh.Enum `borsh_enum:"true"`
	CreateAccount  createAccount
	DeployContract deployContract
	FunctionCall   functionCall
	Transfer       transferAction
	Stake          stakeAction
	AddKey         addKey
	DeleteKey      deleteKey
	DeleteAccount  deleteAccount
}

// actionFunctionCall is the enum discriminant of the FunctionCall variant.
const actionFunctionCall borsh.Enum = 2

type transaction struct {
	SignerID   string
	PublicKey  publicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []action
}

type signedTransaction struct {
	Transaction transaction
	Signature   signature
}

// signTransaction serializes tx, hashes it and signs the hash with the
// faucet key.
func (c *Client) signTransaction(tx *transaction) ([]byte, error) {
	message, err := borsh.Serialize(*tx)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(message)

	var sig signature
	sig.KeyType = ed25519KeyType
	copy(sig.Data[:], ed25519.Sign(c.keyPair.PrivateKey, hash[:]))

	return borsh.Serialize(signedTransaction{
		Transaction: *tx,
		Signature:   sig,
	})
}

// broadcastResult is the subset of a broadcast_tx_commit result the faucet
// cares about.
type broadcastResult struct {
	Status struct {
		SuccessValue *string         `json:"SuccessValue"`
		Failure      json.RawMessage `json:"Failure"`
	} `json:"status"`
	Transaction struct {
		Hash string `json:"hash"`
	} `json:"transaction"`
}

// FunctionCall submits one signed function call transaction and waits for it
// to be executed. It returns the transaction hash on success. A single
// attempt is made; there is no internal retry.
//
// Submissions are serialized: the access key nonce is read fresh under the
// transaction mutex, so concurrent claims cannot race the single faucet
// identity.
func (c *Client) FunctionCall(ctx context.Context, contractID, methodName string, args interface{}, deposit *big.Int) (string, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return "", err
	}

	gas := c.cfg.Gas
	if gas == 0 {
		gas = DefaultGas
	}

	c.txMtx.Lock()
	defer c.txMtx.Unlock()

	nonce, blockHash, err := c.viewAccessKey(ctx)
	if err != nil {
		return "", err
	}

	tx := transaction{
		SignerID: c.cfg.SignerID,
		PublicKey: publicKey{
			KeyType: ed25519KeyType,
			Data:    c.keyPair.publicKeyData(),
		},
		Nonce:      nonce + 1,
		ReceiverID: contractID,
		BlockHash:  blockHash,
		Actions: []action{{
			Enum: actionFunctionCall,
			FunctionCall: functionCall{
				MethodName: methodName,
				Args:       argsJSON,
				Gas:        gas,
				Deposit:    *deposit,
			},
		}},
	}

	signed, err := c.signTransaction(&tx)
	if err != nil {
		return "", err
	}

	log.Debugf("Submitting %v.%v for %v (nonce %v)", contractID, methodName,
		c.cfg.SignerID, tx.Nonce)

	var result broadcastResult
	err = c.call(ctx, "broadcast_tx_commit",
		[]string{base64.StdEncoding.EncodeToString(signed)}, &result)
	if err != nil {
		return "", err
	}

	if len(result.Status.Failure) > 0 {
		log.Errorf("Transaction %v failed: %v", result.Transaction.Hash,
			string(result.Status.Failure))
		return "", fmt.Errorf("%w: %v", ErrTransactionFailed, string(result.Status.Failure))
	}

	return result.Transaction.Hash, nil
}
