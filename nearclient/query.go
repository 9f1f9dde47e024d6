package nearclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// queryRequest is the parameter object of the "query" RPC method.
type queryRequest struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality"`
	AccountID   string `json:"account_id"`
	PublicKey   string `json:"public_key,omitempty"`
	MethodName  string `json:"method_name,omitempty"`
	ArgsBase64  string `json:"args_base64,omitempty"`
}

// ViewAccount checks that accountID exists on chain. ErrAccountNotExist is
// returned for unknown accounts; any other failure is returned as is.
func (c *Client) ViewAccount(ctx context.Context, accountID string) error {
	err := c.call(ctx, "query", &queryRequest{
		RequestType: "view_account",
		Finality:    "final",
		AccountID:   accountID,
	}, nil)
	if err != nil {
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) && rpcErr.isUnknownAccount() {
			return ErrAccountNotExist
		}
		return err
	}
	return nil
}

// accessKeyView is the result of a view_access_key query. The block hash at
// the top level is recent enough to anchor a transaction.
type accessKeyView struct {
	Nonce     uint64 `json:"nonce"`
	BlockHash string `json:"block_hash"`
	Error     string `json:"error"`
}

// viewAccessKey returns the current nonce of the signer's access key and a
// recent block hash to build the next transaction on.
func (c *Client) viewAccessKey(ctx context.Context) (uint64, [32]byte, error) {
	var blockHash [32]byte

	var view accessKeyView
	err := c.call(ctx, "query", &queryRequest{
		RequestType: "view_access_key",
		Finality:    "final",
		AccountID:   c.cfg.SignerID,
		PublicKey:   c.keyPair.PublicKeyString(),
	}, &view)
	if err != nil {
		return 0, blockHash, err
	}
	if view.Error != "" {
		return 0, blockHash, fmt.Errorf("view_access_key: %v", view.Error)
	}

	raw, err := base58.Decode(view.BlockHash)
	if err != nil || len(raw) != len(blockHash) {
		return 0, blockHash, fmt.Errorf("malformed block hash %q", view.BlockHash)
	}
	copy(blockHash[:], raw)

	return view.Nonce, blockHash, nil
}

// callFunctionResult is the result of a call_function query. Result holds
// the raw bytes the contract method returned, which for view methods is
// JSON.
type callFunctionResult struct {
	Result []int  `json:"result"`
	Error  string `json:"error"`
}

func (r *callFunctionResult) bytes() []byte {
	out := make([]byte, len(r.Result))
	for i, b := range r.Result {
		out[i] = byte(b)
	}
	return out
}

// viewFunction invokes a view method on a contract and returns the raw
// result bytes.
func (c *Client) viewFunction(ctx context.Context, contractID, methodName string, args interface{}) ([]byte, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	var result callFunctionResult
	err = c.call(ctx, "query", &queryRequest{
		RequestType: "call_function",
		Finality:    "final",
		AccountID:   contractID,
		MethodName:  methodName,
		ArgsBase64:  base64.StdEncoding.EncodeToString(argsJSON),
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%v.%v: %v", contractID, methodName, result.Error)
	}
	return result.bytes(), nil
}

// StorageBalanceOf reports whether accountID holds a storage deposit on the
// token contract. An absent registration is reported by the contract as a
// JSON null.
func (c *Client) StorageBalanceOf(ctx context.Context, contractID, accountID string) (bool, error) {
	raw, err := c.viewFunction(ctx, contractID, "storage_balance_of",
		map[string]string{"account_id": accountID})
	if err != nil {
		return false, err
	}

	var balance json.RawMessage
	if err := json.Unmarshal(raw, &balance); err != nil {
		return false, fmt.Errorf("malformed storage_balance_of result %q", raw)
	}
	return string(balance) != "null", nil
}
