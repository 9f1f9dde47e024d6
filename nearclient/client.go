package nearclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const (
	defaultTimeout = 30 * time.Second

	// registeredCacheSize bounds the cache of recipients already known to
	// hold a storage deposit on a token contract.
	registeredCacheSize = 4096
)

// Errors returned by the gateway operations. The dispenser maps these to
// user visible messages.
var (
	ErrAccountNotExist   = errors.New("account does not exist on chain")
	ErrTransactionFailed = errors.New("transaction execution failed")
)

// Config holds the options for a NEAR RPC client.
type Config struct {
	// NodeRPCURL is the JSON-RPC endpoint of the NEAR node.
	NodeRPCURL string

	// SignerID is the faucet account that signs and funds every
	// registration and transfer transaction.
	SignerID string

	// PrivateKey is the signer's key in "ed25519:<base58>" encoding.
	PrivateKey string

	// Gas attached to every function call, in gas units.
	Gas uint64

	Timeout time.Duration
}

// Client is a NEAR JSON-RPC client bound to a single signing identity.
//
// All state changing calls are serialized through an internal mutex: the
// faucet identity has one access key, and concurrent submissions with
// guessed nonces would race each other on chain. Request handling stays
// concurrent; only transaction submission is single file.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	keyPair    *KeyPair

	// txMtx serializes nonce acquisition and transaction submission for
	// the signing identity.
	txMtx sync.Mutex

	// registered caches contract/account pairs that are known to hold a
	// storage deposit, saving one view call per repeat recipient.
	registered *lru.Cache

	requestID uint64
}

// New creates a NEAR RPC client. The private key is parsed eagerly so a
// malformed key fails at startup, not on the first claim.
func New(cfg *Config) (*Client, error) {
	if cfg.NodeRPCURL == "" {
		return nil, errors.New("node RPC URL is required")
	}
	if cfg.SignerID == "" {
		return nil, errors.New("signer account id is required")
	}

	keyPair, err := ParseKeyPair(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid faucet private key: %v", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	registered, err := lru.New(registeredCacheSize)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		keyPair:    keyPair,
		registered: registered,
	}, nil
}

// SignerID returns the faucet account this client signs for.
func (c *Client) SignerID() string {
	return c.cfg.SignerID
}

// rpcError is the error member of a JSON-RPC response. Older nodes report
// handler errors through Data, newer ones through Cause.Name.
type rpcError struct {
	Name    string `json:"name"`
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Cause   struct {
		Name string `json:"name"`
	} `json:"cause"`
	Data json.RawMessage `json:"data"`
}

func (e *rpcError) Error() string {
	if e.Cause.Name != "" {
		return fmt.Sprintf("rpc error %v: %v (%v)", e.Code, e.Message, e.Cause.Name)
	}
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %v: %v: %v", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("rpc error %v: %v", e.Code, e.Message)
}

// isUnknownAccount reports whether the error marks a nonexistent account.
func (e *rpcError) isUnknownAccount() bool {
	if e.Cause.Name == "UNKNOWN_ACCOUNT" {
		return true
	}
	return strings.Contains(string(e.Data), "does not exist")
}

// call performs one JSON-RPC request and decodes the result member into
// result when it is non-nil.
func (c *Client) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	payload, err := json.Marshal(struct {
		JSONRPC string      `json:"jsonrpc"`
		ID      uint64      `json:"id"`
		Method  string      `json:"method"`
		Params  interface{} `json:"params"`
	}{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&c.requestID, 1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.NodeRPCURL,
		bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	log.Tracef("RPC request to %v: %v", c.cfg.NodeRPCURL, method)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("malformed rpc response: %v", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("malformed rpc result: %v", err)
		}
	}
	return nil
}

// yocto converts a decimal string to the big integer the wire format needs.
func yocto(amount string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid token amount %q", amount)
	}
	return v, nil
}
