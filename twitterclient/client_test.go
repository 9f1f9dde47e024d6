package twitterclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/octopus-network/oct-faucet-server/chaincfg"
	"github.com/octopus-network/oct-faucet-server/faucetjson"
)

// newTestServer fakes the two twitter endpoints the client touches. tweets
// maps tweet id to tweet text.
func newTestServer(t *testing.T, tweets map[string]string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/1.1/guest/activate.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"guest_token":"guest-token-1"}`)
	})
	mux.HandleFunc("/1.1/statuses/show.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-guest-token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		text, ok := tweets[r.URL.Query().Get("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errors":[{"code":144}]}`)
			return
		}
		fmt.Fprintf(w, `{"text":%q}`, text)
	})
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	client, err := New(&Config{
		APIBaseURL: server.URL,
		BearerAuth: "Bearer test-token",
	}, &chaincfg.TestNetParams)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestClient_GetTweet(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"42": "Claiming tokens for [alice.testnet]",
	})
	defer server.Close()
	client := newTestClient(t, server)

	text, err := client.GetTweet(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetTweet() error = %v", err)
	}
	if text != "Claiming tokens for [alice.testnet]" {
		t.Errorf("GetTweet() = %q", text)
	}
}

func TestClient_ResolveProof(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"42": "Claiming tokens for [alice.testnet]",
		"43": "no account in this one",
		"44": "Claiming tokens for [a..b.testnet]",
	})
	defer server.Close()
	client := newTestClient(t, server)

	t.Run("success", func(t *testing.T) {
		id, account, err := client.ResolveProof(context.Background(),
			"https://twitter.com/alice/status/42")
		if err != nil {
			t.Fatalf("ResolveProof() error = %v", err)
		}
		if id != "42" || account != "alice.testnet" {
			t.Errorf("ResolveProof() = (%q, %q)", id, account)
		}
	})

	t.Run("invalid_url", func(t *testing.T) {
		_, _, err := client.ResolveProof(context.Background(),
			"https://example.com/no-id-here")
		if !errors.Is(err, faucetjson.ErrInvalidTweetURL) {
			t.Errorf("ResolveProof() error = %v, want ErrInvalidTweetURL", err)
		}
	})

	t.Run("account_not_found", func(t *testing.T) {
		_, _, err := client.ResolveProof(context.Background(),
			"https://twitter.com/alice/status/43")
		if !errors.Is(err, faucetjson.ErrAccountNotFound) {
			t.Errorf("ResolveProof() error = %v, want ErrAccountNotFound", err)
		}
	})

	t.Run("malformed_account", func(t *testing.T) {
		// The extraction patterns match this, but it is not a valid
		// named account and must never reach the chain.
		_, _, err := client.ResolveProof(context.Background(),
			"https://twitter.com/alice/status/44")
		if !errors.Is(err, faucetjson.ErrAccountNotFound) {
			t.Errorf("ResolveProof() error = %v, want ErrAccountNotFound", err)
		}
	})

	t.Run("missing_tweet", func(t *testing.T) {
		_, _, err := client.ResolveProof(context.Background(),
			"https://twitter.com/alice/status/9999")
		if !errors.Is(err, faucetjson.ErrTweetFetch) {
			t.Errorf("ResolveProof() error = %v, want ErrTweetFetch", err)
		}
	})
}

func TestNew_RequiresBearerAuth(t *testing.T) {
	if _, err := New(&Config{}, &chaincfg.TestNetParams); err == nil {
		t.Error("New() with empty bearer auth should fail")
	}
}
