package faucetserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/octopus-network/oct-faucet-server/faucetjson"
	"github.com/octopus-network/oct-faucet-server/model"
)

// fakeDispatcher records the claim it was handed and replies with canned
// results.
type fakeDispatcher struct {
	lastURL      string
	lastSourceIP string
	result       *faucetjson.RequestResult
	records      *faucetjson.RecordsResult
	lastNum      int
	panicNext    bool
}

func (d *fakeDispatcher) Handle(_ context.Context, tweetURL, sourceIP string) *faucetjson.RequestResult {
	d.lastURL = tweetURL
	d.lastSourceIP = sourceIP
	if d.panicNext {
		d.panicNext = false
		panic("dispatcher blew up")
	}
	if d.result != nil {
		return d.result
	}
	return &faucetjson.RequestResult{Success: true}
}

func (d *fakeDispatcher) RecentRecords(_ context.Context, num int) (*faucetjson.RecordsResult, error) {
	d.lastNum = num
	if d.records != nil {
		return d.records, nil
	}
	return &faucetjson.RecordsResult{Data: []faucetjson.RecordResult{}}, nil
}

func newTestServer(t *testing.T, dispatcher ClaimDispatcher) (*FaucetServer, *httptest.Server) {
	t.Helper()

	svr, err := NewFaucetServer(&ConfigFaucetServer{
		DisableTLS:      true,
		ListenersString: []string{"127.0.0.1:0"},
		MaxClients:      10,
		MaxWebsockets:   10,
	}, dispatcher)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	httpSrv := httptest.NewServer(svr.handler())
	t.Cleanup(httpSrv.Close)
	t.Cleanup(func() { svr.Stop() })
	svr.ntfnMgr.Start()
	// Listeners were opened by NewFaucetServer; requests go through the
	// httptest server instead.

	return svr, httpSrv
}

func postRequest(t *testing.T, url string, body interface{}, headers map[string]string) (*http.Response, *faucetjson.RequestResult) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var result faucetjson.RequestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, &result
}

func TestHandleRequest(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	_, httpSrv := newTestServer(t, dispatcher)

	t.Run("test_1", func(t *testing.T) {
		resp, result := postRequest(t, httpSrv.URL+"/api/request",
			&faucetjson.RequestCmd{URL: "https://twitter.com/u/status/111"},
			map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %v", resp.StatusCode)
		}
		// The success envelope carries no message.
		if !result.Success || result.Message != "" {
			t.Fatalf("unexpected result %+v", result)
		}
		if dispatcher.lastURL != "https://twitter.com/u/status/111" {
			t.Fatalf("dispatcher got url %v", dispatcher.lastURL)
		}
		// The first forwarded address wins over the socket address.
		if dispatcher.lastSourceIP != "203.0.113.7" {
			t.Fatalf("dispatcher got source ip %v", dispatcher.lastSourceIP)
		}
	})

	t.Run("test_2", func(t *testing.T) {
		// Failures also travel in a 200 response.
		dispatcher.result = &faucetjson.RequestResult{
			Success: false,
			Message: faucetjson.ErrDuplicateTweet.Message,
		}
		defer func() { dispatcher.result = nil }()

		resp, result := postRequest(t, httpSrv.URL+"/api/request",
			&faucetjson.RequestCmd{URL: "https://twitter.com/u/status/111"}, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %v", resp.StatusCode)
		}
		if result.Success || result.Message != faucetjson.ErrDuplicateTweet.Message {
			t.Fatalf("unexpected result %+v", result)
		}
	})

	t.Run("test_3", func(t *testing.T) {
		// Malformed body is reported in the envelope, still as a 200.
		resp, err := http.Post(httpSrv.URL+"/api/request", "application/json",
			strings.NewReader("{not json"))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %v", resp.StatusCode)
		}
		var result faucetjson.RequestResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Success || result.Message != faucetjson.ErrMissingParams.Message {
			t.Fatalf("unexpected result %+v", result)
		}
	})

	t.Run("test_4", func(t *testing.T) {
		resp, err := http.Get(httpSrv.URL + "/api/request")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %v", resp.StatusCode)
		}
	})
}

func TestHandleRequestPanic(t *testing.T) {
	// A panicking claim must not take the server down; the next request is
	// served normally.
	dispatcher := &fakeDispatcher{panicNext: true}
	_, httpSrv := newTestServer(t, dispatcher)

	resp, err := http.Post(httpSrv.URL+"/api/request", "application/json",
		strings.NewReader(`{"url":"https://twitter.com/u/status/111"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	resp2, result := postRequest(t, httpSrv.URL+"/api/request",
		&faucetjson.RequestCmd{URL: "https://twitter.com/u/status/222"}, nil)
	if resp2.StatusCode != http.StatusOK || !result.Success {
		t.Fatalf("server did not survive the panic: %v %+v", resp2.StatusCode, result)
	}
	if dispatcher.lastURL != "https://twitter.com/u/status/222" {
		t.Fatalf("dispatcher got url %v", dispatcher.lastURL)
	}
}

func TestSetupListenersTLSFiles(t *testing.T) {
	dir := t.TempDir()
	missingKey := filepath.Join(dir, "missing.key")
	missingCert := filepath.Join(dir, "missing.cert")

	t.Run("test_1", func(t *testing.T) {
		_, err := setupListeners([]string{"127.0.0.1:0"}, missingKey, missingCert, false)
		if err == nil {
			t.Fatalf("expected error for missing cert and key")
		}
	})

	t.Run("test_2", func(t *testing.T) {
		// A present cert with a missing key is just as unusable.
		cert := filepath.Join(dir, "present.cert")
		if err := ioutil.WriteFile(cert, []byte("not a real cert"), 0600); err != nil {
			t.Fatalf("write cert: %v", err)
		}
		_, err := setupListeners([]string{"127.0.0.1:0"}, missingKey, cert, false)
		if err == nil {
			t.Fatalf("expected error for missing key")
		}
	})

	t.Run("test_3", func(t *testing.T) {
		listeners, err := setupListeners([]string{"127.0.0.1:0"}, missingKey, missingCert, true)
		if err != nil {
			t.Fatalf("setup without TLS: %v", err)
		}
		for _, listener := range listeners {
			listener.Close()
		}
	})
}

func TestHandleRecords(t *testing.T) {
	dispatcher := &fakeDispatcher{
		records: &faucetjson.RecordsResult{
			Data: []faucetjson.RecordResult{
				{Account: "alice.testnet", Receipt: "tx1", Time: 1000},
			},
			Total: 42,
		},
	}
	_, httpSrv := newTestServer(t, dispatcher)

	t.Run("test_1", func(t *testing.T) {
		resp, err := http.Get(httpSrv.URL + "/api/records?n=7")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %v", resp.StatusCode)
		}

		var result faucetjson.RecordsResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Total != 42 || len(result.Data) != 1 {
			t.Fatalf("unexpected result %+v", result)
		}
		if dispatcher.lastNum != 7 {
			t.Fatalf("dispatcher got n=%v", dispatcher.lastNum)
		}
	})

	t.Run("test_2", func(t *testing.T) {
		resp, err := http.Get(httpSrv.URL + "/api/records?n=bogus")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %v", resp.StatusCode)
		}
	})
}

func TestHandleVersion(t *testing.T) {
	_, httpSrv := newTestServer(t, &fakeDispatcher{})

	resp, err := http.Get(httpSrv.URL + "/api/version")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]faucetjson.VersionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result["server"].VersionString == "" {
		t.Fatalf("missing server version")
	}
}

func TestCORSPreflight(t *testing.T) {
	_, httpSrv := newTestServer(t, &fakeDispatcher{})

	req, err := http.NewRequest(http.MethodOptions, httpSrv.URL+"/api/request", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %v", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}

func TestLiveFeed(t *testing.T) {
	svr, httpSrv := newTestServer(t, &fakeDispatcher{})

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the registration to land before broadcasting.
	deadline := time.Now().Add(5 * time.Second)
	for svr.ntfnMgr.NumClients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("websocket client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	svr.NotifyDisbursement(&model.Disbursement{
		Account: "alice.testnet",
		Link:    "https://twitter.com/u/status/111",
		Receipt: "FakeTx1",
		Time:    1000,
	})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var ntfn faucetjson.LiveNotification
	if err := json.Unmarshal(msg, &ntfn); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if ntfn.Account != "alice.testnet" || ntfn.Receipt != "FakeTx1" {
		t.Fatalf("unexpected notification %+v", ntfn)
	}
}
