package faucetserver

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/octopus-network/oct-faucet-server/chaincfg"
	"github.com/octopus-network/oct-faucet-server/faucetjson"
	"github.com/octopus-network/oct-faucet-server/model"
	"github.com/octopus-network/oct-faucet-server/utils"
)

const (
	// requestReadTimeoutSeconds is the number of seconds a connection is
	// allowed to take to deliver its request before it is closed.
	requestReadTimeoutSeconds = 10
)

// ClaimDispatcher runs claims and serves record listings. Implemented by the
// dispenser.
type ClaimDispatcher interface {
	Handle(ctx context.Context, tweetURL, sourceIP string) *faucetjson.RequestResult
	RecentRecords(ctx context.Context, num int) (*faucetjson.RecordsResult, error)
}

// simpleAddr implements the net.Addr interface with two struct fields
type simpleAddr struct {
	net, addr string
}

// String returns the address.
//
// This is part of the net.Addr interface.
func (a simpleAddr) String() string {
	return a.addr
}

// Network returns the network.
//
// This is part of the net.Addr interface.
func (a simpleAddr) Network() string {
	return a.net
}

// Ensure simpleAddr implements the net.Addr interface.
var _ net.Addr = simpleAddr{}

// ConfigFaucetServer is a descriptor containing the faucet server
// configuration.
type ConfigFaucetServer struct {
	DisableTLS bool

	// ListenersString an array that contains ip address and port for
	// generating listeners later
	ListenersString []string

	// Listeners defines a slice of listeners for which the server will
	// take ownership of and accept connections.  Since the server takes
	// ownership of these listeners, they will be closed when the server
	// is stopped.
	Listeners []net.Listener

	RPCKey  string
	RPCCert string

	MaxClients    int
	MaxWebsockets int
}

// FaucetServer serves the public faucet API: claim submission, the recent
// record listing and the websocket live feed.
type FaucetServer struct {
	started    int32
	startTime  int64
	shutdown   int32
	cfg        ConfigFaucetServer
	ntfnMgr    *wsNotificationManager
	numClients int32
	wg         sync.WaitGroup
	quit       chan int

	dispatcher ClaimDispatcher
}

// NewFaucetServer returns a new instance of the FaucetServer struct.
func NewFaucetServer(config *ConfigFaucetServer, dispatcher ClaimDispatcher) (*FaucetServer, error) {
	listeners, err := setupListeners(config.ListenersString, config.RPCKey,
		config.RPCCert, config.DisableTLS)
	if err != nil {
		return nil, err
	}
	if len(listeners) == 0 {
		return nil, errors.New("faucet server: no valid listen address")
	}
	config.Listeners = listeners

	svr := FaucetServer{
		startTime:  time.Now().Unix(),
		cfg:        *config,
		quit:       make(chan int),
		dispatcher: dispatcher,
	}
	svr.ntfnMgr = newWsNotificationManager(&svr)

	return &svr, nil
}

// NotifyDisbursement pushes a completed disbursement to every connected live
// feed subscriber. Safe for concurrent access.
func (svr *FaucetServer) NotifyDisbursement(disbursement *model.Disbursement) {
	svr.ntfnMgr.NotifyDisbursement(disbursement)
}

// parseListeners determines whether each listen address is IPv4 and IPv6 and
// returns a slice of appropriate net.Addrs to listen on with TCP. It also
// properly detects addresses which apply to "all interfaces" and adds the
// address as both IPv4 and IPv6.
func parseListeners(addrs []string) ([]net.Addr, error) {
	netAddrs := make([]net.Addr, 0, len(addrs)*2)
	for _, addr := range addrs {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			// Shouldn't happen due to already being normalized.
			return nil, err
		}

		// Empty host or host of * on plan9 is both IPv4 and IPv6.
		if host == "" || (host == "*" && runtime.GOOS == "plan9") {
			netAddrs = append(netAddrs, simpleAddr{net: "tcp4", addr: addr})
			netAddrs = append(netAddrs, simpleAddr{net: "tcp6", addr: addr})
			continue
		}

		// Strip IPv6 zone id if present since net.ParseIP does not
		// handle it.
		zoneIndex := strings.LastIndex(host, "%")
		if zoneIndex > 0 {
			host = host[:zoneIndex]
		}

		// Parse the IP.
		ip := net.ParseIP(host)
		if ip == nil {
			return nil, fmt.Errorf("'%s' is not a valid IP address", host)
		}

		// To4 returns nil when the IP is not an IPv4 address, so use
		// this determine the address type.
		if ip.To4() == nil {
			netAddrs = append(netAddrs, simpleAddr{net: "tcp6", addr: addr})
		} else {
			netAddrs = append(netAddrs, simpleAddr{net: "tcp4", addr: addr})
		}
	}
	return netAddrs, nil
}

// setupListeners returns a slice of listeners that are configured for use
// with the faucet server depending on the configuration settings for listen
// addresses and TLS.
func setupListeners(listenersString []string, RPCKey string, RPCCert string,
	disableTLS bool) ([]net.Listener, error) {

	listenFunc := net.Listen
	// Check the TLS cert and key file
	if !disableTLS {
		keyExists, err := utils.FileExists(RPCKey)
		if err != nil {
			return nil, err
		}
		certExists, err := utils.FileExists(RPCCert)
		if err != nil {
			return nil, err
		}
		if !keyExists || !certExists {
			return nil, errors.New("cannot find faucet cert and key")
		}

		keypair, err := tls.LoadX509KeyPair(RPCCert, RPCKey)
		if err != nil {
			return nil, err
		}

		tlsConfig := tls.Config{
			Certificates: []tls.Certificate{keypair},
			MinVersion:   tls.VersionTLS12,
		}

		// Change the standard net.Listen function to the tls one.
		listenFunc = func(net string, laddr string) (net.Listener, error) {
			return tls.Listen(net, laddr, &tlsConfig)
		}
	}

	netAddrs, err := parseListeners(listenersString)
	if err != nil {
		return nil, err
	}

	listeners := make([]net.Listener, 0, len(netAddrs))
	for _, addr := range netAddrs {
		listener, err := listenFunc(addr.Network(), addr.String())
		if err != nil {
			log.Warnf("Can't listen on %s: %v", addr, err)
			continue
		}
		listeners = append(listeners, listener)
	}

	return listeners, nil
}

// clientIP extracts the claimant address, honoring the X-Forwarded-For header
// set by a fronting proxy.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON marshals result to the response. The claim endpoints always reply
// 200; failure information travels in the body.
func writeJSON(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Errorf("Unable to write response: %v", err)
	}
}

// setCORSHeaders allows browser frontends on any origin. The faucet is a
// public service.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// handleRequest implements the claim endpoint.
func (svr *FaucetServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "405 Method Not Allowed.", http.StatusMethodNotAllowed)
		return
	}

	var cmd faucetjson.RequestCmd
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, &faucetjson.RequestResult{
			Success: false,
			Message: faucetjson.ErrMissingParams.Message,
		})
		return
	}

	result := svr.dispatcher.Handle(r.Context(), cmd.URL, clientIP(r))
	writeJSON(w, result)
}

// handleRecords implements the record listing endpoint.
func (svr *FaucetServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "405 Method Not Allowed.", http.StatusMethodNotAllowed)
		return
	}

	num := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "400 Bad Request.", http.StatusBadRequest)
			return
		}
		num = parsed
	}

	result, err := svr.dispatcher.RecentRecords(r.Context(), num)
	if err != nil {
		log.Errorf("Unable to list records: %v", err)
		http.Error(w, "500 Internal Server Error.", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

// handleVersion implements the version endpoint.
func (svr *FaucetServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	result := map[string]faucetjson.VersionResult{
		"server": {
			VersionString: chaincfg.FaucetBackendVersion,
		},
	}
	writeJSON(w, result)
}

// handler builds the route table. Split out from Start so tests can mount it
// on a httptest server.
func (svr *FaucetServer) handler() http.Handler {
	mux := http.NewServeMux()

	wrap := func(fn http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			setCORSHeaders(w)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			// Limit the number of connections to max allowed.
			if svr.limitConnections(w, r.RemoteAddr) {
				return
			}

			// Keep track of the number of connected clients.
			svr.incrementClients()
			defer svr.decrementClients()

			// A panicking handler must not take the server down.
			defer utils.MyRecover()

			fn(w, r)
		}
	}

	mux.HandleFunc("/api/request", wrap(svr.handleRequest))
	mux.HandleFunc("/api/records", wrap(svr.handleRecords))
	mux.HandleFunc("/api/version", wrap(svr.handleVersion))

	// Websocket endpoint.
	mux.HandleFunc("/api/live", func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Attempt to upgrade the connection to a websocket connection
		// using the default size for read/write buffers.
		ws, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			if _, ok := err.(websocket.HandshakeError); !ok {
				log.Errorf("Unexpected websocket error: %v", err)
			}
			return
		}
		svr.WebsocketHandler(ws, r.RemoteAddr)
	})

	return mux
}

// Start is used by server.go to start the faucet listeners.
func (svr *FaucetServer) Start() {
	if atomic.AddInt32(&svr.started, 1) != 1 {
		return
	}

	log.Trace("Starting faucet server...")
	httpServer := &http.Server{
		Handler: svr.handler(),

		// Timeout connections which don't complete the request within
		// the allowed timeframe.
		ReadTimeout: time.Second * requestReadTimeoutSeconds,
	}

	for _, listener := range svr.cfg.Listeners {
		svr.wg.Add(1)
		go func(listener net.Listener) {
			tlsState := "on"
			if svr.cfg.DisableTLS {
				tlsState = "off"
			}
			log.Infof("Faucet server listening on %s (TLS %s)", listener.Addr(), tlsState)
			httpServer.Serve(listener)
			log.Tracef("Faucet server listener done for %s", listener.Addr())
			svr.wg.Done()
		}(listener)
	}

	svr.ntfnMgr.Start()
}

// Stop is used by server.go to stop the faucet listeners.
func (svr *FaucetServer) Stop() error {
	if atomic.AddInt32(&svr.shutdown, 1) != 1 {
		log.Infof("Faucet server is already in the process of shutting down")
		return nil
	}
	log.Warnf("Faucet server shutting down...")
	for _, listener := range svr.cfg.Listeners {
		err := listener.Close()
		if err != nil {
			log.Errorf("Problem shutting down faucet server: %v", err)
			return err
		}
	}
	svr.ntfnMgr.Shutdown()
	svr.ntfnMgr.WaitForShutdown()
	close(svr.quit)
	svr.wg.Wait()
	log.Infof("Faucet server shutdown complete")
	return nil
}

// limitConnections responds with a 503 service unavailable and returns true if
// adding another client would exceed the maximum allowed clients.
//
// This function is safe for concurrent access.
func (svr *FaucetServer) limitConnections(w http.ResponseWriter, remoteAddr string) bool {
	if int(atomic.LoadInt32(&svr.numClients)+1) > svr.cfg.MaxClients {
		log.Infof("Max faucet clients exceeded [%d] - "+
			"disconnecting client %s", svr.cfg.MaxClients, remoteAddr)
		http.Error(w, "503 Too busy.  Try again later.",
			http.StatusServiceUnavailable)
		return true
	}
	return false
}

// incrementClients adds one to the number of connected clients.
//
// This function is safe for concurrent access.
func (svr *FaucetServer) incrementClients() {
	atomic.AddInt32(&svr.numClients, 1)
}

// decrementClients subtracts one from the number of connected clients.
//
// This function is safe for concurrent access.
func (svr *FaucetServer) decrementClients() {
	atomic.AddInt32(&svr.numClients, -1)
}
