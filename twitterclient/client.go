package twitterclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/abesuite/go-socks/socks"

	"github.com/octopus-network/oct-faucet-server/chaincfg"
	"github.com/octopus-network/oct-faucet-server/faucetjson"
	"github.com/octopus-network/oct-faucet-server/utils"
)

const (
	defaultAPIBaseURL = "https://api.twitter.com"
	defaultTimeout    = 15 * time.Second
)

// Config holds the options for a twitter API client.
type Config struct {
	// APIBaseURL overrides the twitter API endpoint, mainly for tests.
	APIBaseURL string

	// BearerAuth is the full authorization header value used both for
	// guest token activation and for tweet lookup.
	BearerAuth string

	// Proxy and its credentials route all twitter traffic through a
	// SOCKS5 proxy when set.
	Proxy     string
	ProxyUser string
	ProxyPass string

	Timeout time.Duration
}

// Client fetches tweets and resolves them into claimed accounts. A tweet is
// fetched with the two step guest flow: activate a short-lived guest token,
// then look the tweet up by id.
type Client struct {
	cfg         *Config
	baseURL     string
	httpClient  *http.Client
	chainParams *chaincfg.Params
}

// New creates a twitter client for the given network parameters.
func New(cfg *Config, chainParams *chaincfg.Params) (*Client, error) {
	if cfg.BearerAuth == "" {
		return nil, fmt.Errorf("twitter bearer authorization is required")
	}

	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	dial := net.Dial
	if cfg.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPass,
		}
		dial = proxy.Dial
		log.Infof("Using SOCKS5 proxy %v for twitter API", cfg.Proxy)
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Dial: dial,
		},
	}

	return &Client{
		cfg:         cfg,
		baseURL:     baseURL,
		httpClient:  httpClient,
		chainParams: chainParams,
	}, nil
}

// GuestToken activates and returns a short-lived guest token.
func (c *Client) GuestToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/1.1/guest/activate.json", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("authorization", c.cfg.BearerAuth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("guest token activation returned status %v", resp.StatusCode)
	}

	var body struct {
		GuestToken string `json:"guest_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.GuestToken == "" {
		return "", fmt.Errorf("guest token activation returned an empty token")
	}
	return body.GuestToken, nil
}

// GetTweet fetches the text of the tweet with the given id. A single attempt
// is made; any failure is terminal for the request.
func (c *Client) GetTweet(ctx context.Context, id string) (string, error) {
	guestToken, err := c.GuestToken(ctx)
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/1.1/statuses/show.json?id=%s", c.baseURL, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("authorization", c.cfg.BearerAuth)
	req.Header.Set("x-guest-token", guestToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tweet lookup returned status %v", resp.StatusCode)
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Text, nil
}

// ResolveProof resolves a tweet URL into the tweet id and the account the
// tweet claims. The errors returned are the user visible faucetjson values.
func (c *Client) ResolveProof(ctx context.Context, tweetURL string) (string, string, error) {
	id, ok := ExtractTweetID(tweetURL)
	if !ok {
		return "", "", faucetjson.ErrInvalidTweetURL
	}

	text, err := c.GetTweet(ctx, id)
	if err != nil {
		log.Errorf("Unable to fetch tweet %v: %v", id, err)
		return "", "", faucetjson.ErrTweetFetch
	}

	account, ok := ExtractAccount(text, c.chainParams.AccountSuffix)
	if !ok {
		return "", "", faucetjson.ErrAccountNotFound
	}

	// The extraction patterns are permissive; reject anything that is not a
	// well formed named account before it reaches the chain.
	if err := utils.CheckAccountValidity(account, c.chainParams); err != nil {
		log.Debugf("Rejecting extracted account %v: %v", account, err)
		return "", "", faucetjson.ErrAccountNotFound
	}

	return id, account, nil
}
