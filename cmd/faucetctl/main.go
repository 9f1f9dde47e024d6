package main

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/abesuite/go-socks/socks"

	"github.com/octopus-network/oct-faucet-server/faucetjson"
)

const usageText = `Commands:
  request <tweet-url>   Submit a claim backed by the given tweet
  records [n]           List the n most recent disbursements (default 5)
  version               Show the server version`

func usage() {
	fmt.Fprintln(os.Stderr, usageText)
	os.Exit(1)
}

// newHTTPClient builds an http client honoring the proxy and TLS settings.
func newHTTPClient(cfg *config) (*http.Client, error) {
	dial := net.Dial
	if cfg.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPass,
		}
		dial = proxy.Dial
	}

	var tlsConfig *tls.Config
	if !cfg.NoTLS && cfg.FaucetCert != "" {
		pem, err := ioutil.ReadFile(cfg.FaucetCert)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		pool.AppendCertsFromPEM(pem)
		tlsConfig = &tls.Config{RootCAs: pool}
	}

	return &http.Client{
		Transport: &http.Transport{
			Dial:            dial,
			TLSClientConfig: tlsConfig,
		},
	}, nil
}

func serverURL(cfg *config, path string) string {
	scheme := "https"
	if cfg.NoTLS {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s%s", scheme, cfg.FaucetAddress, path)
}

// printJSON pretty prints a response payload.
func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func doRequest(cfg *config, client *http.Client, tweetURL string) error {
	payload, err := json.Marshal(&faucetjson.RequestCmd{URL: tweetURL})
	if err != nil {
		return err
	}

	resp, err := client.Post(serverURL(cfg, "/api/request"), "application/json",
		bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result faucetjson.RequestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	return printJSON(&result)
}

func doRecords(cfg *config, client *http.Client, num int) error {
	u := serverURL(cfg, "/api/records")
	if num > 0 {
		u += "?n=" + url.QueryEscape(strconv.Itoa(num))
	}

	resp, err := client.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result faucetjson.RecordsResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	return printJSON(&result)
}

func doVersion(cfg *config, client *http.Client) error {
	resp, err := client.Get(serverURL(cfg, "/api/version"))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result map[string]faucetjson.VersionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	return printJSON(result)
}

func main() {
	cfg, args, err := loadConfig()
	if err != nil {
		os.Exit(1)
	}
	if len(args) == 0 {
		usage()
	}

	client, err := newHTTPClient(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	switch args[0] {
	case "request":
		if len(args) != 2 {
			usage()
		}
		err = doRequest(cfg, client, args[1])
	case "records":
		num := 0
		if len(args) == 2 {
			num, err = strconv.Atoi(args[1])
			if err != nil {
				usage()
			}
		}
		err = doRecords(cfg, client, num)
	case "version":
		err = doVersion(cfg, client)
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
