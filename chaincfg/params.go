package chaincfg

// Params is used to group parameters for various NEAR networks such as the
// main network and test networks.
type Params struct {
	Name string

	// NodeRPCURL is the default JSON-RPC endpoint of a NEAR node on this
	// network. It can be overridden from the configuration.
	NodeRPCURL string
	WalletURL  string
	HelperURL  string

	// AccountSuffix is the top level account every named account on this
	// network ends with, including the leading dot (e.g. ".testnet").
	AccountSuffix string
}

// MainNetParams contains parameters on the main network
var MainNetParams = Params{
	Name:          "mainnet",
	NodeRPCURL:    "https://rpc.mainnet.near.org",
	WalletURL:     "https://wallet.near.org",
	HelperURL:     "https://helper.mainnet.near.org",
	AccountSuffix: ".near",
}

// TestNetParams contains parameters on the test network
var TestNetParams = Params{
	Name:          "testnet",
	NodeRPCURL:    "https://rpc.testnet.near.org",
	WalletURL:     "https://wallet.testnet.near.org",
	HelperURL:     "https://helper.testnet.near.org",
	AccountSuffix: ".testnet",
}

// BetaNetParams contains parameters on the beta network
var BetaNetParams = Params{
	Name:          "betanet",
	NodeRPCURL:    "https://rpc.betanet.near.org",
	WalletURL:     "https://wallet.betanet.near.org",
	HelperURL:     "https://helper.betanet.near.org",
	AccountSuffix: ".betanet",
}

// ActiveNetParams points to the parameters of the network the faucet is
// currently serving. It is assigned once during configuration load.
var ActiveNetParams = &TestNetParams

// FaucetBackendVersion is the version of the faucet server reported to
// clients. It is assigned during configuration load.
var FaucetBackendVersion = "0.2.0"
