package main

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/octopus-network/oct-faucet-server/chaincfg"
	"github.com/octopus-network/oct-faucet-server/model"
	"github.com/octopus-network/oct-faucet-server/nearclient"
	"github.com/octopus-network/oct-faucet-server/utils"
)

const (
	defaultConfigFilename = "faucet-server.conf"
	sampleConfigFilename  = "sample-faucet-server.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "oct-faucet-server.log"
	defaultLogLevel       = "info"
	defaultListenerPort   = "3088"
	defaultMaxClients     = 10000
	defaultMaxWebsockets  = 10000
	defaultDbAddress      = "127.0.0.1:5432"
	defaultDatabaseName   = "oct_faucet"
	defaultCooldownHours  = 24

	// defaultStorageDeposit is the yoctoNEAR attached to a storage_deposit
	// call, enough for one NEP-141 registration entry.
	defaultStorageDeposit = "1250000000000000000000"
)

var (
	defaultHomeDir      = utils.AppDataDir("oct-faucet-server", false)
	localConfigFile     = defaultConfigFilename
	localFaucetKeyFile  = "faucet.key"
	localFaucetCertFile = "faucet.cert"
	defaultLogDir       = filepath.Join(defaultHomeDir, defaultLogDirname)
	netParams           = &chaincfg.TestNetParams
)

// config defines the configuration options for the faucet server.
//
// See loadConfig for details on the configuration load process.
type config struct {
	AppDataDir          *utils.ExplicitString `short:"A" long:"appdata" description:"Application data directory for faucet server config and logs"`
	ConfigFile          string                `short:"C" long:"configfile" description:"Path to configuration file"`
	CooldownHours       int                   `long:"cooldownhours" description:"Number of hours an account must wait between two claims (default: 24)"`
	DbUsername          string                `long:"dbusername" description:"username which is used to connect with database"`
	DbPassword          string                `long:"dbpassword" default-mask:"-" description:"password which is used to connect with database"`
	DbAddress           string                `long:"dbaddress" description:"ip address and port of database (default: 127.0.0.1:5432)"`
	DbName              string                `long:"dbname" description:"name of server database (default: oct_faucet)"`
	DebugLevel          string                `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	DisableAutoCreateDB bool                  `long:"noautocreatedb" description:"Disable creating database tables automatically"`
	DisableTLS          bool                  `long:"notls" description:"Disable TLS for the faucet server -- NOTE: This is only allowed if the server is bound to localhost or behind a terminating proxy"`
	FaucetAccount       string                `long:"faucetaccount" description:"NEAR account that signs and funds every disbursement"`
	FaucetCert          string                `long:"faucetcert" description:"File containing the certificate file for clients to connect with the faucet"`
	FaucetKey           string                `long:"faucetkey" description:"File containing the certificate key for clients to connect with the faucet"`
	FaucetPrivKey       *utils.ExplicitString `long:"faucetprivkey" default-mask:"-" description:"Private key of the faucet account (ed25519:<base58>)"`
	FaucetPrivKeyFile   string                `long:"faucetprivkeyfile" description:"File containing the private key of the faucet account"`
	Gas                 uint64                `long:"gas" description:"Gas attached to every function call, in gas units (default: 300 Tgas)"`
	Listeners           []string              `long:"listen" description:"Add an interface/port to listen for connections"`
	ListenerPort        string                `long:"listenerport" description:"listenerport is the port the faucet server listens on (default: 3088)"`
	LogDir              string                `long:"logdir" description:"Directory to log output."`
	MainNet             bool                  `long:"mainnet" description:"Use the main network"`
	BetaNet             bool                  `long:"betanet" description:"Use the beta network"`
	MaxClients          int                   `long:"maxclients" description:"Max number of concurrent HTTP clients"`
	MaxWebsockets       int                   `long:"maxwebsockets" description:"Max number of websocket connections for the live feed"`
	NodeRPC             string                `long:"noderpc" description:"JSON-RPC endpoint of the NEAR node, overrides the network default"`
	ProfilePort         string                `long:"profileport" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65536"`
	Proxy               string                `long:"proxy" description:"Connect to the twitter API via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyPass           string                `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	ProxyUser           string                `long:"proxyuser" description:"Username for proxy server"`
	ShowVersion         bool                  `short:"V" long:"version" description:"Display version information and exit"`
	StorageDeposit      string                `long:"storagedeposit" description:"yoctoNEAR attached when registering a recipient on a token contract"`
	Targets             []string              `long:"target" description:"Add a token target in the form contract:amount, the amount in the token's smallest unit. Every successful claim funds all targets"`
	TestNet             bool                  `long:"testnet" description:"Use the test network (default)"`
	TwitterAuth         *utils.ExplicitString `long:"twitterauth" default-mask:"-" description:"Full authorization header value for the twitter API"`
	WorkingDir          string                `long:"workingdir" description:"Working directory"`

	targets        []*model.TokenTarget
	cooldownWindow time.Duration
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	parser := flags.NewParser(cfg, options)
	return parser
}

// createDefaultConfigFile copies the sample config file shipped next to the
// binary to the given destination path so the operator has a template to edit.
func createDefaultConfigFile(destinationPath string) error {
	// Create the destination directory if it does not exists
	err := os.MkdirAll(filepath.Dir(destinationPath), 0700)
	if err != nil {
		return err
	}

	// We assume sample config file path is same as binary
	path, err := filepath.Abs(filepath.Dir(os.Args[0]))
	if err != nil {
		return err
	}
	sampleConfigPath := filepath.Join(path, sampleConfigFilename)

	src, err := os.Open(sampleConfigPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dest, err := os.OpenFile(destinationPath,
		os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close()

	_, err = io.Copy(dest, src)
	return err
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace":
		fallthrough
	case "debug":
		fallthrough
	case "info":
		fallthrough
	case "warn":
		fallthrough
	case "error":
		fallthrough
	case "critical":
		return true
	}
	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "The specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "The specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "The specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "The specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// removeDuplicateAddresses returns a new slice with all duplicate entries in
// addrs removed.
func removeDuplicateAddresses(addrs []string) []string {
	result := make([]string, 0, len(addrs))
	seen := map[string]struct{}{}
	for _, val := range addrs {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

// normalizeAddresses returns a new slice with all the passed addresses
// normalized with the given default port, and all duplicates removed.
func normalizeAddresses(addrs []string, defaultPort string) ([]string, error) {
	for i, addr := range addrs {
		normalized, err := utils.NormalizeAddress(addr, defaultPort)
		if err != nil {
			return nil, err
		}
		addrs[i] = normalized
	}

	return removeDuplicateAddresses(addrs), nil
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func loadConfig() (*config, []string, error) {
	cfg := config{
		ConfigFile:     localConfigFile,
		AppDataDir:     utils.NewExplicitString(defaultHomeDir),
		FaucetPrivKey:  utils.NewExplicitString(""),
		TwitterAuth:    utils.NewExplicitString(""),
		DebugLevel:     defaultLogLevel,
		LogDir:         defaultLogDir,
		MaxClients:     defaultMaxClients,
		MaxWebsockets:  defaultMaxWebsockets,
		DbAddress:      defaultDbAddress,
		DbName:         defaultDatabaseName,
		FaucetKey:      localFaucetKeyFile,
		FaucetCert:     localFaucetCertFile,
		CooldownHours:  defaultCooldownHours,
		Gas:            nearclient.DefaultGas,
		StorageDeposit: defaultStorageDeposit,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	if preCfg.WorkingDir != "" {
		err := os.Chdir(preCfg.WorkingDir)
		if err != nil {
			return nil, nil, err
		}
	}

	// Load additional config from file.  A missing config file is not an
	// error; everything can be supplied on the command line.  When the
	// default path is missing, seed it from the shipped sample so the
	// operator has a template to edit.
	var configFileError error
	parser := newConfigParser(&cfg, flags.Default)
	if _, err := os.Stat(preCfg.ConfigFile); err != nil &&
		preCfg.ConfigFile == localConfigFile {

		if cerr := createDefaultConfigFile(preCfg.ConfigFile); cerr != nil {
			configFileError = cerr
		}
	}
	if _, err := os.Stat(preCfg.ConfigFile); err == nil {
		fmt.Printf("Use config file: %v\n", preCfg.ConfigFile)
		err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			if _, ok := err.(*os.PathError); !ok {
				fmt.Fprintf(os.Stderr, "Error parsing config "+
					"file: %v\n", err)
				fmt.Fprintln(os.Stderr, usageMessage)
				return nil, nil, err
			}
			configFileError = err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	// Create the home directory if it doesn't already exist.
	funcName := "loadConfig"
	err = os.MkdirAll(defaultHomeDir, 0700)
	if err != nil {
		// Show a nicer error message if it's because a symlink is
		// linked to a directory that does not exist (probably because
		// it's not mounted).
		if e, ok := err.(*os.PathError); ok && os.IsExist(err) {
			if link, lerr := os.Readlink(e.Path); lerr == nil {
				str := "is symlink %s -> %s mounted?"
				err = fmt.Errorf(str, e.Path, link)
			}
		}

		str := "%s: Failed to create home directory: %v"
		err := fmt.Errorf(str, funcName, err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Expand the log directory
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation. After log rotation has been initialized, the
	// logger variables may be used.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err.Error())
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// Show version at startup.
	faucetLog.Infof("Version %s", version())

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on non-existent config file from
	// being printed when the config file actually parsed with an error.
	if configFileError != nil {
		faucetLog.Warnf("%v", configFileError)
	}

	// Multiple networks can't be selected simultaneously.
	numNets := 0
	// Count number of network flags passed; assign active network params
	// while we're at it
	if cfg.TestNet {
		numNets++
		netParams = &chaincfg.TestNetParams
	}
	if cfg.MainNet {
		numNets++
		netParams = &chaincfg.MainNetParams
	}
	if cfg.BetaNet {
		numNets++
		netParams = &chaincfg.BetaNetParams
	}
	if numNets > 1 {
		str := "%s: The mainnet, testnet, and betanet params " +
			"can't be used together -- choose one of the three"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}
	chaincfg.ActiveNetParams = netParams
	cfg.DbName = cfg.DbName + "_" + netParams.Name

	// The node endpoint defaults to the public RPC of the active network.
	if cfg.NodeRPC == "" {
		cfg.NodeRPC = netParams.NodeRPCURL
	}

	if cfg.ListenerPort == "" {
		cfg.ListenerPort = defaultListenerPort
	}
	// Add the default listener if none were specified. The default
	// listener is all addresses on the listen port.
	if len(cfg.Listeners) == 0 {
		cfg.Listeners = []string{
			net.JoinHostPort("", cfg.ListenerPort),
		}
	}

	// Add default port to all listener addresses if needed and remove
	// duplicate addresses.
	cfg.Listeners, err = normalizeAddresses(cfg.Listeners, cfg.ListenerPort)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: invalid listener address: %v", funcName, err)
	}

	// The faucet identity is mandatory; without it no transaction can be
	// signed.
	if cfg.FaucetAccount == "" {
		return nil, nil, errors.New("faucetaccount should be configured")
	}
	if !cfg.FaucetPrivKey.ExplicitlySet() && cfg.FaucetPrivKeyFile != "" {
		raw, err := ioutil.ReadFile(cleanAndExpandPath(cfg.FaucetPrivKeyFile))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: unable to read faucet key file: %v",
				funcName, err)
		}
		cfg.FaucetPrivKey.Value = strings.TrimSpace(string(raw))
	}
	if cfg.FaucetPrivKey.Value == "" {
		return nil, nil, errors.New("faucetprivkey or faucetprivkeyfile should be configured")
	}

	if cfg.TwitterAuth.Value == "" {
		return nil, nil, errors.New("twitterauth should be configured")
	}

	if cfg.CooldownHours <= 0 {
		return nil, nil, fmt.Errorf("%s: Invalid cooldown hours: %v, should be positive",
			funcName, cfg.CooldownHours)
	}
	cfg.cooldownWindow = time.Duration(cfg.CooldownHours) * time.Hour

	// Parse the token targets and attach the storage deposit to each.
	if len(cfg.Targets) == 0 {
		return nil, nil, errors.New("at least one target should be configured")
	}
	storageDeposit, ok := new(big.Int).SetString(cfg.StorageDeposit, 10)
	if !ok || storageDeposit.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%s: Invalid storage deposit: %v",
			funcName, cfg.StorageDeposit)
	}
	cfg.targets = make([]*model.TokenTarget, 0, len(cfg.Targets))
	for _, raw := range cfg.Targets {
		target, err := model.ParseTokenTarget(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %v", funcName, err)
		}
		target.StorageDeposit = storageDeposit
		cfg.targets = append(cfg.targets, target)
		faucetLog.Infof("Token target: %v, amount %v", target.ContractID, target.Amount)
	}

	chaincfg.FaucetBackendVersion = version()

	return &cfg, remainingArgs, nil
}
