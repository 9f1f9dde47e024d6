package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/octopus-network/oct-faucet-server/utils"
)

var (
	faucetctlHomeDir   = utils.AppDataDir("oct-faucetctl", false)
	defaultConfigFile  = "faucetctl.conf"
	defaultServer      = "localhost"
	defaultServerPort  = "3088"
	defaultRPCCertFile = "faucet.cert"
)

// config defines the configuration options for faucetctl.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	FaucetAddress string `short:"s" long:"faucetaddress" description:"Faucet server to connect to"`
	FaucetCert    string `short:"c" long:"faucetcert" description:"Faucet server certificate chain for validation"`
	NoTLS         bool   `long:"notls" description:"Disable TLS"`
	Proxy         string `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyPass     string `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	ProxyUser     string `long:"proxyuser" description:"Username for proxy server"`
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	WorkingDir    string `long:"workingdir" description:"Working directory"`
}

// cleanAndExpandPath expands environement variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(faucetctlHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		ConfigFile:    defaultConfigFile,
		FaucetAddress: defaultServer,
		FaucetCert:    defaultRPCCertFile,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, usageText)
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show options", appName)
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

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n",
				err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
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

	// Handle environment variable expansion in the RPC certificate path.
	cfg.FaucetCert = cleanAndExpandPath(cfg.FaucetCert)

	// Add default port to the server address if needed.
	cfg.FaucetAddress, err = utils.NormalizeAddress(cfg.FaucetAddress, defaultServerPort)
	if err != nil {
		return nil, nil, err
	}

	return &cfg, remainingArgs, nil
}
