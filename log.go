package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/octopus-network/oct-faucet-server/dal"
	"github.com/octopus-network/oct-faucet-server/dispenser"
	"github.com/octopus-network/oct-faucet-server/faucetserver"
	"github.com/octopus-network/oct-faucet-server/nearclient"
	"github.com/octopus-network/oct-faucet-server/service"
	"github.com/octopus-network/oct-faucet-server/twitterclient"
	"github.com/octopus-network/oct-faucet-server/utils"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	logRotator.Write(p)
	return len(p), nil
}

// Loggers per subsystem.  A single backend logger is created and all subsytem
// loggers created from it will write to the backend.  When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file.  This must be performed early during application startup by calling
// initLogRotator.
var (
	// backendLog is the logging backend used to create all subsystem loggers.
	// The backend must not be used before the log rotator has been initialized,
	// or data races and/or nil pointer dereferences will occur.
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	faucetLog       = backendLog.Logger("FAUC")
	dalLog          = backendLog.Logger("DAL")
	serviceLog      = backendLog.Logger("SRVC")
	twitterLog      = backendLog.Logger("TWTR")
	nearLog         = backendLog.Logger("NEAR")
	dispenserLog    = backendLog.Logger("DISP")
	faucetServerLog = backendLog.Logger("FSRV")
	utilsLog        = backendLog.Logger("UTIL")
)

// Initialize package-global logger variables.
func init() {
	dal.UseLogger(dalLog)
	service.UseLogger(serviceLog)
	twitterclient.UseLogger(twitterLog)
	nearclient.UseLogger(nearLog)
	dispenser.UseLogger(dispenserLog)
	faucetserver.UseLogger(faucetServerLog)
	utils.UseLogger(utilsLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"FAUC": faucetLog,
	"DAL":  dalLog,
	"SRVC": serviceLog,
	"TWTR": twitterLog,
	"NEAR": nearLog,
	"DISP": dispenserLog,
	"FSRV": faucetServerLog,
	"UTIL": utilsLog,
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 30)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}

	logRotator = r
}

// setLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.  Uninitialized subsystems are dynamically created as
// needed.
func setLogLevel(subsystemID string, logLevel string) {
	// Ignore invalid subsystems.
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.  It also dynamically creates the subsystem loggers as needed, so it
// can be used to initialize the logging system.
func setLogLevels(logLevel string) {
	// Configure all sub-systems with the new logging level.  Dynamically
	// create loggers as needed.
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}
