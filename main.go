package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	"time"

	"github.com/octopus-network/oct-faucet-server/dal"
	"github.com/octopus-network/oct-faucet-server/nearclient"
	"github.com/octopus-network/oct-faucet-server/twitterclient"
)

var (
	cfg *config
)

func startProfileServer() {
	listenAddr := net.JoinHostPort("localhost", cfg.ProfilePort)
	faucetLog.Infof("Profile server listening on %s", listenAddr)
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	faucetLog.Errorf("%v", http.ListenAndServe(listenAddr, mux))
}

func faucetMain() error {
	// Load configuration and parse command line. This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg

	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	defer faucetLog.Info("Shutdown complete")

	// Enable http profiling server if requested.
	if cfg.ProfilePort != "" {
		go func() {
			startProfileServer()
		}()
	}

	// initiate database
	err = dal.InitDB(&dal.DBConfig{
		Username:     cfg.DbUsername,
		Password:     cfg.DbPassword,
		Address:      cfg.DbAddress,
		DatabaseName: cfg.DbName,
	}, !cfg.DisableAutoCreateDB)
	if err != nil {
		return err
	}

	// create the twitter client used to resolve tweet proofs
	twitterCli, err := twitterclient.New(&twitterclient.Config{
		BearerAuth: cfg.TwitterAuth.Value,
		Proxy:      cfg.Proxy,
		ProxyUser:  cfg.ProxyUser,
		ProxyPass:  cfg.ProxyPass,
	}, netParams)
	if err != nil {
		faucetLog.Errorf("Unable to create twitter client: %v", err)
		return err
	}

	// create the NEAR client bound to the faucet identity
	faucetLog.Infof("Using NEAR node %v on %v", cfg.NodeRPC, netParams.Name)
	nearCli, err := nearclient.New(&nearclient.Config{
		NodeRPCURL: cfg.NodeRPC,
		SignerID:   cfg.FaucetAccount,
		PrivateKey: cfg.FaucetPrivKey.Value,
		Gas:        cfg.Gas,
	})
	if err != nil {
		faucetLog.Errorf("Unable to create NEAR client: %v", err)
		return err
	}

	// A missing faucet account means every claim would fail; check it once
	// at startup so misconfiguration surfaces immediately.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := nearCli.ViewAccount(ctx, cfg.FaucetAccount); err != nil {
		cancel()
		faucetLog.Errorf("Faucet account %v is not usable: %v", cfg.FaucetAccount, err)
		return err
	}
	cancel()
	faucetLog.Infof("Faucet account %v is ready", cfg.FaucetAccount)

	// create and start server, including the faucet API server and the
	// claim dispenser
	svr, err := newServer(twitterCli, nearCli)
	if err != nil {
		return err
	}

	svr.Start()

	if svr != nil {
		addInterruptHandler(func() {
			svr.Stop()
		})
	}

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems.
	<-interruptHandlersDone
	return nil
}

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	if err := faucetMain(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
