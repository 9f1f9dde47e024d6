package main

import (
	"github.com/octopus-network/oct-faucet-server/dal"
	"github.com/octopus-network/oct-faucet-server/dispenser"
	"github.com/octopus-network/oct-faucet-server/faucetserver"
	"github.com/octopus-network/oct-faucet-server/nearclient"
	"github.com/octopus-network/oct-faucet-server/service"
	"github.com/octopus-network/oct-faucet-server/twitterclient"
)

type server struct {
	faucetServer *faucetserver.FaucetServer
	dispenser    *dispenser.Dispenser
}

func newServer(twitterCli *twitterclient.Client, nearCli *nearclient.Client) (*server, error) {
	disp, err := dispenser.New(&dispenser.Config{
		Targets:        cfg.targets,
		CooldownWindow: cfg.cooldownWindow,
	}, twitterCli, nearCli, service.GetFaucetService(), dal.GlobalDBClient)
	if err != nil {
		return nil, err
	}

	faucetSvr, err := faucetserver.NewFaucetServer(&faucetserver.ConfigFaucetServer{
		DisableTLS:      cfg.DisableTLS,
		ListenersString: cfg.Listeners,
		RPCCert:         cfg.FaucetCert,
		RPCKey:          cfg.FaucetKey,
		MaxClients:      cfg.MaxClients,
		MaxWebsockets:   cfg.MaxWebsockets,
	}, disp)
	if err != nil {
		return nil, err
	}

	// Feed completed disbursements to the websocket live feed.
	disp.Subscribe(faucetSvr.NotifyDisbursement)

	ret := &server{
		faucetServer: faucetSvr,
		dispenser:    disp,
	}
	return ret, nil
}

func (s *server) Start() {
	if s.faucetServer != nil {
		s.faucetServer.Start()
	}
}

func (s *server) Stop() {
	if s.faucetServer != nil {
		s.faucetServer.Stop()
	}
}
