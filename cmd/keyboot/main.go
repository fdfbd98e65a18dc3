// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

// This file contains the operator tool to provision the keys of a pool and to
// bootstrap the trust between its members.

package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/coronanet/go-keyboot"
	"github.com/coronanet/go-keyboot/keys"
	"github.com/coronanet/go-keyboot/params"
	"github.com/coronanet/go-keyboot/registry"
	"github.com/coronanet/go-keyboot/rest"
	"github.com/ethereum/go-ethereum/log"
)

var (
	basedirFlag   = flag.String("basedir", ".", "Base directory holding the key stores of the pool")
	nameFlag      = flag.String("name", "", "Name of the node to operate on")
	seedFlag      = flag.String("seed", "", "Seed to derive the node keys from (32 chars or 64 hex chars)")
	overrideFlag  = flag.Bool("override", false, "Replace any already existing keys")
	certdirFlag   = flag.Bool("certdir", false, "Store keys in role segregated certificate directories")
	registryFlag  = flag.String("registry", "", "Pool registry database (defaults to <basedir>/registry)")
	apiportFlag   = flag.Int("apiport", 4444, "TCP port to launch the API server on")
	verbosityFlag = flag.Int("verbosity", int(log.LvlInfo), "Log level to run with")
)

// errNotProvisioned is returned by the check action if a node lacks keys.
var errNotProvisioned = errors.New("node keys not set up")

// config is the parsed command line of a single invocation.
type config struct {
	action   string
	basedir  string
	name     string
	seed     string
	override bool
	certdir  bool
	registry string
	apiport  int
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] init|check|exchange|serve\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Enable colored terminal logging
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(*verbosityFlag), log.StreamHandler(os.Stderr, log.TerminalFormat(true))))

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	err := run(&config{
		action:   flag.Arg(0),
		basedir:  *basedirFlag,
		name:     *nameFlag,
		seed:     *seedFlag,
		override: *overrideFlag,
		certdir:  *certdirFlag,
		registry: *registryFlag,
		apiport:  *apiportFlag,
	})
	if err != nil {
		log.Crit("Key bootstrapping failed", "action", flag.Arg(0), "err", err)
	}
}

// run executes a single operator action.
func run(conf *config) error {
	manager := keyboot.New(keyboot.Config{UseCertDir: conf.certdir})

	switch conf.action {
	case "init":
		if conf.name == "" {
			return errors.New("no node name specified")
		}
		var seed []byte
		if conf.seed != "" {
			var err error
			if seed, err = keys.ParseSeed(conf.seed); err != nil {
				return err
			}
		}
		node, err := manager.InitNodeKeys(conf.name, conf.basedir, seed, conf.override)
		if err != nil {
			return err
		}
		pool, err := openRegistry(conf)
		if err != nil {
			return err
		}
		defer pool.Close()

		return pool.Register(node, true)

	case "check":
		if conf.name == "" {
			return errors.New("no node name specified")
		}
		ok := true
		for _, stack := range []string{conf.name, conf.name + params.ClientStackSuffix} {
			setup := manager.AreKeysSetup(stack, conf.basedir)
			log.Info("Checked node keys", "node", stack, "backend", manager.Kind(), "setup", setup)
			ok = ok && setup
		}
		if !ok {
			return errNotProvisioned
		}
		// Files are all there, make sure the secrets match the public halves
		for _, stack := range []string{conf.name, conf.name + params.ClientStackSuffix} {
			key, err := manager.SigningKey(stack, conf.basedir)
			if err != nil {
				return fmt.Errorf("%s: %w", stack, err)
			}
			log.Debug("Verified node keys", "node", stack, "verkey", key.Verify().Fingerprint())
		}
		return nil

	case "exchange":
		pool, err := openRegistry(conf)
		if err != nil {
			return err
		}
		defer pool.Close()

		nodes, err := pool.Pool()
		if err != nil {
			return err
		}
		if err := manager.Bootstrap(nodes); err != nil {
			return err
		}
		log.Info("Bootstrapped pool trust", "nodes", len(nodes))
		return nil

	case "serve":
		pool, err := openRegistry(conf)
		if err != nil {
			return err
		}
		defer pool.Close()

		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", conf.apiport))
		if err != nil {
			return err
		}
		log.Info("Serving key bootstrapping API", "addr", listener.Addr())
		return http.Serve(listener, rest.New(manager, pool, conf.basedir))

	default:
		return fmt.Errorf("unknown action: %q", conf.action)
	}
}

// openRegistry opens the pool registry configured on the command line.
func openRegistry(conf *config) (*registry.Registry, error) {
	path := conf.registry
	if path == "" {
		path = filepath.Join(conf.basedir, "registry")
	}
	return registry.Open(path)
}
