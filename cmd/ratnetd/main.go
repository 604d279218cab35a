// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bfix/gospel/logger"

	"ratnet/config"
	"ratnet/ipc"
	"ratnet/journal"
	"ratnet/metrics"
	"ratnet/netmod/udp"
	"ratnet/router"
	"ratnet/rpcadmin"
	"ratnet/seal"
	"ratnet/store"
)

func main() {
	defer func() {
		logger.Println(logger.INFO, "[ratnetd] Bye.")
		logger.Flush()
	}()

	var (
		cfgFile   string
		logLevel  int
		genKey    bool
		udpAddr   string
		ipcAddr   string
		adminAddr string
		signKey   string
	)
	flag.StringVar(&cfgFile, "c", "ratnet-config.json", "daemon configuration file")
	flag.IntVar(&logLevel, "L", logger.INFO, "log level (default: INFO)")
	flag.BoolVar(&genKey, "gen-keypair", false, "generate a NaCl box keypair for client signing, print it and exit")
	flag.StringVar(&udpAddr, "udp", "", "override the configured UDP netmod bind address")
	flag.StringVar(&ipcAddr, "ipc", "", "override the configured IPC daemon bind address")
	flag.StringVar(&adminAddr, "admin", "", "override the configured admin HTTP bind address")
	flag.StringVar(&signKey, "sign-key", "", "hex-encoded 32-byte key; when set, outbound messages with no client-supplied signature are sealed with it")
	flag.Parse()

	if genKey {
		runGenKeypair()
		return
	}

	logger.SetLogLevel(logLevel)
	logger.Println(logger.INFO, "[ratnetd] Starting...")

	if err := config.Parse(cfgFile); err != nil {
		logger.Printf(logger.ERROR, "[ratnetd] invalid configuration: %s\n", err.Error())
		return
	}
	cfg := config.Cfg
	if udpAddr != "" {
		cfg.UDP.Bind = udpAddr
	}
	if ipcAddr != "" {
		cfg.IPC.Bind = ipcAddr
	}
	if adminAddr != "" {
		cfg.Admin.Bind = adminAddr
	}

	var signer func(payload []byte) []byte
	if signKey != "" {
		fn, err := newPayloadSigner(signKey)
		if err != nil {
			logger.Printf(logger.ERROR, "[ratnetd] -sign-key: %s\n", err.Error())
			return
		}
		signer = fn
	}

	backing, err := store.Open(cfg.Store)
	if err != nil {
		logger.Printf(logger.ERROR, "[ratnetd] store: %s\n", err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := journal.New(backing, cfg.Journal.TTL.Duration())
	go j.Run(ctx)

	table := udp.NewAddressTable()
	sock, err := udp.Bind(ctx, cfg.UDP.Bind, table, func(format string, args ...interface{}) {
		logger.Printf(logger.ERROR, "[ratnetd] udp: "+format, args...)
		logger.Flush()
		os.Exit(1)
	})
	if err != nil {
		logger.Printf(logger.ERROR, "[ratnetd] udp bind failed: %s\n", err.Error())
		logger.Flush()
		os.Exit(1)
	}
	netmod := udp.NewNetmod(sock, table)

	r := router.New(j, cfg.Collector.ReassemblyTTL.Duration(), netmod)
	go r.Run(ctx)

	metrics.SetJournalSizeFunc(func() float64 { return float64(j.Size()) })
	metrics.SetCollectorActiveFunc(func() float64 { return float64(r.CollectorActive()) })

	daemon := ipc.New(cfg.IPC.Bind, r)
	if signer != nil {
		daemon.SetSigner(signer)
	}
	go func() {
		if err := daemon.Run(ctx); err != nil {
			logger.Printf(logger.ERROR, "[ratnetd] ipc: %s\n", err.Error())
			logger.Flush()
			os.Exit(1)
		}
	}()

	var admin *rpcadmin.Server
	if cfg.Admin.Bind != "" {
		admin = rpcadmin.New(cfg.Admin.Bind, func() rpcadmin.Status {
			return rpcadmin.Status{
				OnlineAddresses:  daemon.OnlineCount(),
				KnownPeers:       len(r.KnownAddresses()),
				JournalSize:      j.Size(),
				CollectorWorkers: r.CollectorActive(),
			}
		})
		go func() {
			if err := admin.Run(ctx); err != nil {
				logger.Printf(logger.ERROR, "[ratnetd] admin: %s\n", err.Error())
			}
		}()
	}

	sigCh := make(chan os.Signal, 5)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

loop:
	for sig := range sigCh {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			logger.Printf(logger.INFO, "[ratnetd] terminating on signal '%s'\n", sig)
			break loop
		case syscall.SIGHUP:
			logger.Println(logger.INFO, "[ratnetd] SIGHUP (reload not implemented)")
		}
	}
	cancel()
}

// newPayloadSigner decodes a hex-encoded 32-byte symmetric key and
// returns a closure that seals a payload under it, nonce prepended to
// the ciphertext. The seal package is only ever reached through this
// closure: router, collector and ipc treat Sign as an opaque blob.
func newPayloadSigner(hexKey string) (func(payload []byte) []byte, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return func(payload []byte) []byte {
		nonce, ciphertext, err := seal.SymmetricSeal(key, payload)
		if err != nil {
			logger.Printf(logger.WARN, "[ratnetd] sign-key: seal failed: %s", err.Error())
			return nil
		}
		out := make([]byte, 0, len(nonce)+len(ciphertext))
		out = append(out, nonce[:]...)
		out = append(out, ciphertext...)
		return out
	}, nil
}

func runGenKeypair() {
	pub, priv, err := seal.GenerateKeyPair()
	if err != nil {
		logger.Printf(logger.ERROR, "[ratnetd] keypair generation failed: %s\n", err.Error())
		return
	}
	fmt.Printf("public:  %s\n", hex.EncodeToString(pub[:]))
	fmt.Printf("private: %s\n", hex.EncodeToString(priv[:]))
}
