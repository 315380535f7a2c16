// Package node assembles a runnable claims service: storage, ledger,
// engine, and RPC, so it can be embedded in any binary.
package node

import (
	"fmt"
	"path/filepath"

	"github.com/Klingon-tech/klingnet-claims/config"
	"github.com/Klingon-tech/klingnet-claims/internal/claims"
	"github.com/Klingon-tech/klingnet-claims/internal/fees"
	"github.com/Klingon-tech/klingnet-claims/internal/ledger"
	klog "github.com/Klingon-tech/klingnet-claims/internal/log"
	"github.com/Klingon-tech/klingnet-claims/internal/rpc"
	"github.com/Klingon-tech/klingnet-claims/internal/storage"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized claims service.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db     storage.DB
	ledger *ledger.Ledger
	engine *claims.Engine

	rpcServer *rpc.Server
}

// New creates and initializes a Node. It performs all setup steps (logger,
// storage, ledger, engine, RPC) but does not bind the listener; call
// Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" && cfg.Log.JSON {
		logFile = filepath.Join(cfg.LogsDir(), "claimd.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger := klog.WithComponent("node")

	// ── 2. Open state database ──────────────────────────────────────
	db, err := storage.NewBadger(cfg.StateDir())
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	// ── 3. Ledger and engine over namespaced views ──────────────────
	led := ledger.New(storage.NewPrefixDB(db, []byte("ledger/")))
	store := claims.NewStore(storage.NewPrefixDB(db, []byte("claims/")))

	engine := claims.NewEngine(store, led, led, led, claims.Params{
		Fees: fees.Schedule{
			MintFee:       cfg.Fees.MintFee,
			MintFeeMerkle: cfg.Fees.MintFeeMerkle,
		},
		FeeRecipient: cfg.FeeRecipient(),
		Gateway:      cfg.Gateway,
		Sink:         cfg.SinkAddress(),
	})

	n := &Node{
		cfg:    cfg,
		logger: logger,
		db:     db,
		ledger: led,
		engine: engine,
	}

	// ── 4. RPC server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		n.rpcServer = rpc.New(addr, engine, cfg.RPC)
		n.rpcServer.SetLedger(led)
	}

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("datadir", cfg.DataDir).
		Msg("claims service initialized")
	return n, nil
}

// Start binds the RPC listener.
func (n *Node) Start() error {
	if n.rpcServer == nil {
		return nil
	}
	if err := n.rpcServer.Start(); err != nil {
		return err
	}
	n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server listening")
	return nil
}

// Stop shuts down the RPC server and closes storage.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Error().Err(err).Msg("RPC shutdown failed")
		}
	}
	if err := n.db.Close(); err != nil {
		n.logger.Error().Err(err).Msg("state db close failed")
	}
	n.logger.Info().Msg("claims service stopped")
}

// RPCAddr returns the bound RPC address (useful when bound to :0).
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Engine exposes the claims engine for embedding binaries.
func (n *Node) Engine() *claims.Engine {
	return n.engine
}

// Ledger exposes the host ledger for embedding binaries.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}
