// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LarryRuane/bitcoin/config"
	"github.com/LarryRuane/bitcoin/domain/consensus/database"
	"github.com/LarryRuane/bitcoin/domain/consensus/database/ldb"
	"github.com/LarryRuane/bitcoin/domain/consensus/utxo"
	"github.com/LarryRuane/bitcoin/infrastructure/logger"
	"github.com/LarryRuane/bitcoin/util/panics"
)

var log = logger.RegisterSubSystem("BCND")

const cacheUsagePollInterval = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires config -> logger backend -> leveldb coin store -> the cache
// stack, and blocks until an interrupt arrives. Grounded on kaspad's
// main.go/kaspad.go startup sequence, trimmed to this daemon's much
// smaller set of services (no p2p, no RPC server: out of scope).
func run() error {
	if err := config.LoadAndSetActiveConfig(); err != nil {
		return err
	}
	cfg := config.ActiveConfig()

	backend := logger.DefaultBackend()
	if err := backend.AddLogFileWithCustomRotator(
		logFilePath(cfg), logger.LevelTrace, cfg.MaxLogFileBytes, cfg.MaxLogBackups,
	); err != nil {
		return fmt.Errorf("failed to attach log file: %w", err)
	}
	if err := backend.Run(); err != nil {
		return err
	}
	defer backend.Close()

	if err := logger.SetLogLevels(cfg.DebugLevel); err != nil {
		return fmt.Errorf("invalid debuglevel: %w", err)
	}

	defer panics.HandlePanic(log, nil)

	log.Infof("Coin store: %s", cfg.CoinDBDir)
	store, err := ldb.NewCoinStore(cfg.CoinDBDir)
	if err != nil {
		return fmt.Errorf("failed to open coin store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("Error closing coin store: %+v", err)
		}
	}()

	base := ldb.NewView(store)
	errCatching := utxo.NewErrorCatchingView(base)
	cache := utxo.NewCache(errCatching, cfg.WithCommitment)
	cache.SetFlushWatermarks(uint64(cfg.FlushLowWatermarkPct), uint64(cfg.FlushHighWatermarkPct))

	// A read fault deep in the store means the cache's in-memory state
	// can no longer be trusted to reconcile with what's on disk, so the
	// error-catching view's callback closes the coin store rather than
	// let cache.Flush race the process exit. panics.Exit, which runs right
	// after the callbacks, then logs the reason and closes the log backend.
	errCatching.AddErrorCallback(func() {
		if err := store.Close(); err != nil {
			log.Errorf("Error closing coin store during fatal shutdown: %+v", err)
		}
	})

	log.Infof("UTXO cache ready, budget %d bytes, watermarks %d%%/%d%%",
		cfg.CacheSizeBytes, cfg.FlushLowWatermarkPct, cfg.FlushHighWatermarkPct)

	interrupt := interruptListener()
	flushDone := watchCacheUsage(cache, cfg.CacheSizeBytes, interrupt)

	<-interrupt
	log.Infof("Shutting down")
	<-flushDone
	return nil
}

func logFilePath(cfg *config.Config) string {
	return cfg.LogDir + string(os.PathSeparator) + "bitcoind.log"
}

// interruptListener returns a channel closed on SIGINT/SIGTERM.
func interruptListener() <-chan struct{} {
	c := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		close(c)
	}()
	return c
}

// exitOnFlushFailure treats a flush I/O fault the same way
// ErrorCatchingView treats a read I/O fault: the dirty entries that
// failed to commit can't be told apart from entries that were never
// written at all, so continuing to run risks silently losing coins on
// the next restart. op names which flush attempt failed, for the log.
func exitOnFlushFailure(op string, err error) {
	if database.IsIOError(err) {
		panics.Exit(log, op+" failed: "+err.Error())
		return
	}
	log.Errorf("%s failed: %+v", op, err)
}

// watchCacheUsage periodically checks the cache's dynamic memory usage
// against budget and flushes when it's exceeded, until interrupt fires,
// at which point it does one final full flush before closing flushDone.
// Grounded on spec.md §4.D's "caller decides when to call Flush" design:
// the cache itself never schedules its own flush.
func watchCacheUsage(cache *utxo.Cache, budget uint64, interrupt <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(cacheUsagePollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-interrupt:
				if err := cache.Flush(false); err != nil {
					exitOnFlushFailure("final flush", err)
				}
				return
			case <-ticker.C:
				if cache.CachedCoinsUsage() > budget {
					if err := cache.Flush(true); err != nil {
						exitOnFlushFailure("flush", err)
					}
				}
			}
		}
	}()
	return done
}
