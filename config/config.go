// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/LarryRuane/bitcoin/infrastructure/logger"
)

const (
	defaultConfigFilename = "bitcoind.conf"
	defaultDataDirname    = "data"
	defaultCoinDBDirname  = "coins"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "bitcoind.log"

	// defaultCacheSizeBytes is the UTXO cache's total dynamic-memory
	// budget before the validator should call Flush.
	defaultCacheSizeBytes = 300 * 1000 * 1000

	// defaultFlushLowWatermarkPct/defaultFlushHighWatermarkPct mirror
	// utxo.FlushLowWatermarkPct/FlushHighWatermarkPct, exposed as flags
	// instead of hardcoded per SPEC_FULL.md §2.
	defaultFlushLowWatermarkPct  = 10
	defaultFlushHighWatermarkPct = 90

	defaultMaxLogFileBytes = 100 * 1000 * 1000
	defaultMaxLogBackups   = 8
)

var (
	// DefaultHomeDir is the default home directory for the daemon.
	DefaultHomeDir = appDataDir("bitcoind", false)

	defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)
	defaultDataDir     = filepath.Join(DefaultHomeDir, defaultDataDirname)
	defaultLogDir      = filepath.Join(DefaultHomeDir, defaultLogDirname)
)

var activeConfig *Config

// Flags defines the daemon's command-line and config-file options. The
// scope is deliberately narrow: no P2P, RPC, or wallet flags, since those
// subsystems are out of scope (spec.md §1's Non-goals).
//
// Grounded on config/config.go's Flags struct and go-flags tag
// conventions, trimmed to what this daemon actually has.
type Flags struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`

	DataDir   string `short:"b" long:"datadir" description:"Directory to store the coin database"`
	CoinDBDir string `long:"coindbdir" description:"Directory for the leveldb coin store (relative to datadir if not absolute)"`
	LogDir    string `long:"logdir" description:"Directory to write log files"`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,... -- Use show to list available subsystems"`

	MaxLogFileBytes int64 `long:"maxlogfilebytes" description:"Roll the active log file over once it exceeds this many bytes"`
	MaxLogBackups   int   `long:"maxlogbackups" description:"Maximum number of rotated log backups to keep"`

	CacheSizeBytes        uint64 `long:"cachesizebytes" description:"Total dynamic memory budget for the UTXO cache before a flush is required"`
	FlushLowWatermarkPct  int    `long:"flushlowwatermarkpct" description:"At or below this percentage of FLUSH-tagged cache usage, do a full flush instead of partial"`
	FlushHighWatermarkPct int    `long:"flushhighwatermarkpct" description:"At or above this percentage of FLUSH-tagged cache usage, do a full flush instead of partial"`

	WithCommitment bool `long:"withcommitment" description:"Maintain the UTXO-set commitment multiset alongside the cache"`
}

// Config is the fully parsed, validated configuration.
type Config struct {
	*Flags
}

// appDataDir returns the default root directory for application data,
// honoring the platform convention. The teacher's config.go only calls
// an external util.AppDataDir with no source in this pack; this is
// grounded instead on cmd/miner/common/utils.go's appDataDir (same
// OS-switch shape, same LOCALAPPDATA/APPDATA/home-dir fallback).
func appDataDir(appName string, roaming bool) string {
	if appName == "" || appName == "." {
		return "."
	}
	appName = strings.TrimPrefix(appName, ".")
	appNameUpper := strings.ToUpper(appName[:1]) + appName[1:]
	appNameLower := strings.ToLower(appName[:1]) + appName[1:]

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if roaming {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, appNameUpper)
		}
		return filepath.Join(homeDir, appNameUpper)
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appNameUpper)
	case "plan9":
		return filepath.Join(homeDir, appNameLower)
	default:
		return filepath.Join(homeDir, "."+appNameLower)
	}
}

// cleanAndExpandPath expands environment variables and a leading ~ in
// path, then cleans the result.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// newConfigParser returns a configured flags parser for cfgFlags.
func newConfigParser(cfgFlags *Flags, options flags.Options) *flags.Parser {
	return flags.NewParser(cfgFlags, options)
}

// LoadAndSetActiveConfig parses the command line (and config file, if
// present) and stores the result for ActiveConfig to return.
func LoadAndSetActiveConfig() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	activeConfig = cfg
	return nil
}

// ActiveConfig returns the configuration loaded by LoadAndSetActiveConfig.
func ActiveConfig() *Config {
	return activeConfig
}

// loadConfig initializes and parses the config using a config file and
// command-line options, in that order, command line taking precedence.
// Grounded on config/config.go's loadConfig, trimmed to this daemon's
// flag set and its validation rules.
func loadConfig() (*Config, []string, error) {
	cfgFlags := Flags{
		ConfigFile:            defaultConfigFile,
		DataDir:                defaultDataDir,
		CoinDBDir:               defaultCoinDBDirname,
		LogDir:                  defaultLogDir,
		DebugLevel:              defaultLogLevel,
		MaxLogFileBytes:         defaultMaxLogFileBytes,
		MaxLogBackups:           defaultMaxLogBackups,
		CacheSizeBytes:          defaultCacheSizeBytes,
		FlushLowWatermarkPct:    defaultFlushLowWatermarkPct,
		FlushHighWatermarkPct:   defaultFlushHighWatermarkPct,
	}

	preCfg := cfgFlags
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", "0.1.0")
		os.Exit(0)
	}

	var configFileError error
	parser := newConfigParser(&cfgFlags, flags.Default)
	if preCfg.ConfigFile != defaultConfigFile || fileExists(preCfg.ConfigFile) {
		err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			if _, ok := err.(*os.PathError); !ok {
				fmt.Fprintf(os.Stderr, "Error parsing config file: %s\n", err)
				fmt.Fprintln(os.Stderr, usageMessage)
				return nil, nil, err
			}
			configFileError = err
		}
	}

	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	cfg := &Config{Flags: &cfgFlags}

	if err := os.MkdirAll(DefaultHomeDir, 0700); err != nil {
		return nil, nil, errors.Wrap(err, "loadConfig: failed to create home directory")
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	if !filepath.IsAbs(cfg.CoinDBDir) {
		cfg.CoinDBDir = filepath.Join(cfg.DataDir, cfg.CoinDBDir)
	}

	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", logger.SupportedSubsystems())
		os.Exit(0)
	}

	if cfg.FlushLowWatermarkPct < 0 || cfg.FlushLowWatermarkPct > 100 ||
		cfg.FlushHighWatermarkPct < 0 || cfg.FlushHighWatermarkPct > 100 ||
		cfg.FlushLowWatermarkPct >= cfg.FlushHighWatermarkPct {
		err := errors.Errorf("loadConfig: flushlowwatermarkpct (%d) must be less than flushhighwatermarkpct (%d), both in [0,100]",
			cfg.FlushLowWatermarkPct, cfg.FlushHighWatermarkPct)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	if cfg.CacheSizeBytes == 0 {
		err := errors.Errorf("loadConfig: cachesizebytes must be greater than 0")
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	if configFileError != nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", configFileError)
	}

	return cfg, remainingArgs, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
