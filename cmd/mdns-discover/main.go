// Command mdns-discover runs one bounded mDNS discovery and prints the
// services it found.
//
// The run ends on the first of: the target service appearing (with
// -name), the network going quiet for the settle window, or the hard
// timeout. Zero services found is a normal outcome, not an error.
//
// Usage:
//
//	mdns-discover [flags]
//
// Flags:
//
//	-type string       Service type to browse for (default "_http._tcp.")
//	-name string       Only report this instance name (early exit on match)
//	-domain string     Browse domain (default "local.")
//	-timeout duration  Hard time budget (default 3s)
//	-settle duration   Quiescence window (default 350ms)
//	-strict            Reject malformed service types instead of fixing them up
//	-transport string  Transport: zeroconf, hashicorp (default "zeroconf")
//	-iface string      Network interface to use (zeroconf only, default all)
//	-config string     YAML configuration file path
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-capture string    Write capture events to this file (CBOR)
//	-json              Print the result as JSON
//
// Examples:
//
//	# Find all HTTP services on the local network
//	mdns-discover -type _http._tcp.
//
//	# Wait up to 5s for one specific AirPlay receiver
//	mdns-discover -type _airplay._tcp. -name "Living Room TV" -timeout 5s
//
//	# Machine-readable output with a capture trace
//	mdns-discover -json -capture discover.mlog
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devioarts/go-mdns/pkg/discovery"
	"github.com/devioarts/go-mdns/pkg/log"
)

// Config holds the discovery run configuration. YAML tags allow the
// same fields to load from a -config file; flags win over the file.
type Config struct {
	Type      string        `yaml:"type"`
	Name      string        `yaml:"name"`
	Domain    string        `yaml:"domain"`
	Timeout   time.Duration `yaml:"timeout"`
	Settle    time.Duration `yaml:"settle"`
	Strict    bool          `yaml:"strict"`
	Transport string        `yaml:"transport"`
	Interface string        `yaml:"interface"`
	LogLevel  string        `yaml:"logLevel"`
	Capture   string        `yaml:"capture"`
	JSON      bool          `yaml:"json"`

	ConfigFile string `yaml:"-"`
}

var config Config

func init() {
	flag.StringVar(&config.Type, "type", discovery.DefaultServiceType, "Service type to browse for")
	flag.StringVar(&config.Name, "name", "", "Only report this instance name (early exit on match)")
	flag.StringVar(&config.Domain, "domain", discovery.DefaultDomain, "Browse domain")
	flag.DurationVar(&config.Timeout, "timeout", discovery.DefaultTimeout, "Hard time budget")
	flag.DurationVar(&config.Settle, "settle", discovery.DefaultSettleWindow, "Quiescence window")
	flag.BoolVar(&config.Strict, "strict", false, "Reject malformed service types instead of fixing them up")
	flag.StringVar(&config.Transport, "transport", "zeroconf", "Transport: zeroconf, hashicorp")
	flag.StringVar(&config.Interface, "iface", "", "Network interface to use (zeroconf only, default all)")
	flag.StringVar(&config.ConfigFile, "config", "", "YAML configuration file path")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.Capture, "capture", "", "Write capture events to this file (CBOR)")
	flag.BoolVar(&config.JSON, "json", false, "Print the result as JSON")
}

func main() {
	flag.Parse()

	if config.ConfigFile != "" {
		if err := loadConfigFile(config.ConfigFile, &config); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(2)
		}
	}

	logger := setupLogging(config.LogLevel)

	capture, closeCapture, err := setupCapture(config.Capture, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "capture: %v\n", err)
		os.Exit(2)
	}
	defer closeCapture()

	transport, err := buildTransport(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	discoverer, err := discovery.NewDiscoverer(transport, discovery.DiscovererConfig{
		SettleWindow: config.Settle,
		Logger:       capture,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("discovering",
		"type", config.Type,
		"name", config.Name,
		"timeout", config.Timeout,
		"transport", config.Transport)

	result, err := discoverer.Discover(ctx, discovery.DiscoverRequest{
		Type:         config.Type,
		Name:         config.Name,
		Domain:       config.Domain,
		Timeout:      config.Timeout,
		SettleWindow: config.Settle,
		StrictType:   config.Strict,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	if config.JSON {
		printJSON(result)
	} else {
		printResult(result)
	}

	if result.Error {
		os.Exit(1)
	}
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// The file provides values only for fields no flag set explicitly.
	fileCfg := *cfg
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["type"] {
		cfg.Type = fileCfg.Type
	}
	if !set["name"] {
		cfg.Name = fileCfg.Name
	}
	if !set["domain"] {
		cfg.Domain = fileCfg.Domain
	}
	if !set["timeout"] && fileCfg.Timeout > 0 {
		cfg.Timeout = fileCfg.Timeout
	}
	if !set["settle"] && fileCfg.Settle > 0 {
		cfg.Settle = fileCfg.Settle
	}
	if !set["strict"] {
		cfg.Strict = fileCfg.Strict
	}
	if !set["transport"] && fileCfg.Transport != "" {
		cfg.Transport = fileCfg.Transport
	}
	if !set["iface"] {
		cfg.Interface = fileCfg.Interface
	}
	if !set["log-level"] && fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if !set["capture"] {
		cfg.Capture = fileCfg.Capture
	}
	if !set["json"] {
		cfg.JSON = fileCfg.JSON
	}
	return nil
}

func setupLogging(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}

// setupCapture builds the capture logger: a CBOR file when -capture is
// set, always mirrored to slog at debug level.
func setupCapture(path string, logger *slog.Logger) (log.Logger, func(), error) {
	adapter := log.NewSlogAdapter(logger)
	if path == "" {
		return adapter, func() {}, nil
	}

	fileLogger, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	return log.NewMultiLogger(fileLogger, adapter), func() { fileLogger.Close() }, nil
}

func buildTransport(cfg Config) (discovery.Transport, error) {
	switch strings.ToLower(cfg.Transport) {
	case "", "zeroconf":
		zc := discovery.DefaultZeroconfConfig()
		zc.Interface = cfg.Interface
		return discovery.NewZeroconfTransport(zc), nil
	case "hashicorp":
		return discovery.NewHashicorpTransport(discovery.DefaultHashicorpConfig()), nil
	default:
		return nil, errors.New("unknown transport: " + cfg.Transport + " (want zeroconf or hashicorp)")
	}
}

func printResult(result discovery.DiscoveryResult) {
	if result.Error {
		fmt.Printf("browse failed: %s\n", result.ErrorMessage)
	}
	fmt.Printf("%d service(s) found\n", result.ServicesFound)

	for _, svc := range result.Services {
		fmt.Printf("  %s\n", svc.Name)
		fmt.Printf("    type:  %s%s\n", svc.Type, svc.Domain)
		fmt.Printf("    port:  %d\n", svc.Port)
		if len(svc.Hosts) > 0 {
			fmt.Printf("    hosts: %s\n", strings.Join(svc.Hosts, ", "))
		}
		for k, v := range svc.Txt {
			fmt.Printf("    txt:   %s=%s\n", k, v)
		}
	}
}

func printJSON(result discovery.DiscoveryResult) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
	}
}
