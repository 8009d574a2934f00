// Command mdns-advertise publishes one named service over mDNS and
// keeps it alive until interrupted.
//
// The operating system may rename the instance to keep it unique on
// the network; the name actually advertised is printed at startup.
//
// Usage:
//
//	mdns-advertise [flags]
//
// Flags:
//
//	-type string       Service type to advertise (default "_http._tcp.")
//	-name string       Instance name (default "go-mdns")
//	-port int          Port to advertise (required, 1-65535)
//	-txt value         TXT record as key=value, repeatable
//	-transport string  Transport: zeroconf, hashicorp (default "zeroconf")
//	-iface string      Network interface to use (zeroconf only, default all)
//	-config string     YAML configuration file path
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-capture string    Write capture events to this file (CBOR)
//	-interactive       Run an interactive shell instead of blocking
//
// Examples:
//
//	# Advertise a web server
//	mdns-advertise -name "My Server" -port 8080
//
//	# Advertise a printer with metadata
//	mdns-advertise -type _ipp._tcp. -name "Office Printer" -port 631 \
//	    -txt rp=ipp/print -txt pdl=application/pdf
//
//	# Drive advertisement from an interactive shell
//	mdns-advertise -port 8080 -interactive
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devioarts/go-mdns/cmd/mdns-advertise/interactive"
	"github.com/devioarts/go-mdns/pkg/discovery"
	"github.com/devioarts/go-mdns/pkg/log"
)

// Config holds the advertisement configuration. YAML tags allow the
// same fields to load from a -config file; flags win over the file.
type Config struct {
	Type      string            `yaml:"type"`
	Name      string            `yaml:"name"`
	Port      int               `yaml:"port"`
	Txt       map[string]string `yaml:"txt"`
	Transport string            `yaml:"transport"`
	Interface string            `yaml:"interface"`
	LogLevel  string            `yaml:"logLevel"`
	Capture   string            `yaml:"capture"`

	ConfigFile  string `yaml:"-"`
	Interactive bool   `yaml:"-"`
}

// txtFlags collects repeated -txt key=value flags.
type txtFlags map[string]string

func (t txtFlags) String() string {
	pairs := make([]string, 0, len(t))
	for k, v := range t {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (t txtFlags) Set(value string) error {
	key, val, found := strings.Cut(value, "=")
	if !found || key == "" {
		return fmt.Errorf("want key=value, got %q", value)
	}
	t[key] = val
	return nil
}

var config = Config{Txt: txtFlags{}}

func init() {
	flag.StringVar(&config.Type, "type", discovery.DefaultServiceType, "Service type to advertise")
	flag.StringVar(&config.Name, "name", discovery.DefaultInstanceName, "Instance name")
	flag.IntVar(&config.Port, "port", 0, "Port to advertise (required, 1-65535)")
	flag.Var(txtFlags(config.Txt), "txt", "TXT record as key=value, repeatable")
	flag.StringVar(&config.Transport, "transport", "zeroconf", "Transport: zeroconf, hashicorp")
	flag.StringVar(&config.Interface, "iface", "", "Network interface to use (zeroconf only, default all)")
	flag.StringVar(&config.ConfigFile, "config", "", "YAML configuration file path")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.Capture, "capture", "", "Write capture events to this file (CBOR)")
	flag.BoolVar(&config.Interactive, "interactive", false, "Run an interactive shell instead of blocking")
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

	advCfg := discovery.DefaultAdvertiserConfig()
	advCfg.Logger = capture
	advertiser, err := discovery.NewAdvertiser(transport, advCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if config.Interactive {
		runInteractive(ctx, stop, advertiser, transport, capture)
		return
	}

	result, err := advertiser.Start(ctx, discovery.BroadcastRequest{
		Type: config.Type,
		Name: config.Name,
		Port: config.Port,
		Txt:  config.Txt,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	if result.Error {
		fmt.Fprintf(os.Stderr, "publish failed: %s\n", result.ErrorMessage)
		os.Exit(1)
	}

	logger.Info("advertising",
		"name", result.Name,
		"type", config.Type,
		"port", config.Port)
	if result.Name != config.Name {
		logger.Info("instance name was taken, renamed", "requested", config.Name, "actual", result.Name)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if stopResult := advertiser.Stop(); stopResult.Error {
		logger.Error("stop failed", "error", stopResult.ErrorMessage)
		os.Exit(1)
	}
}

func runInteractive(
	ctx context.Context,
	cancel context.CancelFunc,
	advertiser *discovery.Advertiser,
	transport discovery.Transport,
	capture log.Logger,
) {
	discoverer, err := discovery.NewDiscoverer(transport, discovery.DiscovererConfig{Logger: capture})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	shell, err := interactive.New(advertiser, discoverer, interactive.Defaults{
		Type: config.Type,
		Name: config.Name,
		Port: config.Port,
		Txt:  config.Txt,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	shell.Run(ctx, cancel)

	if stopResult := advertiser.Stop(); stopResult.Error {
		fmt.Fprintf(os.Stderr, "stop failed: %s\n", stopResult.ErrorMessage)
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
	fileCfg.Txt = nil
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
	if !set["port"] && fileCfg.Port != 0 {
		cfg.Port = fileCfg.Port
	}
	if !set["txt"] && len(fileCfg.Txt) > 0 {
		cfg.Txt = fileCfg.Txt
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
		zc.TTL = 120 * time.Second
		return discovery.NewZeroconfTransport(zc), nil
	case "hashicorp":
		return discovery.NewHashicorpTransport(discovery.DefaultHashicorpConfig()), nil
	default:
		return nil, fmt.Errorf("unknown transport: %s (want zeroconf or hashicorp)", cfg.Transport)
	}
}
