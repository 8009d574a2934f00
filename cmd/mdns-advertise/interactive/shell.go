// Package interactive provides the interactive command-line interface
// for mdns-advertise.
package interactive

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/devioarts/go-mdns/pkg/discovery"
)

// Defaults seed the shell with the values parsed from the command line
// so a bare "start" advertises exactly what the flags described.
type Defaults struct {
	Type string
	Name string
	Port int
	Txt  map[string]string
}

// Shell handles interactive mode for mdns-advertise.
type Shell struct {
	advertiser *discovery.Advertiser
	discoverer *discovery.Discoverer
	defaults   Defaults
	rl         *readline.Instance

	txt map[string]string
}

// New creates a new interactive shell.
func New(advertiser *discovery.Advertiser, discoverer *discovery.Discoverer, defaults Defaults) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mdns> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	txt := make(map[string]string, len(defaults.Txt))
	for k, v := range defaults.Txt {
		txt[k] = v
	}

	return &Shell{
		advertiser: advertiser,
		discoverer: discoverer,
		defaults:   defaults,
		rl:         rl,
		txt:        txt,
	}, nil
}

// Run starts the interactive command loop. It returns when the user
// quits or ctx is cancelled.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "start":
			s.cmdStart(ctx, args)

		case "stop":
			s.cmdStop()

		case "status":
			s.cmdStatus()

		case "txt":
			s.cmdTxt(args)

		case "discover", "d":
			s.cmdDiscover(ctx, args)

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
mDNS Commands:
  Advertisement:
    start [name] [port]  - Advertise a service (defaults from flags)
    stop                 - Stop the active advertisement
    status               - Show what is being advertised
    txt                  - List TXT records for the next start
    txt key=value        - Set a TXT record
    txt -key             - Remove a TXT record

  Discovery:
    discover [type] [timeout]  - Browse for services (default type from flags, 3s)

  General:
    help               - Show this help
    quit               - Exit`)
}

// cmdStart handles the start command.
func (s *Shell) cmdStart(ctx context.Context, args []string) {
	name := s.defaults.Name
	port := s.defaults.Port

	if len(args) > 0 {
		name = args[0]
	}
	if len(args) > 1 {
		p, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "Invalid port: %s\n", args[1])
			return
		}
		port = p
	}

	result, err := s.advertiser.Start(ctx, discovery.BroadcastRequest{
		Type: s.defaults.Type,
		Name: name,
		Port: port,
		Txt:  s.txt,
	})
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if result.Error {
		fmt.Fprintf(s.rl.Stdout(), "Publish failed: %s\n", result.ErrorMessage)
		return
	}

	fmt.Fprintf(s.rl.Stdout(), "Advertising %q on port %d\n", result.Name, port)
	if result.Name != name {
		fmt.Fprintf(s.rl.Stdout(), "Note: name was taken, renamed from %q\n", name)
	}
}

// cmdStop handles the stop command.
func (s *Shell) cmdStop() {
	result := s.advertiser.Stop()
	if result.Error {
		fmt.Fprintf(s.rl.Stdout(), "Stop failed: %s\n", result.ErrorMessage)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "Stopped")
}

// cmdStatus handles the status command.
func (s *Shell) cmdStatus() {
	pub, finalName, active := s.advertiser.Active()
	if !active {
		fmt.Fprintln(s.rl.Stdout(), "Not advertising")
		return
	}

	fmt.Fprintf(s.rl.Stdout(), "Advertising %q\n", finalName)
	fmt.Fprintf(s.rl.Stdout(), "  type: %s%s\n", pub.Type, pub.Domain)
	fmt.Fprintf(s.rl.Stdout(), "  port: %d\n", pub.Port)
	for k, v := range pub.Txt {
		fmt.Fprintf(s.rl.Stdout(), "  txt:  %s=%s\n", k, v)
	}
}

// cmdTxt handles the txt command.
func (s *Shell) cmdTxt(args []string) {
	if len(args) == 0 {
		if len(s.txt) == 0 {
			fmt.Fprintln(s.rl.Stdout(), "No TXT records")
			return
		}
		for k, v := range s.txt {
			fmt.Fprintf(s.rl.Stdout(), "  %s=%s\n", k, v)
		}
		return
	}

	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			delete(s.txt, strings.TrimPrefix(arg, "-"))
			continue
		}
		key, val, found := strings.Cut(arg, "=")
		if !found || key == "" {
			fmt.Fprintf(s.rl.Stdout(), "Want key=value or -key, got %q\n", arg)
			continue
		}
		s.txt[key] = val
	}
	fmt.Fprintln(s.rl.Stdout(), "TXT records take effect on the next start")
}

// cmdDiscover handles the discover command.
func (s *Shell) cmdDiscover(ctx context.Context, args []string) {
	serviceType := s.defaults.Type
	timeout := discovery.DefaultTimeout

	if len(args) > 0 {
		serviceType = args[0]
	}
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "Invalid timeout: %s\n", args[1])
			return
		}
		timeout = d
	}

	fmt.Fprintf(s.rl.Stdout(), "Browsing %s for up to %s...\n", serviceType, timeout)

	result, err := s.discoverer.Discover(ctx, discovery.DiscoverRequest{
		Type:    serviceType,
		Timeout: timeout,
	})
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if result.Error {
		fmt.Fprintf(s.rl.Stdout(), "Browse failed: %s\n", result.ErrorMessage)
	}

	fmt.Fprintf(s.rl.Stdout(), "%d service(s) found\n", result.ServicesFound)
	for _, svc := range result.Services {
		fmt.Fprintf(s.rl.Stdout(), "  %s  port %d", svc.Name, svc.Port)
		if len(svc.Hosts) > 0 {
			fmt.Fprintf(s.rl.Stdout(), "  [%s]", strings.Join(svc.Hosts, ", "))
		}
		fmt.Fprintln(s.rl.Stdout())
	}
}
