package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// zeroconfResolveBudget bounds a resolve attempt whose context carries
// no deadline of its own.
const zeroconfResolveBudget = 2 * time.Second

// ZeroconfConfig configures the zeroconf transport.
type ZeroconfConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL for publications.
	// Zero uses the library default.
	TTL time.Duration
}

// DefaultZeroconfConfig returns the default zeroconf transport configuration.
func DefaultZeroconfConfig() ZeroconfConfig {
	return ZeroconfConfig{}
}

// ZeroconfTransport is the preferred Transport, speaking multicast DNS
// via the zeroconf library. Browse answers arrive fully resolved, so
// the transport caches them and Resolve is usually a cache hit; a miss
// falls back to a bounded re-browse for the specific instance.
type ZeroconfTransport struct {
	config ZeroconfConfig

	mu      sync.Mutex
	server  *zeroconf.Server
	entries map[string]*zeroconf.ServiceEntry // keyed by instance name
}

// NewZeroconfTransport creates a zeroconf-backed transport.
func NewZeroconfTransport(config ZeroconfConfig) *ZeroconfTransport {
	return &ZeroconfTransport{
		config:  config,
		entries: make(map[string]*zeroconf.ServiceEntry),
	}
}

// Browse watches for services of the given type until ctx is cancelled.
func (t *ZeroconfTransport) Browse(ctx context.Context, serviceType, domain string, events chan<- BrowseEvent) error {
	service := zeroconfName(serviceType)
	dom := zeroconfName(domain)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go t.forward(ctx, service, domain, entries, removed, events)

	go func() {
		if err := zeroconf.Browse(ctx, service, dom, entries, removed, t.clientOptions()...); err != nil {
			postEvent(ctx, events, BrowseEvent{
				Kind: BrowseError,
				Err:  fmt.Errorf("zeroconf browse failed: %w", err),
			})
		}
	}()

	return nil
}

// forward maps zeroconf entries onto browse events and keeps the
// resolve cache current.
func (t *ZeroconfTransport) forward(
	ctx context.Context,
	service, domain string,
	entries, removed <-chan *zeroconf.ServiceEntry,
	events chan<- BrowseEvent,
) {
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			t.storeEntry(entry)
			postEvent(ctx, events, BrowseEvent{
				Kind: BrowseFound,
				Candidate: Candidate{
					Instance: entry.Instance,
					Service:  service,
					Domain:   domain,
				},
			})

		case entry, ok := <-removed:
			if !ok {
				continue
			}
			t.dropEntry(entry.Instance)
			postEvent(ctx, events, BrowseEvent{
				Kind: BrowseLost,
				Candidate: Candidate{
					Instance: entry.Instance,
					Service:  service,
					Domain:   domain,
				},
			})

		case <-ctx.Done():
			return
		}
	}
}

// Resolve returns connection details for a candidate. Entries seen by
// an active browse are served from cache; otherwise a bounded lookup
// browses the type again and picks out the instance.
func (t *ZeroconfTransport) Resolve(ctx context.Context, c Candidate) (ResolveData, error) {
	if entry, ok := t.cachedEntry(c.Instance); ok {
		return zeroconfData(entry), nil
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, zeroconfResolveBudget)
		defer cancel()
	}

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	go func() {
		for range removed {
			// Removals are irrelevant to a point lookup.
		}
	}()

	lookupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		// The library closes both channels when the lookup ends.
		errc <- zeroconf.Browse(lookupCtx, zeroconfName(c.Service), zeroconfName(c.Domain), entries, removed, t.clientOptions()...)
	}()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return ResolveData{}, fmt.Errorf("resolve %q: lookup ended without answer", c.Instance)
			}
			if entry.Instance != c.Instance {
				continue
			}
			t.storeEntry(entry)
			return zeroconfData(entry), nil

		case <-ctx.Done():
			return ResolveData{}, fmt.Errorf("resolve %q: %w", c.Instance, ctx.Err())

		case err := <-errc:
			if err != nil {
				return ResolveData{}, fmt.Errorf("resolve %q: %w", c.Instance, err)
			}
		}
	}
}

// Publish registers the advertisement, replacing any previous one held
// by this transport. Zeroconf advertises the requested name verbatim,
// so the returned name equals the requested one.
func (t *ZeroconfTransport) Publish(_ context.Context, p Publication) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.server != nil {
		t.server.Shutdown()
		t.server = nil
	}

	var opts []zeroconf.ServerOption
	if t.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(t.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		p.Name,
		zeroconfName(p.Type),
		zeroconfName(p.Domain),
		p.Port,
		TXTMapToStrings(p.Txt),
		t.interfaces(),
		opts...,
	)
	if err != nil {
		return "", fmt.Errorf("failed to register service: %w", err)
	}

	t.server = server
	return p.Name, nil
}

// Unpublish shuts down the active registration, if any.
func (t *ZeroconfTransport) Unpublish() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.server != nil {
		t.server.Shutdown()
		t.server = nil
	}
	return nil
}

func (t *ZeroconfTransport) storeEntry(entry *zeroconf.ServiceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[entry.Instance] = entry
}

func (t *ZeroconfTransport) dropEntry(instance string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, instance)
}

func (t *ZeroconfTransport) cachedEntry(instance string) (*zeroconf.ServiceEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[instance]
	return entry, ok
}

// interfaces returns the network interfaces to use for publishing.
// Returns nil to use all interfaces.
func (t *ZeroconfTransport) interfaces() []net.Interface {
	if t.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(t.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// clientOptions returns zeroconf client options based on config.
func (t *ZeroconfTransport) clientOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if t.config.Interface != "" {
		iface, err := net.InterfaceByName(t.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// zeroconfData converts a zeroconf entry to resolve data.
func zeroconfData(entry *zeroconf.ServiceEntry) ResolveData {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return ResolveData{
		Port:  entry.Port,
		Hosts: addrs,
		Txt:   StringsToTXTMap(entry.Text),
	}
}

// zeroconfName strips the canonical trailing dot; the zeroconf library
// expects bare names like "_http._tcp" and "local".
func zeroconfName(name string) string {
	return strings.TrimSuffix(name, ".")
}

// postEvent sends a browse event unless the browse is already released.
func postEvent(ctx context.Context, events chan<- BrowseEvent, ev BrowseEvent) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// Ensure ZeroconfTransport implements the Transport interface.
var _ Transport = (*ZeroconfTransport)(nil)
