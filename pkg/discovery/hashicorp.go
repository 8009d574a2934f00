package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

// HashicorpConfig configures the hashicorp/mdns transport.
type HashicorpConfig struct {
	// QueryTimeout bounds each one-shot query cycle.
	// Default: 1 second.
	QueryTimeout time.Duration

	// QueryInterval is the pause between query cycles while browsing.
	// Default: 1 second.
	QueryInterval time.Duration

	// DisableIPv6 skips IPv6 queries on networks that drop them.
	DisableIPv6 bool
}

// DefaultHashicorpConfig returns the default hashicorp transport configuration.
func DefaultHashicorpConfig() HashicorpConfig {
	return HashicorpConfig{
		QueryTimeout:  time.Second,
		QueryInterval: time.Second,
	}
}

// HashicorpTransport is the fallback Transport, built on the
// hashicorp/mdns one-shot query model. Browsing repeats query cycles
// until the context ends; because each cycle is a fresh query, this
// transport never observes goodbye packets and emits no lost events.
type HashicorpTransport struct {
	config HashicorpConfig

	mu      sync.Mutex
	server  *mdns.Server
	entries map[string]*mdns.ServiceEntry // keyed by instance name
}

// NewHashicorpTransport creates a hashicorp/mdns-backed transport.
func NewHashicorpTransport(config HashicorpConfig) *HashicorpTransport {
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = time.Second
	}
	if config.QueryInterval <= 0 {
		config.QueryInterval = time.Second
	}

	return &HashicorpTransport{
		config:  config,
		entries: make(map[string]*mdns.ServiceEntry),
	}
}

// Browse repeats one-shot queries for the service type until ctx is
// cancelled, posting a found event the first time each instance appears.
func (t *HashicorpTransport) Browse(ctx context.Context, serviceType, domain string, events chan<- BrowseEvent) error {
	go t.browseLoop(ctx, serviceType, domain, events)
	return nil
}

func (t *HashicorpTransport) browseLoop(ctx context.Context, serviceType, domain string, events chan<- BrowseEvent) {
	service := strings.TrimSuffix(serviceType, ".")
	dom := strings.TrimSuffix(domain, ".")
	seen := make(map[string]bool)

	for {
		entriesCh := make(chan *mdns.ServiceEntry, 16)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entriesCh {
				instance := instanceFromName(entry.Name, service, dom)
				if instance == "" {
					continue
				}
				t.storeEntry(instance, entry)
				if seen[instance] {
					continue
				}
				seen[instance] = true
				postEvent(ctx, events, BrowseEvent{
					Kind: BrowseFound,
					Candidate: Candidate{
						Instance: instance,
						Service:  service,
						Domain:   domain,
					},
				})
			}
		}()

		params := mdns.DefaultParams(service)
		params.Domain = dom
		params.Timeout = t.config.QueryTimeout
		params.Entries = entriesCh
		params.DisableIPv6 = t.config.DisableIPv6

		if err := mdns.Query(params); err != nil {
			postEvent(ctx, events, BrowseEvent{
				Kind: BrowseError,
				Err:  fmt.Errorf("mdns query failed: %w", err),
			})
		}
		close(entriesCh)
		<-done

		select {
		case <-ctx.Done():
			return
		case <-time.After(t.config.QueryInterval):
		}
	}
}

// Resolve serves a candidate from the query cache, or runs one more
// query cycle looking for the specific instance.
func (t *HashicorpTransport) Resolve(ctx context.Context, c Candidate) (ResolveData, error) {
	if entry, ok := t.cachedEntry(c.Instance); ok {
		return hashicorpData(entry), nil
	}

	service := strings.TrimSuffix(c.Service, ".")
	dom := strings.TrimSuffix(c.Domain, ".")

	timeout := t.config.QueryTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return ResolveData{}, fmt.Errorf("resolve %q: %w", c.Instance, context.DeadlineExceeded)
	}

	entriesCh := make(chan *mdns.ServiceEntry, 16)
	found := make(chan *mdns.ServiceEntry, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entriesCh {
			instance := instanceFromName(entry.Name, service, dom)
			if instance == "" {
				continue
			}
			t.storeEntry(instance, entry)
			if instance == c.Instance {
				select {
				case found <- entry:
				default:
				}
			}
		}
	}()

	params := mdns.DefaultParams(service)
	params.Domain = dom
	params.Timeout = timeout
	params.Entries = entriesCh
	params.DisableIPv6 = t.config.DisableIPv6

	err := mdns.Query(params)
	close(entriesCh)
	<-done

	if err != nil {
		return ResolveData{}, fmt.Errorf("resolve %q: %w", c.Instance, err)
	}

	select {
	case entry := <-found:
		return hashicorpData(entry), nil
	default:
		return ResolveData{}, fmt.Errorf("resolve %q: no answer within %v", c.Instance, timeout)
	}
}

// Publish registers the advertisement with the local host addresses,
// replacing any previous one held by this transport.
func (t *HashicorpTransport) Publish(_ context.Context, p Publication) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.server != nil {
		t.server.Shutdown()
		t.server = nil
	}

	ips, err := localIPs()
	if err != nil {
		return "", fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		p.Name,
		strings.TrimSuffix(p.Type, "."),
		"", // domain auto-detected
		"", // hostname auto-detected
		p.Port,
		ips,
		TXTMapToStrings(p.Txt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return "", fmt.Errorf("failed to create mdns server: %w", err)
	}

	t.server = server
	return p.Name, nil
}

// Unpublish shuts down the active registration, if any.
func (t *HashicorpTransport) Unpublish() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.server == nil {
		return nil
	}

	err := t.server.Shutdown()
	t.server = nil
	return err
}

func (t *HashicorpTransport) storeEntry(instance string, entry *mdns.ServiceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[instance] = entry
}

func (t *HashicorpTransport) cachedEntry(instance string) (*mdns.ServiceEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[instance]
	return entry, ok
}

// hashicorpData converts an mdns entry to resolve data.
func hashicorpData(entry *mdns.ServiceEntry) ResolveData {
	var addrs []string
	if entry.AddrV4 != nil {
		addrs = append(addrs, entry.AddrV4.String())
	}
	if entry.AddrV6 != nil {
		addrs = append(addrs, entry.AddrV6.String())
	}

	return ResolveData{
		Port:  entry.Port,
		Hosts: addrs,
		Txt:   StringsToTXTMap(entry.InfoFields),
	}
}

// instanceFromName extracts the instance label from a fully qualified
// entry name like "Printer._http._tcp.local.". Unescapes the dots and
// spaces mdns escapes in DNS names.
func instanceFromName(name, service, domain string) string {
	suffix := "." + service + "." + domain + "."
	if !strings.HasSuffix(name, suffix) {
		return ""
	}
	instance := strings.TrimSuffix(name, suffix)
	instance = strings.ReplaceAll(instance, "\\ ", " ")
	instance = strings.ReplaceAll(instance, "\\.", ".")
	return instance
}

// localIPs collects the non-loopback unicast addresses to advertise.
func localIPs() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		ips = append(ips, ipNet.IP)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no usable local addresses")
	}
	return ips, nil
}

// Ensure HashicorpTransport implements the Transport interface.
var _ Transport = (*HashicorpTransport)(nil)
