package discovery_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devioarts/go-mdns/pkg/discovery"
)

// scriptedService is one service the fake transport plays back during a
// browse: found after foundAfter, optionally lost after lostAfter, and
// resolving to the given data after resolveDelay.
type scriptedService struct {
	instance     string
	foundAfter   time.Duration
	lostAfter    time.Duration // zero means never lost
	resolveDelay time.Duration
	resolveErr   error
	port         int
	hosts        []string
	txt          map[string]string
}

// fakeTransport is a scripted Transport for state machine tests. It
// records every publish/unpublish call in order.
type fakeTransport struct {
	services []scriptedService

	browseStartErr error // returned from Browse itself
	browseErr      error // posted as an async browse error event
	browseErrAfter time.Duration
	flood          time.Duration // when set, emit a fresh instance this often

	publishErr error
	renameTo   string // when set, Publish returns this instead of the requested name

	mu           sync.Mutex
	calls        []string // "publish:<name>" / "unpublish"
	resolveCount int
}

func (f *fakeTransport) Browse(ctx context.Context, serviceType, domain string, events chan<- discovery.BrowseEvent) error {
	if f.browseStartErr != nil {
		return f.browseStartErr
	}

	for _, svc := range f.services {
		go func(svc scriptedService) {
			if !sleepCtx(ctx, svc.foundAfter) {
				return
			}
			post(ctx, events, discovery.BrowseEvent{
				Kind:      discovery.BrowseFound,
				Candidate: f.candidate(svc.instance, serviceType, domain),
			})
			if svc.lostAfter > 0 {
				if !sleepCtx(ctx, svc.lostAfter-svc.foundAfter) {
					return
				}
				post(ctx, events, discovery.BrowseEvent{
					Kind:      discovery.BrowseLost,
					Candidate: f.candidate(svc.instance, serviceType, domain),
				})
			}
		}(svc)
	}

	if f.browseErr != nil {
		go func() {
			if !sleepCtx(ctx, f.browseErrAfter) {
				return
			}
			post(ctx, events, discovery.BrowseEvent{Kind: discovery.BrowseError, Err: f.browseErr})
		}()
	}

	if f.flood > 0 {
		go func() {
			for i := 0; ; i++ {
				if !sleepCtx(ctx, f.flood) {
					return
				}
				post(ctx, events, discovery.BrowseEvent{
					Kind:      discovery.BrowseFound,
					Candidate: f.candidate(fmt.Sprintf("flood-%d", i), serviceType, domain),
				})
			}
		}()
	}

	return nil
}

func (f *fakeTransport) Resolve(ctx context.Context, c discovery.Candidate) (discovery.ResolveData, error) {
	f.mu.Lock()
	f.resolveCount++
	f.mu.Unlock()

	for _, svc := range f.services {
		if svc.instance != c.Instance {
			continue
		}
		if !sleepCtx(ctx, svc.resolveDelay) {
			return discovery.ResolveData{}, ctx.Err()
		}
		if svc.resolveErr != nil {
			return discovery.ResolveData{}, svc.resolveErr
		}
		return discovery.ResolveData{Port: svc.port, Hosts: svc.hosts, Txt: svc.txt}, nil
	}

	// Flood candidates and other unknowns never resolve.
	<-ctx.Done()
	return discovery.ResolveData{}, ctx.Err()
}

func (f *fakeTransport) Publish(_ context.Context, p discovery.Publication) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "publish:"+p.Name)
	if f.publishErr != nil {
		return "", f.publishErr
	}
	if f.renameTo != "" {
		return f.renameTo, nil
	}
	return p.Name, nil
}

func (f *fakeTransport) Unpublish() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "unpublish")
	return nil
}

func (f *fakeTransport) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeTransport) resolves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolveCount
}

func (f *fakeTransport) candidate(instance, serviceType, domain string) discovery.Candidate {
	return discovery.Candidate{Instance: instance, Service: serviceType, Domain: domain}
}

// sleepCtx waits for d, returning false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func post(ctx context.Context, events chan<- discovery.BrowseEvent, ev discovery.BrowseEvent) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// Ensure the fake implements the Transport interface.
var _ discovery.Transport = (*fakeTransport)(nil)
