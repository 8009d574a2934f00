package discovery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/devioarts/go-mdns/pkg/log"
)

// FinishTrigger identifies the condition that terminated a discovery
// session. Exactly one trigger fires per session, whichever comes first.
type FinishTrigger uint8

const (
	// TriggerEarlyExit - a resolved candidate matched the target filter.
	TriggerEarlyExit FinishTrigger = iota

	// TriggerSettle - the browse went quiet with no resolves in flight.
	TriggerSettle

	// TriggerHardTimeout - the caller's time budget expired.
	TriggerHardTimeout

	// TriggerCancelled - the caller cancelled the context.
	TriggerCancelled
)

// String returns the trigger name.
func (t FinishTrigger) String() string {
	switch t {
	case TriggerEarlyExit:
		return "EARLY_EXIT"
	case TriggerSettle:
		return "SETTLE"
	case TriggerHardTimeout:
		return "HARD_TIMEOUT"
	case TriggerCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// DiscovererConfig configures discovery behavior.
type DiscovererConfig struct {
	// SettleWindow is the quiescence period used when a request does
	// not override it. Default: 350ms.
	SettleWindow time.Duration

	// Logger receives capture events. Nil disables capture.
	Logger log.Logger
}

// DefaultDiscovererConfig returns the default discoverer configuration.
func DefaultDiscovererConfig() DiscovererConfig {
	return DiscovererConfig{
		SettleWindow: DefaultSettleWindow,
		Logger:       log.NoopLogger{},
	}
}

// Discoverer runs bounded discovery sessions against a Transport.
// A Discoverer is safe for concurrent use; each call to Discover runs
// an independent session with its own transport handles and timers.
type Discoverer struct {
	transport Transport
	config    DiscovererConfig
}

// NewDiscoverer creates a Discoverer on the given transport.
func NewDiscoverer(transport Transport, config DiscovererConfig) (*Discoverer, error) {
	if transport == nil {
		return nil, ErrTransportRequired
	}
	if config.SettleWindow <= 0 {
		config.SettleWindow = DefaultSettleWindow
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}

	return &Discoverer{
		transport: transport,
		config:    config,
	}, nil
}

// Discover runs one time-boxed discovery and returns its result.
// It returns a non-nil error only for invalid input; every runtime
// condition - including a browse that never starts - is reported inside
// the result so callers do not need a failure path for expected noise
// on a shared multicast medium.
func (d *Discoverer) Discover(ctx context.Context, req DiscoverRequest) (DiscoveryResult, error) {
	if req.Timeout < 0 {
		return DiscoveryResult{}, ErrInvalidTimeout
	}

	rawType := req.Type
	if rawType == "" {
		rawType = DefaultServiceType
	}
	label, protocol, err := ParseServiceType(rawType, req.StrictType)
	if err != nil {
		return DiscoveryResult{}, err
	}

	domain := req.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	if domain[len(domain)-1] != '.' {
		domain += "."
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	settle := req.SettleWindow
	if settle <= 0 {
		settle = d.config.SettleWindow
	}

	s := &discoverySession{
		transport: d.transport,
		logger:    d.config.Logger,
		id:        uuid.NewString(),
		fullType:  FullServiceType(label, protocol),
		domain:    domain,
		target:    req.Name,
		timeout:   timeout,
		settle:    settle,
		results:   make(map[string]ServiceRecord),
		stale:     make(map[string]bool),
	}

	return s.run(ctx), nil
}

// resolveOutcome is the completion of one asynchronous resolve attempt.
type resolveOutcome struct {
	candidate Candidate
	data      ResolveData
	err       error
}

// discoverySession is the browse-and-resolve state machine for one
// discovery run. All browse events, resolve completions and timer fires
// are consumed by the single goroutine inside run; transport callbacks
// only post into channels, so no field needs a lock.
type discoverySession struct {
	transport Transport
	logger    log.Logger

	id       string
	fullType string
	domain   string
	target   string
	timeout  time.Duration
	settle   time.Duration

	started    time.Time
	results    map[string]ServiceRecord
	stale      map[string]bool // candidates lost while their resolve was in flight
	pending    int             // resolves in flight, never negative
	terminated bool            // monotonic, set exactly once
	trigger    FinishTrigger
	browseErr  error
}

// run drives the session to completion and produces its result exactly
// once. Cancelling ctx finishes early with whatever was accumulated.
func (s *discoverySession) run(ctx context.Context) DiscoveryResult {
	s.started = time.Now()

	browseCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan BrowseEvent, 16)
	completions := make(chan resolveOutcome, 16)

	if err := s.transport.Browse(browseCtx, s.fullType, s.domain, events); err != nil {
		// A browse that never starts does not abort the session: the
		// timers still bound the call and the error rides along in the
		// final result.
		s.recordBrowseError(err)
	}

	hard := time.NewTimer(s.timeout)
	defer hard.Stop()

	// The settle timer runs whenever no resolves are in flight. It is
	// stopped when a resolve starts and re-armed when the last one
	// completes.
	settle := time.NewTimer(s.settle)
	defer settle.Stop()

	for !s.terminated {
		select {
		case ev := <-events:
			s.handleBrowseEvent(browseCtx, ev, completions, settle)

		case out := <-completions:
			s.handleResolveOutcome(out, settle)

		case <-settle.C:
			if s.pending == 0 {
				s.terminate(TriggerSettle)
			}
			// Otherwise resolves are still in flight; the timer is
			// re-armed when they drain.

		case <-hard.C:
			s.terminate(TriggerHardTimeout)

		case <-ctx.Done():
			s.terminate(TriggerCancelled)
		}
	}

	// Release the browse and abandon any in-flight resolves. Their
	// eventual completions have nowhere to go: the senders select on
	// browseCtx and the session no longer reads.
	cancel()

	return s.result()
}

func (s *discoverySession) handleBrowseEvent(
	ctx context.Context,
	ev BrowseEvent,
	completions chan<- resolveOutcome,
	settle *time.Timer,
) {
	switch ev.Kind {
	case BrowseFound:
		s.handleFound(ctx, ev.Candidate, completions, settle)
	case BrowseLost:
		s.handleLost(ev.Candidate)
	case BrowseError:
		s.recordBrowseError(ev.Err)
	}
}

func (s *discoverySession) handleFound(
	ctx context.Context,
	c Candidate,
	completions chan<- resolveOutcome,
	settle *time.Timer,
) {
	// Filtering happens after normalization, never on the raw string:
	// the OS may have suffixed the name the caller asked for.
	if s.target != "" && !MatchesTarget(c.Instance, s.target) {
		return
	}

	delete(s.stale, c.Instance)
	s.pending++
	stopTimer(settle)
	s.logBrowse(c, BrowseFound)

	go func() {
		data, err := s.transport.Resolve(ctx, c)
		select {
		case completions <- resolveOutcome{candidate: c, data: data, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (s *discoverySession) handleLost(c Candidate) {
	s.stale[c.Instance] = true
	s.logBrowse(c, BrowseLost)
}

func (s *discoverySession) handleResolveOutcome(out resolveOutcome, settle *time.Timer) {
	s.pending--

	switch {
	case out.err != nil:
		// A single resolve failure is never fatal to the session; the
		// candidate is dropped and the failure is capture-only.
		s.logResolve(out, false)

	case s.stale[out.candidate.Instance]:
		// Lost while resolving; the data is no longer trustworthy.
		s.logResolveDiscarded(out)

	default:
		rec := s.buildRecord(out)
		key := rec.dedupKey()
		if _, exists := s.results[key]; !exists {
			// First successful resolve for an identity wins; later
			// duplicates are dropped, not merged.
			s.results[key] = rec
		}
		s.logResolve(out, true)

		if s.target != "" && MatchesTarget(out.candidate.Instance, s.target) {
			s.terminate(TriggerEarlyExit)
			return
		}
	}

	if s.pending == 0 {
		resetTimer(settle, s.settle)
	}
}

func (s *discoverySession) buildRecord(out resolveOutcome) ServiceRecord {
	hosts := out.data.Hosts
	if hosts == nil {
		hosts = []string{}
	}

	txt := out.data.Txt
	if len(txt) == 0 {
		// Omitted entirely: "not supported here" and "no keys
		// published" both surface as an absent map.
		txt = nil
	}

	return ServiceRecord{
		Name:   out.candidate.Instance,
		Type:   s.fullType,
		Domain: s.domain,
		Port:   out.data.Port,
		Hosts:  hosts,
		Txt:    txt,
	}
}

// terminate sets the terminal state. It is a no-op once fired, so a
// timer racing a natural finish cannot produce a second result.
func (s *discoverySession) terminate(trigger FinishTrigger) {
	if s.terminated {
		return
	}
	s.terminated = true
	s.trigger = trigger
}

func (s *discoverySession) recordBrowseError(err error) {
	if err == nil {
		return
	}
	// First error wins; later ones are capture-only.
	if s.browseErr == nil {
		s.browseErr = err
	}
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Category:  log.CategoryBrowse,
		Service:   s.fullType,
		Browse:    &log.BrowseData{Kind: BrowseError.String()},
		Error:     &log.ErrorData{Message: err.Error()},
	})
}

func (s *discoverySession) result() DiscoveryResult {
	services := make([]ServiceRecord, 0, len(s.results))
	for _, rec := range s.results {
		services = append(services, rec)
	}

	res := DiscoveryResult{
		ServicesFound: len(services),
		Services:      services,
	}
	if s.browseErr != nil {
		res.Error = true
		res.ErrorMessage = s.browseErr.Error()
	}

	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Category:  log.CategorySession,
		Service:   s.fullType,
		Finish: &log.FinishData{
			Trigger:       s.trigger.String(),
			ServicesFound: res.ServicesFound,
			Elapsed:       time.Since(s.started).Milliseconds(),
		},
	})

	return res
}

func (s *discoverySession) logBrowse(c Candidate, kind BrowseEventKind) {
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Category:  log.CategoryBrowse,
		Service:   s.fullType,
		Instance:  c.Instance,
		Browse:    &log.BrowseData{Kind: kind.String()},
	})
}

func (s *discoverySession) logResolve(out resolveOutcome, success bool) {
	ev := log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Category:  log.CategoryResolve,
		Service:   s.fullType,
		Instance:  out.candidate.Instance,
		Resolve: &log.ResolveData{
			Success:   success,
			Port:      out.data.Port,
			HostCount: len(out.data.Hosts),
		},
	}
	if out.err != nil {
		ev.Error = &log.ErrorData{Message: out.err.Error()}
	}
	s.logger.Log(ev)
}

func (s *discoverySession) logResolveDiscarded(out resolveOutcome) {
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Category:  log.CategoryResolve,
		Service:   s.fullType,
		Instance:  out.candidate.Instance,
		Resolve: &log.ResolveData{
			Success:   true,
			Port:      out.data.Port,
			HostCount: len(out.data.Hosts),
			Discarded: true,
		},
	})
}

// stopTimer stops t and drains a fire that already happened.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// resetTimer re-arms t for d, draining any stale fire first.
func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
