package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devioarts/go-mdns/pkg/log"
)

// AdvertiserConfig configures advertisement behavior.
type AdvertiserConfig struct {
	// Domain defaults to "local.".
	Domain string

	// Logger receives capture events. Nil disables capture.
	Logger log.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Domain: DefaultDomain,
		Logger: log.NoopLogger{},
	}
}

// Advertiser owns at most one outbound advertisement. Starting a new
// one stops any previous one first.
//
// Start and Stop serialize against each other, so a second Start while
// one is in flight waits for it rather than racing the
// unpublish-then-publish ordering.
type Advertiser struct {
	mu        sync.Mutex
	transport Transport
	config    AdvertiserConfig
	id        string

	current   *Publication // nil when nothing is advertised
	finalName string
}

// NewAdvertiser creates an Advertiser on the given transport.
func NewAdvertiser(transport Transport, config AdvertiserConfig) (*Advertiser, error) {
	if transport == nil {
		return nil, ErrTransportRequired
	}
	if config.Domain == "" {
		config.Domain = DefaultDomain
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}

	return &Advertiser{
		transport: transport,
		config:    config,
		id:        uuid.NewString(),
	}, nil
}

// Start begins advertising, replacing any active advertisement.
//
// A non-nil error is returned only for invalid input, before the
// transport is contacted. Transport publish failures are reported
// inside the result; on failure no advertisement remains active.
func (a *Advertiser) Start(ctx context.Context, req BroadcastRequest) (BroadcastResult, error) {
	if req.Port < 1 || req.Port > MaxPort {
		return BroadcastResult{}, ErrInvalidPort
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = DefaultInstanceName
	}
	if err := ValidateInstanceName(name); err != nil {
		return BroadcastResult{}, err
	}
	if err := ValidateTXT(req.Txt); err != nil {
		return BroadcastResult{}, err
	}

	rawType := req.Type
	if rawType == "" {
		rawType = DefaultServiceType
	}
	label, protocol, err := ParseServiceType(rawType, false)
	if err != nil {
		return BroadcastResult{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// At most one active advertisement: stop the previous one before
	// publishing the next.
	if a.current != nil {
		if err := a.transport.Unpublish(); err != nil {
			a.logPublishError(err)
		}
		a.current = nil
		a.finalName = ""
	}

	pub := Publication{
		Name:   name,
		Type:   FullServiceType(label, protocol),
		Domain: a.config.Domain,
		Port:   req.Port,
		Txt:    req.Txt,
	}

	finalName, err := a.transport.Publish(ctx, pub)
	if err != nil {
		a.logPublishError(err)
		return BroadcastResult{
			Error:        true,
			ErrorMessage: err.Error(),
			Name:         name,
			Publishing:   false,
		}, nil
	}

	a.current = &pub
	a.finalName = finalName

	a.config.Logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: a.id,
		Category:  log.CategoryPublish,
		Service:   pub.Type,
		Instance:  name,
		Publish: &log.PublishData{
			Publishing: true,
			Port:       pub.Port,
			FinalName:  finalName,
		},
	})

	// The transport may have uniquified the name; its answer is
	// authoritative.
	return BroadcastResult{
		Name:       finalName,
		Publishing: true,
	}, nil
}

// Stop ends the active advertisement. It is idempotent: stopping when
// nothing is active succeeds trivially.
func (a *Advertiser) Stop() StopBroadcastResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return StopBroadcastResult{Publishing: false}
	}

	service := a.current.Type
	instance := a.current.Name
	a.current = nil
	a.finalName = ""

	if err := a.transport.Unpublish(); err != nil {
		a.logPublishError(err)
		return StopBroadcastResult{
			Error:        true,
			ErrorMessage: err.Error(),
			Publishing:   false,
		}
	}

	a.config.Logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: a.id,
		Category:  log.CategoryPublish,
		Service:   service,
		Instance:  instance,
		Publish:   &log.PublishData{Publishing: false},
	})

	return StopBroadcastResult{Publishing: false}
}

// Active returns the current publication and the name actually
// advertised, if any.
func (a *Advertiser) Active() (Publication, string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return Publication{}, "", false
	}
	return *a.current, a.finalName, true
}

func (a *Advertiser) logPublishError(err error) {
	a.config.Logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: a.id,
		Category:  log.CategoryPublish,
		Error:     &log.ErrorData{Message: err.Error()},
	})
}
