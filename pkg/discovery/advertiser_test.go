package discovery_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devioarts/go-mdns/pkg/discovery"
)

func newAdvertiser(t *testing.T, transport discovery.Transport) *discovery.Advertiser {
	t.Helper()

	a, err := discovery.NewAdvertiser(transport, discovery.DefaultAdvertiserConfig())
	require.NoError(t, err)
	return a
}

// TestAdvertiserStart verifies a plain start publishes and reports the
// advertised name.
func TestAdvertiserStart(t *testing.T) {
	transport := &fakeTransport{}
	a := newAdvertiser(t, transport)

	result, err := a.Start(context.Background(), discovery.BroadcastRequest{
		Type: "_http._tcp.",
		Name: "My Server",
		Port: 8080,
	})

	require.NoError(t, err)
	assert.False(t, result.Error)
	assert.True(t, result.Publishing)
	assert.Equal(t, "My Server", result.Name)
	assert.Equal(t, []string{"publish:My Server"}, transport.callLog())

	pub, finalName, active := a.Active()
	assert.True(t, active)
	assert.Equal(t, "My Server", finalName)
	assert.Equal(t, "_http._tcp.", pub.Type)
	assert.Equal(t, 8080, pub.Port)
}

// TestAdvertiserPortValidation verifies out-of-range ports fail before
// the transport is contacted.
func TestAdvertiserPortValidation(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		transport := &fakeTransport{}
		a := newAdvertiser(t, transport)

		_, err := a.Start(context.Background(), discovery.BroadcastRequest{Port: port})
		assert.ErrorIs(t, err, discovery.ErrInvalidPort, "port %d", port)
		assert.Empty(t, transport.callLog(), "transport must not be contacted for port %d", port)
	}
}

// TestAdvertiserDefaultName verifies an empty name falls back to the
// default identifier.
func TestAdvertiserDefaultName(t *testing.T) {
	transport := &fakeTransport{}
	a := newAdvertiser(t, transport)

	result, err := a.Start(context.Background(), discovery.BroadcastRequest{
		Name: "   ",
		Port: 8080,
	})

	require.NoError(t, err)
	assert.Equal(t, discovery.DefaultInstanceName, result.Name)
}

// TestAdvertiserUniquifiedName verifies the transport-returned name is
// surfaced as authoritative.
func TestAdvertiserUniquifiedName(t *testing.T) {
	transport := &fakeTransport{renameTo: "My Server (2)"}
	a := newAdvertiser(t, transport)

	result, err := a.Start(context.Background(), discovery.BroadcastRequest{
		Name: "My Server",
		Port: 8080,
	})

	require.NoError(t, err)
	assert.Equal(t, "My Server (2)", result.Name)

	_, finalName, active := a.Active()
	assert.True(t, active)
	assert.Equal(t, "My Server (2)", finalName)
}

// TestAdvertiserReplacesPrevious verifies the second start unpublishes
// the first advertisement before publishing the new one.
func TestAdvertiserReplacesPrevious(t *testing.T) {
	transport := &fakeTransport{}
	a := newAdvertiser(t, transport)

	_, err := a.Start(context.Background(), discovery.BroadcastRequest{Name: "First", Port: 8080})
	require.NoError(t, err)

	_, err = a.Start(context.Background(), discovery.BroadcastRequest{Name: "Second", Port: 9090})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"publish:First", "unpublish", "publish:Second"},
		transport.callLog())
}

// TestAdvertiserPublishFailure verifies a transport failure is reported
// inside the result and leaves nothing active.
func TestAdvertiserPublishFailure(t *testing.T) {
	transport := &fakeTransport{publishErr: errors.New("name conflict")}
	a := newAdvertiser(t, transport)

	result, err := a.Start(context.Background(), discovery.BroadcastRequest{
		Name: "My Server",
		Port: 8080,
	})

	require.NoError(t, err, "publish failures resolve, not reject")
	assert.True(t, result.Error)
	assert.Contains(t, result.ErrorMessage, "name conflict")
	assert.False(t, result.Publishing)

	_, _, active := a.Active()
	assert.False(t, active)
}

// TestAdvertiserStopIdempotent verifies double stop succeeds trivially
// both times.
func TestAdvertiserStopIdempotent(t *testing.T) {
	transport := &fakeTransport{}
	a := newAdvertiser(t, transport)

	_, err := a.Start(context.Background(), discovery.BroadcastRequest{Name: "My Server", Port: 8080})
	require.NoError(t, err)

	first := a.Stop()
	assert.False(t, first.Error)
	assert.False(t, first.Publishing)

	second := a.Stop()
	assert.False(t, second.Error)
	assert.False(t, second.Publishing)

	// Only the active advertisement reached the transport.
	assert.Equal(t, []string{"publish:My Server", "unpublish"}, transport.callLog())
}

// TestAdvertiserStopWithoutStart verifies stopping an idle advertiser
// is a successful no-op.
func TestAdvertiserStopWithoutStart(t *testing.T) {
	transport := &fakeTransport{}
	a := newAdvertiser(t, transport)

	result := a.Stop()
	assert.False(t, result.Error)
	assert.False(t, result.Publishing)
	assert.Empty(t, transport.callLog())
}

// TestAdvertiserTXTValidation verifies oversized TXT metadata fails
// before the transport is contacted.
func TestAdvertiserTXTValidation(t *testing.T) {
	transport := &fakeTransport{}
	a := newAdvertiser(t, transport)

	_, err := a.Start(context.Background(), discovery.BroadcastRequest{
		Name: "My Server",
		Port: 8080,
		Txt:  map[string]string{"data": strings.Repeat("x", discovery.MaxTXTRecordSize)},
	})

	assert.ErrorIs(t, err, discovery.ErrInvalidTXTRecord)
	assert.Empty(t, transport.callLog())
}

// TestAdvertiserNameTooLong verifies the DNS label limit is enforced.
func TestAdvertiserNameTooLong(t *testing.T) {
	transport := &fakeTransport{}
	a := newAdvertiser(t, transport)

	_, err := a.Start(context.Background(), discovery.BroadcastRequest{
		Name: strings.Repeat("a", discovery.MaxInstanceNameLen+1),
		Port: 8080,
	})

	assert.ErrorIs(t, err, discovery.ErrInstanceNameTooLong)
	assert.Empty(t, transport.callLog())
}

func TestNewAdvertiserNilTransport(t *testing.T) {
	_, err := discovery.NewAdvertiser(nil, discovery.DefaultAdvertiserConfig())
	assert.ErrorIs(t, err, discovery.ErrTransportRequired)
}
