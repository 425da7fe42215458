package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
)

type fakeProvider struct {
	name      string
	channel   model.NotificationChannel
	priority  int
	available bool

	result SendResult
	err    error
	panics bool

	calls int
}

func (p *fakeProvider) Name() string                                   { return p.name }
func (p *fakeProvider) Supports(c model.NotificationChannel) bool      { return c == p.channel }
func (p *fakeProvider) Priority() int                                  { return p.priority }
func (p *fakeProvider) Available() bool                                { return p.available }
func (p *fakeProvider) Send(_ context.Context, _ Message) (SendResult, error) {
	p.calls++
	if p.panics {
		panic("boom")
	}
	return p.result, p.err
}

func emailMessage() Message {
	return Message{
		NotificationID: uuid.New(),
		StudentID:      uuid.New(),
		Channel:        model.ChannelEmail,
		Type:           model.NotificationClassScheduled,
		Recipient:      "anna@example.com",
	}
}

func TestDispatcher_PicksHighestPriorityProvider(t *testing.T) {
	low := &fakeProvider{name: "low", channel: model.ChannelEmail, priority: 10, available: true, result: Sent("low-1")}
	high := &fakeProvider{name: "high", channel: model.ChannelEmail, priority: 100, available: true, result: Sent("high-1")}
	d := NewDispatcher([]Provider{low, high}, zap.NewNop())

	result := d.Dispatch(context.Background(), emailMessage())

	require.True(t, result.Success())
	assert.Equal(t, "high-1", result.ProviderMessageID)
	assert.Equal(t, 1, high.calls)
	assert.Equal(t, 0, low.calls, "lower priority provider must never be invoked")
}

func TestDispatcher_EqualPriorityKeepsFirstRegistered(t *testing.T) {
	first := &fakeProvider{name: "first", channel: model.ChannelEmail, priority: 50, available: true, result: Sent("first-1")}
	second := &fakeProvider{name: "second", channel: model.ChannelEmail, priority: 50, available: true, result: Sent("second-1")}
	d := NewDispatcher([]Provider{first, second}, zap.NewNop())

	result := d.Dispatch(context.Background(), emailMessage())

	assert.Equal(t, "first-1", result.ProviderMessageID)
	assert.Equal(t, 0, second.calls)
}

func TestDispatcher_SkipsUnavailableProvider(t *testing.T) {
	down := &fakeProvider{name: "down", channel: model.ChannelEmail, priority: 100, available: false}
	up := &fakeProvider{name: "up", channel: model.ChannelEmail, priority: 10, available: true, result: Sent("up-1")}
	d := NewDispatcher([]Provider{down, up}, zap.NewNop())

	result := d.Dispatch(context.Background(), emailMessage())

	require.True(t, result.Success())
	assert.Equal(t, "up-1", result.ProviderMessageID)
	assert.Equal(t, 0, down.calls)
}

func TestDispatcher_NoProviderSkips(t *testing.T) {
	sms := &fakeProvider{name: "sms", channel: model.ChannelSMS, priority: 10, available: true}
	d := NewDispatcher([]Provider{sms}, zap.NewNop())

	result := d.Dispatch(context.Background(), emailMessage())

	assert.Equal(t, SendStatusSkipped, result.Status)
	assert.False(t, result.Retryable)
	assert.Contains(t, result.ErrorMessage, "no provider available")
	assert.Equal(t, 0, sms.calls)
}

func TestDispatcher_UndeliverableChannelSkips(t *testing.T) {
	d := NewDispatcher(nil, zap.NewNop())

	msg := emailMessage()
	msg.Channel = model.ChannelNone
	result := d.Dispatch(context.Background(), msg)

	assert.Equal(t, SendStatusSkipped, result.Status)
}

func TestDispatcher_ProviderErrorBecomesRetryable(t *testing.T) {
	p := &fakeProvider{
		name: "flaky", channel: model.ChannelEmail, priority: 10, available: true,
		err: errors.New("connection reset"),
	}
	d := NewDispatcher([]Provider{p}, zap.NewNop())

	result := d.Dispatch(context.Background(), emailMessage())

	assert.Equal(t, SendStatusFailed, result.Status)
	assert.True(t, result.Retryable)
	assert.Equal(t, "provider_error", result.ErrorCode)
}

func TestDispatcher_ProviderPanicRecovered(t *testing.T) {
	p := &fakeProvider{name: "panicky", channel: model.ChannelEmail, priority: 10, available: true, panics: true}
	d := NewDispatcher([]Provider{p}, zap.NewNop())

	result := d.Dispatch(context.Background(), emailMessage())

	assert.Equal(t, SendStatusFailed, result.Status)
	assert.True(t, result.Retryable)
	assert.Equal(t, "provider_panic", result.ErrorCode)
}

func TestDispatcher_HasProvider(t *testing.T) {
	email := &fakeProvider{name: "email", channel: model.ChannelEmail, priority: 10, available: true}
	d := NewDispatcher([]Provider{email}, zap.NewNop())

	assert.True(t, d.HasProvider(model.ChannelEmail))
	assert.False(t, d.HasProvider(model.ChannelSMS))

	email.available = false
	assert.False(t, d.HasProvider(model.ChannelEmail))
}

func TestNoOpProvider(t *testing.T) {
	p := NewNoOpProvider(zap.NewNop())

	assert.True(t, p.Supports(model.ChannelEmail))
	assert.True(t, p.Supports(model.ChannelSMS))
	assert.True(t, p.Supports(model.ChannelWhatsApp))
	assert.True(t, p.Available())

	result, err := p.Send(context.Background(), emailMessage())
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.NotEmpty(t, result.ProviderMessageID)

	msg := emailMessage()
	msg.Recipient = ""
	result, err = p.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, SendStatusSkipped, result.Status)
}
