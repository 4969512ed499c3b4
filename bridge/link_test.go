package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/avdberg/p1bridge/log2"
	"github.com/avdberg/p1bridge/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLink(t testing.TB, radio Radio, ind status.Indicator, config LinkConfig) *Link {
	if config.PollDelay == 0 {
		config.PollDelay = time.Millisecond
	}
	return NewLink(radio, ind, log2.NewTest(t, log2.LDebug), config)
}

func TestLinkReconnectBlocksUntilAssociated(t *testing.T) {
	t.Parallel()

	radio := &fakeRadio{downFor: 3}
	ind := &recordIndicator{}
	link := testLink(t, radio, ind, LinkConfig{})

	assert.False(t, link.Ready()) // consumes one down tick
	require.NoError(t, link.Reconnect(context.Background()))
	assert.True(t, link.Ready())
	assert.Equal(t, 1, radio.associates())
	assert.Equal(t, 1, ind.count(status.EventLinkConnecting))
	assert.Equal(t, 1, ind.count(status.EventLinkUp))
}

func TestLinkReconnectTimeout(t *testing.T) {
	t.Parallel()

	radio := &fakeRadio{downFor: 1 << 30}
	ind := &recordIndicator{}
	link := testLink(t, radio, ind, LinkConfig{Timeout: 5 * time.Millisecond})

	err := link.Reconnect(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, ind.count(status.EventLinkUp))
}

func TestLinkReconnectContextCancel(t *testing.T) {
	t.Parallel()

	radio := &fakeRadio{downFor: 1 << 30}
	link := testLink(t, radio, &recordIndicator{}, LinkConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := link.Reconnect(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestLinkReentrancyGuard(t *testing.T) {
	t.Parallel()

	radio := &fakeRadio{downFor: 1 << 30}
	link := testLink(t, radio, &recordIndicator{}, LinkConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	go func() {
		close(started)
		_ = link.Reconnect(ctx)
	}()
	<-started
	for radio.associates() < 1 {
		time.Sleep(time.Millisecond)
	}
	require.True(t, link.Connecting())
	// second entry returns immediately without a second associate
	require.NoError(t, link.Reconnect(ctx))
	assert.Equal(t, 1, radio.associates())
}
