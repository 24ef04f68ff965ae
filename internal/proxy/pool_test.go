package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolFirstHealthyInOrder(t *testing.T) {
	p := NewPool([]string{"http://proxy-a:8080", "http://proxy-b:8080"})
	require.Equal(t, 2, p.Len())

	u, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "proxy-a:8080", u.Host)
}

func TestPoolUnhealthyAfterThreshold(t *testing.T) {
	p := NewPool([]string{"http://proxy-a:8080", "http://proxy-b:8080"})

	first, _ := p.Current()
	p.MarkFailed(first)
	p.MarkFailed(first)

	// still healthy below the threshold
	u, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "proxy-a:8080", u.Host)

	p.MarkFailed(first)

	u, ok = p.Current()
	require.True(t, ok)
	assert.Equal(t, "proxy-b:8080", u.Host, "failover to the next healthy proxy")
}

func TestPoolRecoversOnSuccess(t *testing.T) {
	p := NewPool([]string{"http://proxy-a:8080"})

	u, _ := p.Current()
	for i := 0; i < FailureThreshold; i++ {
		p.MarkFailed(u)
	}

	_, ok := p.Current()
	assert.False(t, ok, "sole proxy exhausted")

	p.MarkSuccess(u)
	got, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "proxy-a:8080", got.Host)
}

func TestPoolSkipsUnparsableURLs(t *testing.T) {
	p := NewPool([]string{"::not a url::", ""})
	assert.Zero(t, p.Len())

	_, ok := p.Current()
	assert.False(t, ok)
}
