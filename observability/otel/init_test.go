package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	headers, err := ParseHeaders(" authorization=Bearer abc , x-tenant=invite,,")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"authorization": "Bearer abc", "x-tenant": "invite"}, headers)

	empty, err := ParseHeaders("")
	require.NoError(t, err)
	require.Empty(t, empty)

	for _, raw := range []string{"novalue", "=orphan"} {
		_, err := ParseHeaders(raw)
		require.Error(t, err, raw)
	}
}

func TestInitValidatesConfig(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)

	_, err = Init(context.Background(), Config{ServiceName: "inviteregistryd", SampleRatio: 1.5})
	require.Error(t, err)

	shutdown, err := Init(context.Background(), Config{ServiceName: "inviteregistryd", Environment: "test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSamplerRatio(t *testing.T) {
	require.Contains(t, sampler(0).Description(), "AlwaysOnSampler")
	require.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}
