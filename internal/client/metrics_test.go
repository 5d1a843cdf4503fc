package client

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		if m.GetCounter() != nil {
			return m.GetCounter().GetValue()
		}
		return m.GetGauge().GetValue()
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestCollector(t *testing.T) {
	node := newFakeNode(t)
	node.result("getblockcount", 100)

	reg := prometheus.NewPedanticRegistry()
	c := newTestClient(t, testConfig(node.srv.URL), WithRegisterer(reg))

	for i := 0; i < 3; i++ {
		_, err := c.GetBlockCount(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 16, testutil.CollectAndCount(c.collector))
	assert.EqualValues(t, 3, gatherValue(t, reg, "neorpc_requests_total"))
	assert.EqualValues(t, 0, gatherValue(t, reg, "neorpc_request_failures_total"))
	assert.EqualValues(t, 2, gatherValue(t, reg, "neorpc_cache_hits_total"))
	assert.EqualValues(t, 1, gatherValue(t, reg, "neorpc_cache_misses_total"))
	assert.EqualValues(t, 1, gatherValue(t, reg, "neorpc_cache_entries"))
	assert.EqualValues(t, 1, gatherValue(t, reg, "neorpc_pool_connections_created_total"))
	assert.EqualValues(t, 1, gatherValue(t, reg, "neorpc_pool_idle_connections"))
	assert.EqualValues(t, 0, gatherValue(t, reg, "neorpc_circuit_breaker_state"))

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		labels := mf.GetMetric()[0].GetLabel()
		require.Len(t, labels, 1)
		assert.Equal(t, "endpoint", labels[0].GetName())
		assert.Equal(t, node.srv.URL, labels[0].GetValue())
	}
}

func TestCollector_UnregisteredOnClose(t *testing.T) {
	node := newFakeNode(t)
	reg := prometheus.NewRegistry()

	c, err := New(testConfig(node.srv.URL), zerolog.Nop(), WithRegisterer(reg))
	require.NoError(t, err)
	c.Close()

	// a second client for the same endpoint can register again
	c2, err := New(testConfig(node.srv.URL), zerolog.Nop(), WithRegisterer(reg))
	require.NoError(t, err)
	c2.Close()
}
