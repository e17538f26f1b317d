package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegister(t *testing.T) {
	r := prometheus.NewRegistry()

	// 并发读取与首次注册同时发生，由 -race 检查。
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotNil(t, GetRegisterer())
		}()
	}
	Register(r)
	wg.Wait()
	// 第二次调用不会重复注册而 panic。
	Register(prometheus.NewRegistry())

	assert.Equal(t, prometheus.Registerer(r), GetRegisterer())
}

func TestObserveSerialize(t *testing.T) {
	const typeName = "metrics_test.T"

	before := testutil.ToFloat64(SerializeTotal.WithLabelValues(typeName, SuccessLabel))
	ObserveSerialize(typeName, SuccessLabel, time.Now())
	ObserveSerialize(typeName, UnconfiguredLabel, time.Now())
	ObserveSerialize(typeName, UnconfiguredLabel, time.Now())

	assert.Equal(t, before+1, testutil.ToFloat64(SerializeTotal.WithLabelValues(typeName, SuccessLabel)))
	assert.Equal(t, float64(2), testutil.ToFloat64(SerializeTotal.WithLabelValues(typeName, UnconfiguredLabel)))
	assert.Equal(t, 1, testutil.CollectAndCount(SerializeLatency))
}
