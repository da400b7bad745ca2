package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotEmpty(t *testing.T) {
	c := NewCollector()
	snap := c.Snapshot()

	assert.Nil(t, snap.Search)
	assert.Nil(t, snap.LLMGenerate)
	assert.Nil(t, snap.Submit)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpSearch, 100*time.Millisecond, OutcomeOK)
	c.RecordTiming(OpSearch, 300*time.Millisecond, OutcomeError)

	snap := c.Snapshot()
	require.NotNil(t, snap.Search)
	assert.Equal(t, int64(2), snap.Search.Count)
	assert.Equal(t, int64(1), snap.Search.Failures)
	assert.Equal(t, int64(400), snap.Search.TotalTimeMs)
	assert.Equal(t, 200.0, snap.Search.AvgTimeMs)
	assert.Equal(t, int64(100), snap.Search.MinTimeMs)
	assert.Equal(t, int64(300), snap.Search.MaxTimeMs)
	assert.Nil(t, snap.Search.AvgPromptChars, "search carries no size stats")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.total.WithLabelValues(OpSearch, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.total.WithLabelValues(OpSearch, OutcomeError)))
}

func TestRecordLLMUsage(t *testing.T) {
	c := NewCollector()
	c.RecordLLMUsage(OpLLMGenerate, time.Second, OutcomeOK, 200, 10)
	c.RecordLLMUsage(OpLLMGenerate, 3*time.Second, OutcomeOK, 400, 30)

	snap := c.Snapshot()
	require.NotNil(t, snap.LLMGenerate)
	require.NotNil(t, snap.LLMGenerate.AvgPromptChars)
	assert.Equal(t, 300.0, *snap.LLMGenerate.AvgPromptChars)
	assert.Equal(t, 20.0, *snap.LLMGenerate.AvgAnswerChars)
	assert.Equal(t, int64(400), *snap.LLMGenerate.MaxPromptChars)
	assert.Equal(t, int64(30), *snap.LLMGenerate.MaxAnswerChars)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordTiming(OpSubmit, time.Millisecond, OutcomeOK)
		c.RecordLLMUsage(OpLLMGenerate, time.Millisecond, OutcomeOK, 1, 1)
	})
	assert.Equal(t, Snapshot{}, c.Snapshot())
}

func TestConcurrentRecording(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordTiming(OpSubmit, time.Millisecond, OutcomeOK)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), c.Snapshot().Submit.Count)
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}
