package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerPercentiles(t *testing.T) {
	tr := newTracker()
	for i := 1; i <= 100; i++ {
		tr.observe(time.Duration(i) * time.Millisecond)
	}

	s := tr.snapshot()
	assert.Equal(t, 100, s.Inferences)
	assert.InDelta(t, 5050.0, s.TotalMs, 0.001)
	assert.InDelta(t, 50.5, s.AverageMs, 0.001)
	assert.InDelta(t, 50.0, s.P50Ms, 0.001)
	assert.InDelta(t, 95.0, s.P95Ms, 0.001)
}

func TestTrackerWindow(t *testing.T) {
	tr := newTracker()
	for range maxSamples {
		tr.observe(time.Second)
	}
	for range maxSamples {
		tr.observe(time.Millisecond)
	}

	s := tr.snapshot()
	assert.Equal(t, 2*maxSamples, s.Inferences)
	assert.InDelta(t, 1.0, s.P95Ms, 0.001)
}

func TestEmptyStats(t *testing.T) {
	var nilTracker *tracker
	assert.Equal(t, Stats{}, nilTracker.snapshot())

	s := newTracker().snapshot()
	assert.Equal(t, 0, s.Inferences)
	assert.Zero(t, s.AverageMs)
	assert.Zero(t, s.P50Ms)
}

func TestPrintStats(t *testing.T) {
	b := NewBase(Config{ModelID: "resnet50.a1_in1k", Backend: "timm", Device: "cpu", DType: "float32"})
	b.stats.observe(2 * time.Millisecond)

	var buf bytes.Buffer
	b.PrintStats(&buf)

	out := buf.String()
	for _, want := range []string{"Model ID", "resnet50.a1_in1k", "Number of Inferences", "Average Latency (ms)", "2.0000"} {
		assert.Contains(t, out, want)
	}
}

func TestInferBatchKeepsOrder(t *testing.T) {
	t.Setenv("XINFER_BATCH_CONCURRENCY", "4")

	m := &fakeModel{Base: NewBase(Config{ModelID: "m", Backend: "b"})}
	m.inferFunc = func(in Input) (any, error) {
		// spaetere Eingaben werden frueher fertig
		d := time.Duration(len(in.Prompt)) * time.Millisecond
		time.Sleep(d)
		return in.Image, nil
	}

	var inputs []Input
	var want []any
	for i := range 8 {
		img := fmt.Sprintf("img-%d.jpg", i)
		inputs = append(inputs, Input{Image: img, Prompt: string(make([]byte, 8-i))})
		want = append(want, img)
	}

	got, err := m.InferBatch(t.Context(), inputs)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 8, m.Stats().Inferences)
}

func TestInferBatchEmpty(t *testing.T) {
	m := &fakeModel{Base: NewBase(Config{ModelID: "m", Backend: "b"})}
	got, err := m.InferBatch(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInferBatchStopsOnError(t *testing.T) {
	t.Setenv("XINFER_BATCH_CONCURRENCY", "1")

	cause := errors.New("bad image")
	var calls atomic.Int32
	m := &fakeModel{Base: NewBase(Config{ModelID: "m", Backend: "b"})}
	m.inferFunc = func(in Input) (any, error) {
		calls.Add(1)
		if in.Image == "bad" {
			return nil, cause
		}
		return "ok", nil
	}

	_, err := m.InferBatch(t.Context(), []Input{{Image: "a"}, {Image: "bad"}, {Image: "c"}, {Image: "d"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInference)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInferBatchCanceled(t *testing.T) {
	m := &fakeModel{Base: NewBase(Config{ModelID: "m", Backend: "b"})}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := m.InferBatch(ctx, []Input{{Image: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
}
