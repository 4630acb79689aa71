package sensor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"smartclock-hub/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sequenceReader struct {
	mu     sync.Mutex
	values []int
	errs   map[int]bool
	n      int
}

func (r *sequenceReader) Read(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.n
	r.n++
	if r.errs[i] {
		return 0, errors.New("adc busy")
	}
	return r.values[i%len(r.values)], nil
}

func TestSample_DerivesLabel(t *testing.T) {
	s := NewSampler(&sequenceReader{values: []int{30, 120, 250}}, time.Second, zap.NewNop())

	want := []data.SensorReading{
		{Raw: 30, Label: data.AirExcellent},
		{Raw: 120, Label: data.AirModerate},
		{Raw: 250, Label: data.AirVeryPoor},
	}
	for _, w := range want {
		got, err := s.Sample(context.Background())
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}
}

func TestRun_SkipsFailedReads(t *testing.T) {
	reader := &sequenceReader{values: []int{10, 20, 30, 40}, errs: map[int]bool{1: true}}
	s := NewSampler(reader, 2*time.Millisecond, zap.NewNop())

	var mu sync.Mutex
	var got []int
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, func(r data.SensorReading) {
			mu.Lock()
			got = append(got, r.Raw)
			mu.Unlock()
		})
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 3
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{10, 30, 40}, got[:3])
}

func TestSysfsReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in_voltage0_raw")
	require.NoError(t, os.WriteFile(path, []byte("1234\n"), 0o644))

	v, err := SysfsReader{Path: path}.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1234, v)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	_, err = SysfsReader{Path: path}.Read(context.Background())
	assert.Error(t, err)

	_, err = SysfsReader{Path: filepath.Join(t.TempDir(), "missing")}.Read(context.Background())
	assert.Error(t, err)
}

func TestSimulatedReader_StaysInRange(t *testing.T) {
	r := NewSimulatedReader(42)
	for i := 0; i < 10000; i++ {
		v, err := r.Read(context.Background())
		require.NoError(t, err)
		require.GreaterOrEqual(t, v, 0)
		require.LessOrEqual(t, v, 4095)
	}
}
