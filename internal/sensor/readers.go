package sensor

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SysfsReader reads a Linux IIO channel such as
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
type SysfsReader struct {
	Path string
}

func (r SysfsReader) Read(context.Context) (int, error) {
	raw, err := os.ReadFile(r.Path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", r.Path, err)
	}
	return v, nil
}

// SimulatedReader is a bounded random walk over a 12-bit ADC range.
type SimulatedReader struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	value int
	step  int
	max   int
}

func NewSimulatedReader(seed int64) *SimulatedReader {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedReader{rnd: rand.New(rand.NewSource(seed)), value: 80, step: 6, max: 4095}
}

func (r *SimulatedReader) Read(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value += r.rnd.Intn(2*r.step+1) - r.step
	if r.value < 0 {
		r.value = 0
	}
	if r.value > r.max {
		r.value = r.max
	}
	return r.value, nil
}
