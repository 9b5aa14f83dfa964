// Package hammer runs a test body from many goroutines at once to surface data races and lock misuse.
package hammer

import (
	"runtime"
	"sync"
	"testing"
)

// Hammer invokes a test concurrently in P goroutines N times per goroutine.
//
// Ex.
//
//	hammer.NewHammer(t, 8, 1000).Run(func(p, n int) {
//		result, err := m.Execute(0, uint64(p), uint64(n))
//		...
//	}, nil)
//	if t.Failed() {
//		return // At least one goroutine failed, so return now.
//	}
type Hammer interface {
	// Run starts P goroutines, waits until all of them are running, calls onRunning if not nil, then releases
	// them at once so each calls test N times. Run returns when every goroutine finished.
	//
	// A panic in test, such as from require, fails the calling test instead of crashing the process.
	Run(test func(p, n int), onRunning func())
}

// NewHammer returns a Hammer of P goroutines each looping N times.
// Use testing.Short to scale these down on slow runners.
func NewHammer(t *testing.T, P, N int) Hammer {
	return &hammer{t: t, P: P, N: N}
}

type hammer struct {
	t    *testing.T
	P, N int
}

// Run implements Hammer.Run
func (h *hammer) Run(test func(p, n int), onRunning func()) {
	// Fewer processors than goroutines forces them to switch cores.
	if procs := h.P / 2; procs > 0 {
		defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(procs))
	}

	var running, finished sync.WaitGroup
	start := make(chan struct{})
	running.Add(h.P)
	finished.Add(h.P)
	for p := 0; p < h.P; p++ {
		go func(p int) {
			defer finished.Done()
			defer func() {
				if recovered := recover(); recovered != nil {
					h.t.Error(recovered)
				}
			}()
			running.Done()
			<-start
			for n := 0; n < h.N; n++ {
				test(p, n)
			}
		}(p)
	}

	running.Wait()
	if onRunning != nil {
		onRunning()
	}
	close(start)
	finished.Wait()
}
