package systems

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPoolCoversRange(t *testing.T) {
	for _, n := range []int{0, 1, parallelThreshold - 1, parallelThreshold, 1000} {
		pool := NewWorkerPool(4)
		hits := make([]int32, n)
		var maxWorker atomic.Int32
		pool.Run(n, func(worker, start, end int) {
			if int32(worker) > maxWorker.Load() {
				maxWorker.Store(int32(worker))
			}
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		pool.Close()

		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d processed %d times", n, i, h)
			}
		}
		assert.Less(t, int(maxWorker.Load()), pool.Workers())
	}
}

func TestWorkerPoolRestartsAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	var total atomic.Int64
	sum := func(_, start, end int) {
		for i := start; i < end; i++ {
			total.Add(int64(i))
		}
	}
	pool.Run(100, sum)
	pool.Close()
	pool.Run(100, sum)
	pool.Close()
	assert.Equal(t, int64(2*4950), total.Load())
}

func TestNilWorkerPool(t *testing.T) {
	var pool *WorkerPool
	assert.Equal(t, 1, pool.Workers())

	calls := 0
	pool.Run(500, func(worker, start, end int) {
		calls++
		assert.Equal(t, 0, worker)
		assert.Equal(t, 0, start)
		assert.Equal(t, 500, end)
	})
	assert.Equal(t, 1, calls)
	pool.Close()
}
