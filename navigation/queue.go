package navigation

// indexQueue is a growable FIFO ring of grid indices, reused across
// wavefront runs.
type indexQueue struct {
	buf   []Index
	head  int
	count int
}

func (q *indexQueue) reset() {
	q.head = 0
	q.count = 0
}

func (q *indexQueue) len() int { return q.count }

func (q *indexQueue) push(idx Index) {
	if q.count == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.count)%len(q.buf)] = idx
	q.count++
}

func (q *indexQueue) pop() Index {
	idx := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return idx
}

func (q *indexQueue) grow() {
	n := len(q.buf) * 2
	if n == 0 {
		n = 64
	}
	buf := make([]Index, n)
	for i := 0; i < q.count; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
