package uart

// fifo is a fixed-capacity byte ring.
type fifo struct {
	buf   [FIFOSize]byte
	head  int
	count int
}

func (q *fifo) len() int {
	return q.count
}

func (q *fifo) push(b byte) bool {
	if q.count == FIFOSize {
		return false
	}
	q.buf[(q.head+q.count)%FIFOSize] = b
	q.count++
	return true
}

func (q *fifo) pop() (byte, bool) {
	if q.count == 0 {
		return 0, false
	}
	b := q.buf[q.head]
	q.head = (q.head + 1) % FIFOSize
	q.count--
	return b, true
}

func (q *fifo) drain() []byte {
	out := make([]byte, 0, q.count)
	for q.count > 0 {
		b, _ := q.pop()
		out = append(out, b)
	}
	return out
}

func (q *fifo) clear() {
	q.head = 0
	q.count = 0
}
