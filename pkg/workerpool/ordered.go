package workerpool

import (
	"runtime"
	"sync"
)

// DefaultCapacityPerWorker is the number of finished results each worker may run ahead of the consumer.
const DefaultCapacityPerWorker = 10

// Source yields items one at a time until it reports false.
type Source[T any] interface {
	Next() (T, bool)
}

// Result carries the outcome of a transform for one input position.
type Result[T any] struct {
	Value T
	Err   error
}

type rangeSource struct {
	next uint64
	end  uint64
}

// Range returns a Source yielding start, start+1, ..., end-1.
func Range(start, end uint64) Source[uint64] {
	return &rangeSource{next: start, end: end}
}

func (r *rangeSource) Next() (uint64, bool) {
	if r.next >= r.end {
		return 0, false
	}
	v := r.next
	r.next++
	return v, true
}

type sliceSource[T any] struct {
	items []T
	pos   int
}

// Slice returns a Source over the given items.
func Slice[T any](items []T) Source[T] {
	return &sliceSource[T]{items: items}
}

func (s *sliceSource[T]) Next() (T, bool) {
	if s.pos >= len(s.items) {
		var zero T
		return zero, false
	}
	v := s.items[s.pos]
	s.pos++
	return v, true
}

type positioned[T any] struct {
	pos    uint64
	result Result[T]
}

// Ordered applies transform to every item of a Source on a fixed pool of workers
// and yields the results strictly in input order.
//
// Workers are dispatched by NewOrdered. Each worker takes a token, claims the next
// unclaimed input, transforms it and delivers (position, result) into a channel. Next
// buffers early arrivals until their turn and returns one token per result it hands
// out, so at most capacity positions are claimed but not yet consumed, buffered ones
// included. A stalled head position stalls every worker once the tokens run out.
// Ordered is itself a Source of Results, which lets one engine feed another.
//
// Next is not safe for concurrent use; a downstream engine serializes its calls under
// its own claim lock.
type Ordered[In, Out any] struct {
	src       Source[In]
	transform func(In) (Out, error)

	claimMu sync.Mutex
	claimed uint64
	drained bool

	tokens   chan struct{}
	results  chan positioned[Out]
	pending  map[uint64]Result[Out]
	expected uint64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewOrdered starts workerCount workers over src. A non-positive workerCount means
// runtime.NumCPU(); a non-positive capacity means DefaultCapacityPerWorker per worker.
func NewOrdered[In, Out any](
	src Source[In],
	workerCount int,
	capacity int,
	transform func(In) (Out, error),
) *Ordered[In, Out] {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if capacity <= 0 {
		capacity = workerCount * DefaultCapacityPerWorker
	}

	o := &Ordered[In, Out]{
		src:       src,
		transform: transform,
		tokens:    make(chan struct{}, capacity),
		results:   make(chan positioned[Out], capacity),
		pending:   make(map[uint64]Result[Out]),
		stop:      make(chan struct{}),
	}

	o.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go o.work()
	}
	go func() {
		o.wg.Wait()
		close(o.results)
	}()

	return o
}

func (o *Ordered[In, Out]) work() {
	defer o.wg.Done()
	for {
		pos, item, ok := o.claim()
		if !ok {
			return
		}

		value, err := o.transform(item)
		select {
		case <-o.stop:
			return
		case o.results <- positioned[Out]{pos: pos, result: Result[Out]{Value: value, Err: err}}:
		}
	}
}

func (o *Ordered[In, Out]) claim() (uint64, In, bool) {
	o.claimMu.Lock()
	defer o.claimMu.Unlock()

	var zero In
	if o.drained || o.stopped() {
		return 0, zero, false
	}

	select {
	case <-o.stop:
		return 0, zero, false
	case o.tokens <- struct{}{}:
	}

	item, ok := o.src.Next()
	if !ok {
		<-o.tokens
		o.drained = true
		return 0, zero, false
	}
	pos := o.claimed
	o.claimed++
	return pos, item, true
}

func (o *Ordered[In, Out]) stopped() bool {
	select {
	case <-o.stop:
		return true
	default:
		return false
	}
}

// Next blocks until the result for the next position is available. It reports false
// once the input is exhausted and every result has been delivered, or after Stop.
func (o *Ordered[In, Out]) Next() (Result[Out], bool) {
	for {
		if o.stopped() {
			return Result[Out]{}, false
		}
		if r, ok := o.pending[o.expected]; ok {
			delete(o.pending, o.expected)
			o.expected++
			<-o.tokens
			return r, true
		}

		select {
		case <-o.stop:
			return Result[Out]{}, false
		case p, ok := <-o.results:
			if !ok {
				return Result[Out]{}, false
			}
			o.pending[p.pos] = p.result
		}
	}
}

// Stop makes workers stop claiming input and unblocks pending deliveries. In-flight
// transforms finish but their results are discarded. Stop does not wait.
func (o *Ordered[In, Out]) Stop() {
	o.stopOnce.Do(func() {
		close(o.stop)
	})
}

// Wait blocks until every worker has returned.
func (o *Ordered[In, Out]) Wait() {
	o.wg.Wait()
}

// Close stops the engine and waits for its workers.
func (o *Ordered[In, Out]) Close() {
	o.Stop()
	o.Wait()
}
