package walletcore

import (
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/lynxwallet/walletcore/schema"
)

// Op is one network operation. Failures are returned, never thrown across
// the scheduler boundary; retry policy belongs to the caller.
type Op func() error

type seqOp struct {
	op   Op
	done chan error
}

// Scheduler runs operations on two lanes. The sequential lane is FIFO with
// concurrency 1 and is used whenever a later operation's correctness depends
// on an earlier one completing first (sign-then-broadcast, state-mutating
// chain calls). The concurrent lane is a bounded pool for independent read
// fetches; no ordering is guaranteed there.
type Scheduler struct {
	seq  chan seqOp
	pool *ants.Pool

	locker sync.Mutex
	closed bool
}

func NewScheduler(concurrency int) (*Scheduler, error) {
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		seq:  make(chan seqOp, 128),
		pool: pool,
	}
	go s.runSequential()
	return s, nil
}

func (s *Scheduler) runSequential() {
	for so := range s.seq {
		so.done <- so.op()
	}
}

// Sequential enqueues op on the ordered lane. The result arrives on the
// returned channel once every previously enqueued operation has completed.
func (s *Scheduler) Sequential(op Op) <-chan error {
	done := make(chan error, 1)
	s.locker.Lock()
	if s.closed {
		s.locker.Unlock()
		done <- schema.ErrSchedulerClosed
		return done
	}
	s.seq <- seqOp{op: op, done: done}
	s.locker.Unlock()
	return done
}

// Concurrent runs op on the bounded pool.
func (s *Scheduler) Concurrent(op Op) <-chan error {
	done := make(chan error, 1)
	if err := s.pool.Submit(func() { done <- op() }); err != nil {
		done <- err
	}
	return done
}

// Join fans ops out on the concurrent lane and blocks until all have
// reported. Results are returned per-op in submission order; the join fires
// exactly once, a zero-length fan-out returns immediately.
func (s *Scheduler) Join(ops []Op) []error {
	errs := make([]error, len(ops))
	var wg sync.WaitGroup
	for i, op := range ops {
		i, op := i, op
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			errs[i] = op()
		}); err != nil {
			errs[i] = err
			wg.Done()
		}
	}
	wg.Wait()
	return errs
}

func (s *Scheduler) Close() {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.seq)
	s.pool.Release()
}
