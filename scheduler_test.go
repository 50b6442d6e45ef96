package walletcore

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSequentialLaneOrdering(t *testing.T) {
	s, err := NewScheduler(4)
	assert.NoError(t, err)
	defer s.Close()

	var locker sync.Mutex
	order := make([]string, 0, 3)
	record := func(name string, delay time.Duration) Op {
		return func() error {
			time.Sleep(delay)
			locker.Lock()
			order = append(order, name)
			locker.Unlock()
			return nil
		}
	}

	// B is faster than A; completion order must still follow submission order
	chA := s.Sequential(record("A", 50*time.Millisecond))
	chB := s.Sequential(record("B", time.Millisecond))
	chC := s.Sequential(record("C", 0))
	assert.NoError(t, <-chA)
	assert.NoError(t, <-chB)
	assert.NoError(t, <-chC)

	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestJoinFiresOnce(t *testing.T) {
	s, err := NewScheduler(8)
	assert.NoError(t, err)
	defer s.Close()

	for _, n := range []int{0, 1, 5, 100} {
		var completed int64
		ops := make([]Op, 0, n)
		for i := 0; i < n; i++ {
			ops = append(ops, func() error {
				atomic.AddInt64(&completed, 1)
				return nil
			})
		}
		errs := s.Join(ops)
		assert.Len(t, errs, n)
		assert.Equal(t, int64(n), atomic.LoadInt64(&completed), "join for n=%d", n)
	}
}

func TestJoinCollectsPerOpErrors(t *testing.T) {
	s, err := NewScheduler(2)
	assert.NoError(t, err)
	defer s.Close()

	boom := errors.New("boom")
	errs := s.Join([]Op{
		func() error { return nil },
		func() error { return boom },
		func() error { return nil },
	})
	assert.NoError(t, errs[0])
	assert.Equal(t, boom, errs[1])
	assert.NoError(t, errs[2])
}

func TestConcurrentLaneReturnsResult(t *testing.T) {
	s, err := NewScheduler(2)
	assert.NoError(t, err)
	defer s.Close()

	boom := errors.New("boom")
	assert.Equal(t, boom, <-s.Concurrent(func() error { return boom }))
	assert.NoError(t, <-s.Concurrent(func() error { return nil }))
}
