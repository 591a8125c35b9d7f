package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/internal/lock"
)

var _ = Describe("LocalLocker", func() {
	var (
		ctx    context.Context
		locker *lock.LocalLocker
	)

	BeforeEach(func() {
		ctx = context.Background()
		locker = lock.NewLocalLocker()
	})

	It("excludes a second run for the same user", func() {
		release, err := locker.Acquire(ctx, 42)
		Expect(err).NotTo(HaveOccurred())

		_, err = locker.Acquire(ctx, 42)
		Expect(err).To(MatchError(lock.ErrLocked))

		release()
		release2, err := locker.Acquire(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		release2()
	})

	It("lets different users run in parallel", func() {
		r1, err := locker.Acquire(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		r2, err := locker.Acquire(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		r1()
		r2()
	})

	It("tolerates double release", func() {
		release, err := locker.Acquire(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		release()
		other, err := locker.Acquire(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		release()

		_, err = locker.Acquire(ctx, 42)
		Expect(err).To(MatchError(lock.ErrLocked))
		other()
	})

	It("grants exactly one of many concurrent attempts", func() {
		var (
			wg      sync.WaitGroup
			granted atomic.Int32
		)
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := locker.Acquire(ctx, 7); err == nil {
					granted.Add(1)
				}
			}()
		}
		wg.Wait()
		Expect(granted.Load()).To(Equal(int32(1)))
	})
})

// memLeases is an in-memory LeaseStore that honours tokens and expiry.
type memLeases struct {
	mu       sync.Mutex
	owner    map[string]string
	expires  map[string]time.Time
	extends  atomic.Int32
	released []string
	extendFn func() (bool, error)
}

func newMemLeases() *memLeases {
	return &memLeases{owner: map[string]string{}, expires: map[string]time.Time{}}
}

func (m *memLeases) Claim(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.owner[key]; held && time.Now().Before(m.expires[key]) {
		return false, nil
	}
	m.owner[key] = token
	m.expires[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *memLeases) Extend(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	m.extends.Add(1)
	if m.extendFn != nil {
		return m.extendFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner[key] != token {
		return false, nil
	}
	m.expires[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *memLeases) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner[key] == token {
		delete(m.owner, key)
		delete(m.expires, key)
	}
	m.released = append(m.released, key)
	return nil
}

var _ = Describe("LeaseLocker", func() {
	const ttl = 60 * time.Millisecond

	var (
		ctx    context.Context
		leases *memLeases
		locker *lock.LeaseLocker
	)

	BeforeEach(func() {
		ctx = context.Background()
		leases = newMemLeases()
		locker = lock.NewLeaseLocker(leases, ttl)
	})

	It("excludes a second holder until release", func() {
		release, err := locker.Acquire(ctx, 42)
		Expect(err).NotTo(HaveOccurred())

		_, err = locker.Acquire(ctx, 42)
		Expect(err).To(MatchError(lock.ErrLocked))

		release()
		Expect(leases.released).To(Equal([]string{"persona:lock:42"}))
		again, err := locker.Acquire(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		again()
	})

	It("keeps the lease alive while a run outlasts the ttl", func() {
		release, err := locker.Acquire(ctx, 42)
		Expect(err).NotTo(HaveOccurred())

		time.Sleep(3 * ttl)

		_, err = locker.Acquire(ctx, 42)
		Expect(err).To(MatchError(lock.ErrLocked))
		Expect(leases.extends.Load()).To(BeNumerically(">=", 3))
		release()
	})

	It("stops renewing once released", func() {
		release, err := locker.Acquire(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		Eventually(leases.extends.Load).Should(BeNumerically(">=", 1))
		release()
		release()

		after := leases.extends.Load()
		Consistently(leases.extends.Load, 2*ttl, ttl/6).Should(Equal(after))
	})

	It("keeps trying after a failed renewal and gives up on a lost lease", func() {
		var calls atomic.Int32
		leases.extendFn = func() (bool, error) {
			if calls.Add(1) == 1 {
				return false, errors.New("timeout")
			}
			return false, nil
		}
		release, err := locker.Acquire(ctx, 42)
		Expect(err).NotTo(HaveOccurred())

		Eventually(calls.Load).Should(Equal(int32(2)))
		Consistently(calls.Load, 2*ttl, ttl/6).Should(Equal(int32(2)))
		release()
	})
})
