package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remote-file-manager/internal/config"
	"remote-file-manager/internal/domain"
)

type fakeSession struct {
	id      int
	pingErr error
	closed  atomic.Bool
}

func (f *fakeSession) List(context.Context, string) ([]domain.FileEntry, error) { return nil, nil }
func (f *fakeSession) Size(context.Context, string) (int64, error)              { return 0, nil }
func (f *fakeSession) Retrieve(context.Context, string, io.Writer) error        { return nil }
func (f *fakeSession) Store(context.Context, string, io.Reader) error           { return nil }
func (f *fakeSession) MakeDir(context.Context, string) error                    { return nil }
func (f *fakeSession) Rename(context.Context, string, string) error             { return nil }
func (f *fakeSession) RemoveFile(context.Context, string) error                 { return nil }
func (f *fakeSession) RemoveDir(context.Context, string) error                  { return nil }
func (f *fakeSession) Ping(context.Context) error                               { return f.pingErr }
func (f *fakeSession) Close() error {
	f.closed.Store(true)
	return nil
}

type fakeDialer struct {
	mu       sync.Mutex
	sessions []*fakeSession
	err      error
}

func (d *fakeDialer) Dial(context.Context) (domain.RemoteSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	s := &fakeSession{id: len(d.sessions) + 1}
	d.sessions = append(d.sessions, s)
	return s, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

func sessionID(t *testing.T, lease *domain.Lease) int {
	t.Helper()
	ps, ok := lease.Session.(*pooledSession)
	require.True(t, ok)
	fs, ok := ps.RemoteSession.(*fakeSession)
	require.True(t, ok)
	return fs.id
}

func TestPool_ReusesReleasedSession(t *testing.T) {
	dialer := &fakeDialer{}
	pool := NewPool(dialer.Dial, PoolOptions{Name: "test", Size: 2, Reuse: true})
	ctx := context.Background()

	lease, err := pool.Acquire(ctx)
	require.NoError(t, err)
	first := sessionID(t, lease)
	lease.Release()
	lease.Release() // second release is a no-op

	lease, err = pool.Acquire(ctx)
	require.NoError(t, err)
	defer lease.Release()

	assert.Equal(t, first, sessionID(t, lease))
	assert.Equal(t, 1, dialer.count())
}

func TestPool_DedicatedClosesOnRelease(t *testing.T) {
	dialer := &fakeDialer{}
	pool := NewPool(dialer.Dial, PoolOptions{Name: PoolDedicated})

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()

	require.Equal(t, 1, dialer.count())
	assert.True(t, dialer.sessions[0].closed.Load())
	assert.Equal(t, 0, pool.Idle())
}

func TestPool_FailFastWhenBusy(t *testing.T) {
	dialer := &fakeDialer{}
	pool := NewPool(dialer.Dial, PoolOptions{Name: PoolExclusive, Size: 1, FailFast: true, Reuse: true})
	ctx := context.Background()

	lease, err := pool.Acquire(ctx)
	require.NoError(t, err)

	_, err = pool.Acquire(ctx)
	assert.True(t, errors.Is(err, domain.ErrOperationInProgress))

	lease.Release()

	lease, err = pool.Acquire(ctx)
	require.NoError(t, err)
	lease.Release()
}

func TestPool_QueuesWhenFull(t *testing.T) {
	dialer := &fakeDialer{}
	pool := NewPool(dialer.Dial, PoolOptions{Name: PoolExclusive, Size: 1, Reuse: true})

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	t.Run("times out while held", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := pool.Acquire(ctx)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("served after release", func(t *testing.T) {
		acquired := make(chan *domain.Lease, 1)
		go func() {
			l, acquireErr := pool.Acquire(context.Background())
			if acquireErr == nil {
				acquired <- l
			}
		}()

		select {
		case <-acquired:
			t.Fatal("acquired a session that is still leased")
		case <-time.After(20 * time.Millisecond):
		}

		lease.Release()

		select {
		case l := <-acquired:
			assert.Equal(t, 1, sessionID(t, l))
			l.Release()
		case <-time.After(time.Second):
			t.Fatal("waiter was not served after release")
		}
	})
}

func TestPool_DialFailure(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("connection refused")}
	pool := NewPool(dialer.Dial, PoolOptions{Name: "test", Size: 1, FailFast: true, Reuse: true})

	_, err := pool.Acquire(context.Background())
	assert.True(t, errors.Is(err, domain.ErrTransportUnavailable))

	// the slot must be returned, otherwise the pool stays busy forever
	dialer.err = nil
	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()
}

func TestPool_RedialsExpiredSession(t *testing.T) {
	dialer := &fakeDialer{}
	pool := NewPool(dialer.Dial, PoolOptions{Name: "test", Size: 1, Reuse: true, MaxAge: time.Hour})
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	pool.nowFunc = func() time.Time { return now }

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()

	now = now.Add(2 * time.Hour)

	lease, err = pool.Acquire(context.Background())
	require.NoError(t, err)
	defer lease.Release()

	assert.Equal(t, 2, sessionID(t, lease))
	assert.True(t, dialer.sessions[0].closed.Load())
}

func TestPool_BrokenAndUnhealthySessions(t *testing.T) {
	t.Run("broken lease is closed", func(t *testing.T) {
		dialer := &fakeDialer{}
		pool := NewPool(dialer.Dial, PoolOptions{Name: "test", Size: 1, Reuse: true})

		lease, err := pool.Acquire(context.Background())
		require.NoError(t, err)
		lease.MarkBroken()
		lease.Release()

		assert.True(t, dialer.sessions[0].closed.Load())
		assert.Equal(t, 0, pool.Idle())
	})

	t.Run("failed ping triggers redial", func(t *testing.T) {
		dialer := &fakeDialer{}
		pool := NewPool(dialer.Dial, PoolOptions{Name: "test", Size: 1, Reuse: true})

		lease, err := pool.Acquire(context.Background())
		require.NoError(t, err)
		lease.Release()
		dialer.sessions[0].pingErr = errors.New("421 timeout")

		lease, err = pool.Acquire(context.Background())
		require.NoError(t, err)
		defer lease.Release()

		assert.Equal(t, 2, sessionID(t, lease))
		assert.True(t, dialer.sessions[0].closed.Load())
	})
}

func TestPool_Recycle(t *testing.T) {
	dialer := &fakeDialer{}
	pool := NewPool(dialer.Dial, PoolOptions{Name: "test", Size: 2, Reuse: true})
	ctx := context.Background()

	a, err := pool.Acquire(ctx)
	require.NoError(t, err)
	b, err := pool.Acquire(ctx)
	require.NoError(t, err)
	a.Release()
	b.Release()
	require.Equal(t, 2, pool.Idle())

	assert.Equal(t, 2, pool.Recycle())
	assert.Equal(t, 0, pool.Idle())
	for _, s := range dialer.sessions {
		assert.True(t, s.closed.Load())
	}
}

func TestManager_Modes(t *testing.T) {
	dialer := &fakeDialer{}
	manager := NewManager(dialer.Dial, config.SessionsConfig{
		PoolSize:          2,
		ReconnectInterval: time.Hour,
		ExclusiveFailFast: true,
	})
	defer manager.Close()
	ctx := context.Background()

	exclusive, err := manager.Exclusive(ctx)
	require.NoError(t, err)
	_, err = manager.Exclusive(ctx)
	assert.True(t, errors.Is(err, domain.ErrOperationInProgress))

	pooled, err := manager.Pooled(ctx)
	require.NoError(t, err)
	dedicated, err := manager.Dedicated(ctx)
	require.NoError(t, err)

	exclusive.Release()
	pooled.Release()
	dedicated.Release()

	assert.Equal(t, 3, dialer.count())
	assert.True(t, dialer.sessions[2].closed.Load())
	assert.False(t, dialer.sessions[0].closed.Load())
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	manager := NewManager((&fakeDialer{}).Dial, config.SessionsConfig{PoolSize: 1, ReconnectInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		manager.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
