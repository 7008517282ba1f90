package manager

import "sync"

// futureConnection is resolved once with the connection a waiter asked for.
type futureConnection struct {
	mu        sync.Mutex
	conn      *Connection
	wakers    []func()
	abandoned bool
}

func newFutureConnection() *futureConnection {
	return &futureConnection{}
}

// poll returns the connection if resolved, otherwise registers waker to be
// called on resolution.
func (f *futureConnection) poll(waker func()) (*Connection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn != nil {
		return f.conn, true
	}
	f.wakers = append(f.wakers, waker)
	return nil, false
}

// resolve stores conn and calls every registered waker. Only the first call
// has any effect.
func (f *futureConnection) resolve(conn *Connection) {
	f.mu.Lock()
	if f.conn != nil {
		f.mu.Unlock()
		return
	}
	f.conn = conn
	wakers := f.wakers
	f.wakers = nil
	f.mu.Unlock()

	for _, wake := range wakers {
		wake()
	}
}

// abandon marks the waiter as gone so the registry can drop it.
func (f *futureConnection) abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = true
	f.wakers = nil
}

func (f *futureConnection) isAbandoned() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.abandoned
}
