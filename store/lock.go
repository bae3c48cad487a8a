package store

import (
	"context"
	"sync"

	"github.com/hupe1980/relate/backend"
)

// keyedMutex serializes writers of the same key path within the process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until name is held or ctx is done.
func (k *keyedMutex) Lock(ctx context.Context, name string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[name]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[name] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			k.release(name, e)
		}, nil
	case <-ctx.Done():
		k.release(name, e)
		return nil, ctx.Err()
	}
}

func (k *keyedMutex) release(name string, e *keyedEntry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, name)
	}
	k.mu.Unlock()
}

// lock takes the in-process lock for name and, when the backend supports it,
// the cross-process lock as well.
func (s *Store) lock(ctx context.Context, name string) (func(), error) {
	unlockLocal, err := s.locks.Lock(ctx, name)
	if err != nil {
		return nil, err
	}

	l, ok := s.backend.(backend.Locker)
	if !ok {
		return unlockLocal, nil
	}

	unlockRemote, err := l.Lock(ctx, name)
	if err != nil {
		unlockLocal()
		return nil, err
	}

	return func() {
		if err := unlockRemote(); err != nil {
			s.logger.Warn("release lock", "name", name, "error", err)
		}
		unlockLocal()
	}, nil
}
