//go:build !unix

package backend

import (
	"context"
	"sync"
)

var localLocks sync.Map // root+name -> *sync.Mutex

// Lock serializes writers within this process only.
func (l *Local) Lock(ctx context.Context, name string) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, _ := localLocks.LoadOrStore(l.root+"\x00"+name, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return func() error {
		mu.Unlock()
		return nil
	}, nil
}
