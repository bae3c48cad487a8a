package backend

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hupe1980/relate/internal/fs"
	"github.com/hupe1980/relate/resource"
)

// ErrInvalidKey is returned for keys that cannot be mapped to a path.
var ErrInvalidKey = errors.New("backend: invalid key")

const (
	locksDir   = ".locks"
	tempPrefix = ".tmp-"
)

// LocalOptions configures a Local backend.
type LocalOptions struct {
	// FileSystem is the filesystem implementation. Defaults to fs.Default.
	FileSystem fs.FileSystem
	// FilePerm is the permission of record files. Defaults to 0o644.
	FilePerm os.FileMode
	// Resources charges reads and writes against an IO budget. Optional.
	Resources *resource.Controller
}

// Local implements Backend on the local filesystem. Keys map to paths below
// root; empty parent directories are pruned on delete.
type Local struct {
	root string
	opts LocalOptions
}

// NewLocal creates a Local backend rooted at root. The directory is created
// if it does not exist.
func NewLocal(root string, optFns ...func(o *LocalOptions)) (*Local, error) {
	opts := LocalOptions{
		FileSystem: fs.Default,
		FilePerm:   0o644,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := opts.FileSystem.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("backend: create root %s: %w", abs, err)
	}

	return &Local{root: abs, opts: opts}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

func (l *Local) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, elem := range Split(key) {
		if elem == "" || elem == "." || elem == ".." || elem == locksDir || strings.HasPrefix(elem, tempPrefix) {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return filepath.Join(l.root, filepath.FromSlash(key)), nil
}

// Get reads a record file.
func (l *Local) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}

	data, err := l.opts.FileSystem.ReadFile(p)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := l.opts.Resources.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// Put writes a record via a temp file and rename.
func (l *Local) Put(ctx context.Context, key string, data []byte) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}

	if err := l.opts.Resources.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	return fs.WriteFileAtomic(l.opts.FileSystem, p, data, l.opts.FilePerm)
}

// Delete removes a record file and prunes empty parent directories.
func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}

	if err := l.opts.FileSystem.Remove(p); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return err
	}

	l.prune(filepath.Dir(p))
	return nil
}

// prune removes dir and its ancestors below root while they are empty.
func (l *Local) prune(dir string) {
	for dir != l.root && strings.HasPrefix(dir, l.root) {
		entries, err := l.opts.FileSystem.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		// A concurrent writer may have created an entry; Remove then fails
		// with ENOTEMPTY and the directory stays.
		if err := l.opts.FileSystem.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// List walks the deepest directory implied by prefix.
func (l *Local) List(ctx context.Context, prefix string) ([]string, error) {
	start := l.root
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		start = filepath.Join(l.root, filepath.FromSlash(prefix[:i]))
	}

	var keys []string
	err := l.walk(ctx, start, func(key string) {
		if hasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(keys)
	return keys, nil
}

func (l *Local) walk(ctx context.Context, dir string, fn func(key string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := l.opts.FileSystem.ReadDir(dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, tempPrefix) || (dir == l.root && name == locksDir) {
			continue
		}

		full := filepath.Join(dir, name)
		if e.IsDir() {
			if err := l.walk(ctx, full, fn); err != nil {
				return err
			}
			continue
		}

		rel, err := filepath.Rel(l.root, full)
		if err != nil {
			return err
		}
		fn(filepath.ToSlash(rel))
	}
	return nil
}
