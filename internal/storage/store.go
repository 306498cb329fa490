package storage

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"panscan/internal/fileutil"
	"panscan/internal/services"
)

const lockName = ".panscan.lock"

// FrameStore persists an image at a relative key and returns the stored
// location.
type FrameStore interface {
	Put(ctx context.Context, img image.Image, key string) (string, error)
}

// LocalStore writes JPEG files beneath a directory.
type LocalStore struct {
	root    string
	quality int
}

// NewLocalStore prepares root for writing.
func NewLocalStore(root string, quality int) (*LocalStore, error) {
	if quality < 1 || quality > 100 {
		return nil, services.Wrap(services.ErrValidation, "storage", "open", fmt.Sprintf("jpeg quality %d outside 1..100", quality), nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "storage", "open", "create output directory", err)
	}
	return &LocalStore{root: root, quality: quality}, nil
}

// Root returns the output directory.
func (s *LocalStore) Root() string { return s.root }

// Put encodes img as JPEG and writes it atomically to root/key.
func (s *LocalStore) Put(ctx context.Context, img image.Image, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(s.root, filepath.FromSlash(clean))
	err = fileutil.WriteAtomic(dest, 0o644, func(w io.Writer) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: s.quality})
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "storage", "put", "write "+key, err)
	}
	return dest, nil
}

// cleanKey normalises a slash-separated key and rejects keys that would
// leave the prefix.
func cleanKey(key string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(key, `\`, "/"))
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", services.Wrap(services.ErrValidation, "storage", "put", fmt.Sprintf("key %q escapes the output directory", key), nil)
	}
	return clean, nil
}

// Lock holds an exclusive advisory lock on an output directory so two runs
// cannot write the same prefix.
type Lock struct {
	lock *flock.Flock
}

// AcquireLock takes the lock without blocking. A held lock is reported as
// services.ErrTransient.
func AcquireLock(root string) (*Lock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "storage", "lock", "create output directory", err)
	}
	path := filepath.Join(root, lockName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "storage", "lock", "acquire lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrTransient, "storage", "lock", fmt.Sprintf("another run is writing to %s", root), nil)
	}
	return &Lock{lock: fl}, nil
}

// Release unlocks the output directory. The lock file stays on disk: every
// run must lock the same inode, which unlinking would break.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return l.lock.Unlock()
}

// Output is an opened output prefix.
type Output struct {
	Store   FrameStore
	release func() error
}

// OpenOutput prepares prefix for writing. Local prefixes are locked for the
// life of the Output; gs:// prefixes are not locked.
func OpenOutput(ctx context.Context, prefix string, quality int) (*Output, error) {
	if IsGCSURI(prefix) {
		store, err := NewGCSStore(ctx, prefix, quality)
		if err != nil {
			return nil, err
		}
		return &Output{Store: store, release: store.Close}, nil
	}
	lock, err := AcquireLock(prefix)
	if err != nil {
		return nil, err
	}
	store, err := NewLocalStore(prefix, quality)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	return &Output{Store: store, release: lock.Release}, nil
}

// Close releases the lock or client held by the output.
func (o *Output) Close() error {
	if o == nil || o.release == nil {
		return nil
	}
	return o.release()
}
