// Package secretstore keeps named secrets as individual owner-only files in
// an owner-only directory.
//
// The store directory is secured with fileutil.CreateSecureDirectory before
// any secret is written into it. New secrets are created exclusively; Put
// replaces an existing secret atomically while holding a cross-process lock
// on <dir>/.lock so concurrent writers from other processes serialize.
package secretstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BakeLens/securefs/internal/fileutil"
	"github.com/BakeLens/securefs/internal/logger"
	"github.com/gofrs/flock"
)

var log = logger.New("secretstore")

const (
	lockFileName = ".lock"

	// DefaultLockTimeout bounds how long Put and Delete wait for the store lock.
	DefaultLockTimeout = 10 * time.Second

	// lockRetryInterval is the polling interval while another process holds the lock.
	lockRetryInterval = 50 * time.Millisecond
)

var (
	// ErrInvalidName is returned for names that are empty, hidden, or not a
	// single path element.
	ErrInvalidName = errors.New("invalid secret name")

	// ErrInsecureSecret is returned by Get when the file on disk is readable
	// by someone other than its owner.
	ErrInsecureSecret = errors.New("secret file is not owner-only")

	// ErrNotFound is returned when no secret with the given name exists.
	ErrNotFound = errors.New("secret not found")
)

// Store is a directory of secrets.
type Store struct {
	dir         string
	files       *fileutil.FileCreator
	lockTimeout time.Duration
}

type options struct {
	createParents bool
	lockTimeout   time.Duration
	strategy      fileutil.PermissionStrategy
}

// Option configures Open.
type Option func(*options)

// WithCreateParents makes Open create missing parents of the store directory.
func WithCreateParents() Option {
	return func(o *options) { o.createParents = true }
}

// WithLockTimeout overrides DefaultLockTimeout. Non-positive values are ignored.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithStrategy uses s instead of fileutil.DefaultStrategy.
func WithStrategy(s fileutil.PermissionStrategy) Option {
	return func(o *options) { o.strategy = s }
}

// Open secures dir (creating it if needed) and returns a Store rooted there.
func Open(dir string, opts ...Option) (*Store, error) {
	o := options{lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.strategy == nil {
		s, err := fileutil.DefaultStrategy()
		if err != nil {
			return nil, err
		}
		o.strategy = s
	}

	dirs := fileutil.NewDirectoryCreator(o.strategy)
	create := dirs.Create
	if o.createParents {
		create = dirs.CreateAll
	}
	if err := create(dir); err != nil {
		return nil, fmt.Errorf("open secret store: %w", err)
	}

	s := &Store{
		dir:         dir,
		files:       fileutil.NewFileCreator(o.strategy),
		lockTimeout: o.lockTimeout,
	}
	if err := s.ensureLockFile(); err != nil {
		return nil, err
	}
	log.Debug("opened secret store at %q", dir)
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Create stores a new secret. It fails with fs.ErrExist if name is taken.
// A secret that could not be fully written is removed again.
func (s *Store) Create(name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	created := false
	err = s.files.WithNew(path, func(f *os.File) error {
		created = true
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("write secret %q: %w", name, err)
		}
		return f.Sync()
	})
	if err != nil && created {
		if rerr := os.Remove(path); rerr != nil {
			log.Warn("could not remove partial secret %q: %v", path, rerr)
		}
	}
	return err
}

// Put creates or replaces a secret.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		return s.files.WriteAtomic(path, data)
	})
}

// Get returns the secret's content. The file is opened without following
// symlinks and must be owner-only.
func (s *Store) Get(name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	f, err := s.files.OpenVerified(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	case errors.Is(err, fileutil.ErrInsecurePermissions), errors.Is(err, fileutil.ErrNotRegular):
		log.Warn("refusing to read %q: %v", path, err)
		return nil, fmt.Errorf("%w: %s", ErrInsecureSecret, name)
	case err != nil:
		return nil, fmt.Errorf("read secret %q: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read secret %q: %w", name, err)
	}
	return data, nil
}

// Delete removes a secret.
func (s *Store) Delete(ctx context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrNotFound, name)
			}
			return fmt.Errorf("delete secret %q: %w", name, err)
		}
		return nil
	})
}

// List returns the names of all secrets, sorted. The lock file and staging
// files are hidden.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Prune removes staging files left behind by a Put that was interrupted
// before its rename. It holds the store lock, so no Put is in flight.
func (s *Store) Prune(ctx context.Context) (int, error) {
	removed := 0
	err := s.withLock(ctx, func() error {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			return fmt.Errorf("prune secrets: %w", err)
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || !fileutil.IsTempFile(e.Name()) {
				continue
			}
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				return fmt.Errorf("prune secrets: %w", err)
			}
			log.Debug("removed stale staging file %q", e.Name())
			removed++
		}
		return nil
	})
	return removed, err
}

// ValidateName reports whether name can be used as a secret name.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`) || name != filepath.Base(name):
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q must not start with a dot", ErrInvalidName, name)
	}
	return nil
}

func (s *Store) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// ensureLockFile creates the lock file owner-only. flock would otherwise
// create it with its own default mode on first use.
func (s *Store) ensureLockFile() error {
	path := filepath.Join(s.dir, lockFileName)
	f, err := s.files.OpenNew(path)
	switch {
	case err == nil:
		return f.Close()
	case errors.Is(err, fs.ErrExist):
		return nil
	default:
		return fmt.Errorf("create lock file: %w", err)
	}
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	path := filepath.Join(s.dir, lockFileName)
	fl := flock.New(path)

	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquiring store lock %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("acquiring store lock %s: lock not acquired", path)
	}
	defer func() {
		if err := fl.Close(); err != nil {
			log.Debug("failed to release store lock %s: %v", path, err)
		}
	}()

	return fn()
}
