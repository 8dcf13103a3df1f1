package cache

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
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockSuffix     = ".lock"
	tempPattern    = ".nupkg-*"
	lockRetryDelay = 50 * time.Millisecond
)

// NewStore 构建磁盘缓存。目录按 Locator 传入，整个进程复用一份实例以共享锁表。
func NewStore(opts Options) Store {
	return &fileStore{
		lockTimeout: opts.LockTimeout,
		locks:       make(map[string]*entryLock),
	}
}

// fileStore 通过 entryLock 避免同一路径在进程内并发写入，再用 flock 协调跨进程写入。
type fileStore struct {
	lockTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Path(locator Locator) (string, error) {
	return s.path(locator)
}

func (s *fileStore) Stat(ctx context.Context, locator Locator) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.path(locator)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	entry := newEntry(locator, filePath, info)
	return &entry, nil
}

func (s *fileStore) Open(ctx context.Context, locator Locator) (*os.File, error) {
	if _, err := s.Stat(ctx, locator); err != nil {
		return nil, err
	}

	filePath, err := s.path(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *fileStore) Put(ctx context.Context, locator Locator, body io.Reader) (*os.File, error) {
	filePath, err := s.path(locator)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	tempFile, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return nil, err
	}
	tempName := tempFile.Name()

	_, err = copyWithContext(ctx, tempFile, body)
	if err == nil {
		err = tempFile.Chmod(0o644)
	}
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return nil, err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return nil, err
	}

	return os.Open(filePath)
}

func (s *fileStore) Remove(ctx context.Context, locator Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := s.path(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("target directory required")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve target directory: %w", err)
	}

	items, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		name := item.Name()
		if item.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ArchiveExtension) {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		entries = append(entries, newEntry(Locator{Dir: abs}, filepath.Join(abs, name), info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].FileName < entries[j].FileName })
	return entries, nil
}

func (s *fileStore) Lock(ctx context.Context, locator Locator) (func(), error) {
	filePath, err := s.path(locator)
	if err != nil {
		return nil, err
	}

	release := s.lockEntry(filePath)

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		release()
		return nil, err
	}

	lockCtx := ctx
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	fileLock := flock.New(filePath + lockSuffix)
	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		release()
		return nil, fmt.Errorf("acquire lock %s: %w", fileLock.Path(), err)
	}
	if !locked {
		release()
		return nil, fmt.Errorf("acquire lock %s: not acquired", fileLock.Path())
	}

	return func() {
		_ = fileLock.Unlock()
		release()
	}, nil
}

func (s *fileStore) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

func (s *fileStore) path(locator Locator) (string, error) {
	if strings.TrimSpace(locator.Dir) == "" {
		return "", errors.New("target directory required")
	}
	if err := validateSegment("name", locator.Name); err != nil {
		return "", err
	}
	if err := validateSegment("version", locator.Version); err != nil {
		return "", err
	}

	dir, err := filepath.Abs(locator.Dir)
	if err != nil {
		return "", fmt.Errorf("resolve target directory: %w", err)
	}

	filePath := filepath.Join(dir, FileName(locator.Name, locator.Version))
	if filepath.Dir(filePath) != dir {
		return "", fmt.Errorf("%w: %s@%s", ErrInvalidIdentity, locator.Name, locator.Version)
	}
	return filePath, nil
}

// validateSegment 只拒绝会改变目录结构的值，不做大小写等归一化。
func validateSegment(field, value string) error {
	if value == "" || value == "." || value == ".." ||
		strings.ContainsAny(value, `/\`) || strings.ContainsRune(value, 0) {
		return fmt.Errorf("%w: %s %q", ErrInvalidIdentity, field, value)
	}
	return nil
}

func newEntry(locator Locator, filePath string, info fs.FileInfo) Entry {
	return Entry{
		Locator:   locator,
		FileName:  filepath.Base(filePath),
		FilePath:  filePath,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
