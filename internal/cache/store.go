package cache

import (
	"context"
	"errors"
	"io"
	"os"
	"time"
)

// ArchiveExtension 是缓存制品的固定后缀。
const ArchiveExtension = ".nupkg"

// Store 负责管理磁盘缓存的读写。磁盘布局遵循：
//
//	<Dir>/<Name>.<Version>.nupkg    # 完整包体
//	<Dir>/<Name>.<Version>.nupkg.lock  # 跨进程 advisory lock
//
// 同一 Locator 只对应一个路径，文件只会被整体替换，不会被部分写入。
type Store interface {
	// Path 返回 Locator 对应的绝对路径，并校验 name/version 不会逃逸出目录。
	Path(locator Locator) (string, error)

	// Stat 返回条目信息，不存在时返回 ErrNotFound。
	Stat(ctx context.Context, locator Locator) (*Entry, error)

	// Open 以只读方式打开已有制品。若不存在则返回 ErrNotFound。
	Open(ctx context.Context, locator Locator) (*os.File, error)

	// Put 将 body 全量写入临时文件后 rename 覆盖目标路径，返回新制品的只读句柄。
	// 目录不存在时递归创建。调用方应持有 Lock。
	Put(ctx context.Context, locator Locator, body io.Reader) (*os.File, error)

	// Remove 删除制品，不存在时视为成功。
	Remove(ctx context.Context, locator Locator) error

	// List 列出 dir 下的全部制品（忽略临时文件与锁文件）。
	List(ctx context.Context, dir string) ([]Entry, error)

	// Lock 获取 Locator 的互斥锁，返回的函数用于释放。
	Lock(ctx context.Context, locator Locator) (func(), error)
}

// Options 控制 Store 的可选行为。
type Options struct {
	// LockTimeout 限制等待跨进程文件锁的时长，<=0 表示只受 ctx 约束。
	LockTimeout time.Duration
}

// Locator 唯一定位一个缓存条目（目录 + 包名 + 版本），不做任何归一化。
type Locator struct {
	Dir     string
	Name    string
	Version string
}

// FileName 返回 {name}.{version}.nupkg。
func FileName(name, version string) string {
	return name + "." + version + ArchiveExtension
}

// Entry 描述一个磁盘上的制品。
type Entry struct {
	Locator   Locator   `json:"-"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

var (
	// ErrNotFound 表示缓存不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrInvalidIdentity 表示 name/version 无法安全映射为文件名。
	ErrInvalidIdentity = errors.New("invalid package identity")
)
