package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/nuget-dl/internal/cache"
	"github.com/any-hub/nuget-dl/internal/logging"
	"github.com/any-hub/nuget-dl/internal/registry"
)

// MetadataFetcher 返回注册中心对某个包上报的摘要。
type MetadataFetcher interface {
	PackageHash(ctx context.Context, name, version string) (registry.PackageDigest, error)
}

// ContentFetcher 返回某个包的完整包体。
type ContentFetcher interface {
	DownloadBytes(ctx context.Context, name, version string) ([]byte, error)
}

// VerifyPolicy 决定摘要校验本身出错（元数据请求失败、读文件失败等）时的处理方式。
type VerifyPolicy string

const (
	// VerifyPolicyRedownload 把校验错误视为不匹配，继续重新下载。
	VerifyPolicyRedownload VerifyPolicy = "redownload"
	// VerifyPolicyFail 直接返回校验错误，不回退到下载。
	VerifyPolicyFail VerifyPolicy = "fail"
)

// Options 汇总 Resolver 的依赖，测试中可注入假实现。
type Options struct {
	Metadata     MetadataFetcher
	Content      ContentFetcher
	Store        cache.Store
	Logger       *logrus.Logger
	VerifyPolicy VerifyPolicy
}

// Resolver 负责 “本地制品存在 → 校验摘要 → 命中或回源覆盖” 的全流程。
type Resolver struct {
	metadata MetadataFetcher
	content  ContentFetcher
	store    cache.Store
	logger   *logrus.Logger
	policy   VerifyPolicy
}

// Artifact 是一次解析的结果。File 的读写位置未定义，读取前需自行 Seek。
type Artifact struct {
	Identity registry.PackageIdentity
	Path     string
	File     *os.File
	CacheHit bool
}

// New 校验依赖并构造 Resolver。VerifyPolicy 必须显式指定。
func New(opts Options) (*Resolver, error) {
	if opts.Metadata == nil {
		return nil, errors.New("metadata fetcher is required")
	}
	if opts.Content == nil {
		return nil, errors.New("content fetcher is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	switch opts.VerifyPolicy {
	case VerifyPolicyRedownload, VerifyPolicyFail:
	default:
		return nil, fmt.Errorf("unsupported verify policy: %q", opts.VerifyPolicy)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Resolver{
		metadata: opts.Metadata,
		content:  opts.Content,
		store:    opts.Store,
		logger:   logger,
		policy:   opts.VerifyPolicy,
	}, nil
}

// DownloadPackage 返回 targetDir 下可用且已校验的制品句柄，尽量避免网络下载。
func (r *Resolver) DownloadPackage(ctx context.Context, name, version, targetDir string) (*os.File, error) {
	artifact, err := r.Resolve(ctx, registry.PackageIdentity{Name: name, Version: version}, targetDir)
	if err != nil {
		return nil, err
	}
	return artifact.File, nil
}

// Resolve 执行完整的缓存判定流程：
//  1. 本地文件不存在 → 直接下载覆盖；
//  2. 存在 → 拉取注册中心摘要并重算本地摘要；
//  3. 匹配 → 打开已有文件，不发起内容下载；
//  4. 不匹配（或按 VerifyPolicyRedownload 忽略的校验错误）→ 下载覆盖。
//
// 整个流程持有该制品的锁，同一路径的并发解析会串行执行。
func (r *Resolver) Resolve(ctx context.Context, id registry.PackageIdentity, targetDir string) (*Artifact, error) {
	started := time.Now()
	locator := locatorFor(id, targetDir)
	path, err := r.store.Path(locator)
	if err != nil {
		return nil, err
	}

	unlock, err := r.store.Lock(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer unlock()

	fields := logging.PackageFields(id.Name, id.Version, path)

	_, statErr := r.store.Stat(ctx, locator)
	switch {
	case statErr == nil:
		matched, err := r.Verify(ctx, id, path)
		switch {
		case err != nil && r.policy == VerifyPolicyFail:
			r.logger.WithError(err).WithFields(fields).Error("verify_failed")
			return nil, fmt.Errorf("verify %s: %w", id, err)
		case err != nil:
			r.logger.WithError(err).WithFields(fields).Warn("verify_failed")
		case matched:
			f, err := r.store.Open(ctx, locator)
			if err == nil {
				r.logger.WithFields(fields).WithFields(logrus.Fields{
					"cache_hit":   true,
					"duration_ms": time.Since(started).Milliseconds(),
				}).Info("cache_hit")
				return &Artifact{Identity: id, Path: path, File: f, CacheHit: true}, nil
			}
			if !errors.Is(err, cache.ErrNotFound) {
				return nil, fmt.Errorf("open %s: %w", path, err)
			}
		default:
			r.logger.WithFields(fields).Info("digest_mismatch")
		}
	case errors.Is(statErr, cache.ErrNotFound):
		r.logger.WithFields(fields).Debug("cache_miss")
	default:
		return nil, fmt.Errorf("stat %s: %w", path, statErr)
	}

	return r.download(ctx, id, locator, path, started)
}

// Verify 判断 path 处的文件摘要是否与注册中心上报的摘要一致。未知算法恒为 false。
func (r *Resolver) Verify(ctx context.Context, id registry.PackageIdentity, path string) (bool, error) {
	digest, err := r.metadata.PackageHash(ctx, id.Name, id.Version)
	if err != nil {
		return false, fmt.Errorf("fetch package hash: %w", err)
	}

	if !digest.Algorithm.Known() {
		r.logger.WithFields(logging.PackageFields(id.Name, id.Version, path)).
			WithField("algorithm", digest.Algorithm.Name).
			Warn("unsupported_hash_algorithm")
		return false, nil
	}

	reference, err := digest.Decode()
	if err != nil {
		return false, err
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	matched, err := DigestMatches(reference, digest.Algorithm, f)
	if err != nil {
		return false, fmt.Errorf("hash %s: %w", path, err)
	}
	return matched, nil
}

// DownloadOverwrite 无条件下载并整体替换本地制品。
func (r *Resolver) DownloadOverwrite(ctx context.Context, id registry.PackageIdentity, targetDir string) (*os.File, error) {
	started := time.Now()
	locator := locatorFor(id, targetDir)
	path, err := r.store.Path(locator)
	if err != nil {
		return nil, err
	}

	unlock, err := r.store.Lock(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer unlock()

	artifact, err := r.download(ctx, id, locator, path, started)
	if err != nil {
		return nil, err
	}
	return artifact.File, nil
}

// download 需在持有制品锁时调用。
func (r *Resolver) download(
	ctx context.Context,
	id registry.PackageIdentity,
	locator cache.Locator,
	path string,
	started time.Time,
) (*Artifact, error) {
	fields := logging.PackageFields(id.Name, id.Version, path)

	data, err := r.content.DownloadBytes(ctx, id.Name, id.Version)
	if err != nil {
		r.logger.WithError(err).WithFields(fields).Error("download_failed")
		return nil, fmt.Errorf("download %s: %w", id, err)
	}

	f, err := r.store.Put(ctx, locator, bytes.NewReader(data))
	if err != nil {
		r.logger.WithError(err).WithFields(fields).Error("cache_write_failed")
		return nil, fmt.Errorf("write %s: %w", path, err)
	}

	r.logger.WithFields(fields).WithFields(logrus.Fields{
		"cache_hit":   false,
		"size_bytes":  len(data),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("download")

	return &Artifact{Identity: id, Path: path, File: f, CacheHit: false}, nil
}

func locatorFor(id registry.PackageIdentity, targetDir string) cache.Locator {
	return cache.Locator{Dir: targetDir, Name: id.Name, Version: id.Version}
}
