package manifest

import (
	"context"
	"fmt"
	"os"

	"github.com/any-hub/nuget-dl/internal/config"
)

// Package 是一条依赖声明。
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (p Package) String() string {
	return p.Name + "@" + p.Version
}

// List 按声明顺序保存依赖。
type List []Package

// Downloader 由 resolver.Resolver 实现，测试中可替换。
type Downloader interface {
	DownloadPackage(ctx context.Context, name, version, targetDir string) (*os.File, error)
}

// ProgressFunc 在每个包完成后回调，done 从 1 开始计数。
type ProgressFunc func(pkg Package, done, total int)

// FromDependencies 把配置中的依赖表转成按包名排序的 List。
func FromDependencies(cfg *config.Config) List {
	if cfg == nil {
		return nil
	}
	names := cfg.DependencyNames()
	list := make(List, 0, len(names))
	for _, name := range names {
		list = append(list, Package{Name: name, Version: cfg.Dependencies[name]})
	}
	return list
}

// Download 依次解析每个包。任一失败即停止，并关闭此前已打开的文件。
func (l List) Download(ctx context.Context, d Downloader, dir string) ([]*os.File, error) {
	return l.download(ctx, d, dir, nil)
}

func (l List) download(ctx context.Context, d Downloader, dir string, progress ProgressFunc) ([]*os.File, error) {
	files := make([]*os.File, 0, len(l))
	for i, pkg := range l {
		if err := ctx.Err(); err != nil {
			closeAll(files)
			return nil, err
		}
		f, err := d.DownloadPackage(ctx, pkg.Name, pkg.Version, dir)
		if err != nil {
			closeAll(files)
			return nil, fmt.Errorf("package %s: %w", pkg, err)
		}
		files = append(files, f)
		if progress != nil {
			progress(pkg, i+1, len(l))
		}
	}
	return files, nil
}

// Process 下载配置中声明的全部依赖到 PackagesDir。progress 可为 nil。
func Process(ctx context.Context, d Downloader, cfg *config.Config, progress ProgressFunc) ([]*os.File, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return FromDependencies(cfg).download(ctx, d, cfg.Global.PackagesDir, progress)
}

// ProcessFile 加载配置文件后执行 Process。
func ProcessFile(ctx context.Context, d Downloader, path string) ([]*os.File, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return Process(ctx, d, cfg, nil)
}

func closeAll(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
