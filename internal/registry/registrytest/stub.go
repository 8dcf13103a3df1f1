// Package registrytest provides an in-process NuGet v2 registry stub that
// serves the metadata and content endpoints and counts every request, so
// resolver, server and CLI tests can assert how many round trips were made.
package registrytest

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
)

// Package 描述桩服务中的一个包；Hash 为空时按 Content 实时计算 SHA512。
type Package struct {
	Content   []byte
	Hash      string
	Algorithm string
	// OmitHash 为 true 时元数据文档不包含 PackageHash 字段。
	OmitHash bool
	// MetadataStatus/ContentStatus 非 0 时直接返回该状态码。
	MetadataStatus int
	ContentStatus  int
	// RawMetadata 非空时原样返回，忽略其余字段。
	RawMetadata string
}

// RecordedRequest 捕获每次请求的方法与路径，便于断言客户端行为。
type RecordedRequest struct {
	Method    string
	Path      string
	UserAgent string
}

// Server 是注册中心桩，URL 可直接作为 RegistryURL 使用。
type Server struct {
	URL string

	srv *httptest.Server

	mu           sync.Mutex
	packages     map[string]*Package
	contentHits  map[string]int
	metadataHits map[string]int
	requests     []RecordedRequest
}

var metadataPattern = regexp.MustCompile(`^/api/v2/Packages\(Id='((?:[^']|'')*)',Version='((?:[^']|'')*)'\)$`)

// NewServer 启动桩服务，并在测试结束时自动关闭。
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		packages:     make(map[string]*Package),
		contentHits:  make(map[string]int),
		metadataHits: make(map[string]int),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

// Close 提前关闭桩服务，用于模拟传输失败。
func (s *Server) Close() {
	s.srv.Close()
}

// AddPackage 注册一个 SHA512 包。
func (s *Server) AddPackage(name, version string, content []byte) {
	s.Put(name, version, Package{Content: content, Algorithm: "SHA512"})
}

// Put 注册或替换一个包，后续修改请使用 Update。
func (s *Server) Put(name, version string, pkg Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := pkg
	s.packages[key(name, version)] = &p
}

// Update 在锁保护下修改已注册的包。
func (s *Server) Update(name, version string, fn func(*Package)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.packages[key(name, version)]; ok {
		fn(p)
	}
}

// ContentHits 返回 name/version 内容端点的请求次数。
func (s *Server) ContentHits(name, version string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentHits[key(name, version)]
}

// MetadataHits 返回 name/version 元数据端点的请求次数。
func (s *Server) MetadataHits(name, version string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadataHits[key(name, version)]
}

// Requests 返回请求记录的副本。
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// Digest 计算 content 的 base64(SHA512)，与 nuget.org 的 PackageHash 格式一致。
func Digest(content []byte) string {
	sum := sha512.Sum512(content)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// MetadataDocument 生成与 nuget.org 相同结构的 OData Atom entry。
func MetadataDocument(name, version, hash, algorithm string) string {
	var props strings.Builder
	fmt.Fprintf(&props, "    <d:Id>%s</d:Id>\n    <d:Version>%s</d:Version>\n", name, version)
	if hash != "" {
		fmt.Fprintf(&props, "    <d:PackageHash>%s</d:PackageHash>\n", hash)
	}
	if algorithm != "" {
		fmt.Fprintf(&props, "    <d:PackageHashAlgorithm>%s</d:PackageHashAlgorithm>\n", algorithm)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<entry xml:base="https://www.nuget.org/api/v2" xmlns="http://www.w3.org/2005/Atom" xmlns:d="http://schemas.microsoft.com/ado/2007/08/dataservices" xmlns:m="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata">
  <id>https://www.nuget.org/api/v2/Packages(Id='%s',Version='%s')</id>
  <title type="text">%s</title>
  <content type="application/zip" src="https://www.nuget.org/api/v2/package/%s/%s" />
  <m:properties>
%s    <d:PackageSize m:type="Edm.Int64">0</d:PackageSize>
  </m:properties>
</entry>
`, name, version, name, name, version, props.String())
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		UserAgent: r.UserAgent(),
	})
	s.mu.Unlock()

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if rest, ok := strings.CutPrefix(r.URL.Path, "/api/v2/package/"); ok {
		name, version, found := strings.Cut(rest, "/")
		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.serveContent(w, name, version)
		return
	}

	if m := metadataPattern.FindStringSubmatch(r.URL.Path); m != nil {
		name := strings.ReplaceAll(m[1], "''", "'")
		version := strings.ReplaceAll(m[2], "''", "'")
		s.serveMetadata(w, name, version)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) serveContent(w http.ResponseWriter, name, version string) {
	s.mu.Lock()
	s.contentHits[key(name, version)]++
	pkg, ok := s.lookup(name, version)
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if pkg.ContentStatus != 0 {
		w.WriteHeader(pkg.ContentStatus)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pkg.Content)
}

func (s *Server) serveMetadata(w http.ResponseWriter, name, version string) {
	s.mu.Lock()
	s.metadataHits[key(name, version)]++
	pkg, ok := s.lookup(name, version)
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if pkg.MetadataStatus != 0 {
		w.WriteHeader(pkg.MetadataStatus)
		return
	}

	w.Header().Set("Content-Type", "application/atom+xml;type=entry;charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if pkg.RawMetadata != "" {
		_, _ = w.Write([]byte(pkg.RawMetadata))
		return
	}

	hash := pkg.Hash
	if hash == "" {
		hash = Digest(pkg.Content)
	}
	if pkg.OmitHash {
		hash = ""
	}
	_, _ = w.Write([]byte(MetadataDocument(name, version, hash, pkg.Algorithm)))
}

// lookup 需在持有 s.mu 时调用，返回包的快照。
func (s *Server) lookup(name, version string) (Package, bool) {
	pkg, ok := s.packages[key(name, version)]
	if !ok {
		return Package{}, false
	}
	snapshot := *pkg
	snapshot.Content = append([]byte(nil), pkg.Content...)
	return snapshot, true
}

func key(name, version string) string {
	return name + "::" + version
}
