package registry

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// PackageIdentity 是 (name, version) 二元组，同时作为缓存键与注册中心查询键。
// 不做任何大小写或格式归一化，调用方传入什么就按字节比较什么。
type PackageIdentity struct {
	Name    string
	Version string
}

func (p PackageIdentity) String() string {
	return p.Name + "@" + p.Version
}

// HashKind 枚举已知的摘要算法，HashUnknown 兜底承载无法识别的算法名。
type HashKind int

const (
	HashUnknown HashKind = iota
	HashSHA512
)

// HashAlgorithm 描述注册中心上报的算法。Kind 为 HashUnknown 时 Name 保留原始字符串。
type HashAlgorithm struct {
	Kind HashKind
	Name string
}

// SHA512 是目前唯一可在本地重算的算法。
var SHA512 = HashAlgorithm{Kind: HashSHA512, Name: "SHA512"}

// ParseHashAlgorithm 大小写不敏感地匹配 sha512，其余一律视为未知算法并原样保留。
func ParseHashAlgorithm(raw string) HashAlgorithm {
	if strings.EqualFold(raw, "sha512") {
		return SHA512
	}
	return HashAlgorithm{Kind: HashUnknown, Name: raw}
}

// Known 表示该算法能否在本地重算。
func (a HashAlgorithm) Known() bool {
	return a.Kind != HashUnknown
}

func (a HashAlgorithm) String() string {
	if a.Kind == HashUnknown {
		return fmt.Sprintf("unknown(%s)", a.Name)
	}
	return a.Name
}

// PackageDigest 是注册中心上报的摘要：base64 编码的值 + 算法标签。
type PackageDigest struct {
	Value     string
	Algorithm HashAlgorithm
}

// Decode 将 base64 摘要解码为原始字节。
func (d PackageDigest) Decode() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(d.Value)
	if err != nil {
		return nil, fmt.Errorf("decode package hash: %w", err)
	}
	return raw, nil
}
