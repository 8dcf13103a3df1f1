package resolver

import (
	"bytes"
	"crypto/sha512"
	"hash"
	"io"

	"github.com/any-hub/nuget-dl/internal/registry"
)

// newHasher 返回算法对应的 hash.Hash，未知算法返回 nil。
func newHasher(alg registry.HashAlgorithm) hash.Hash {
	switch alg.Kind {
	case registry.HashSHA512:
		return sha512.New()
	default:
		return nil
	}
}

// DigestMatches 用 alg 重算 r 的摘要并与 reference 逐字节比较，长度不同即不匹配。
// 未知算法直接返回 false，且不会读取 r。
func DigestMatches(reference []byte, alg registry.HashAlgorithm, r io.Reader) (bool, error) {
	h := newHasher(alg)
	if h == nil {
		return false, nil
	}
	if _, err := io.Copy(h, r); err != nil {
		return false, err
	}
	return bytes.Equal(reference, h.Sum(nil)), nil
}
