package registry

import (
	"errors"
	"fmt"
)

// ErrMissingField 匹配所有 MissingFieldError，便于调用方 errors.Is 判断。
var ErrMissingField = errors.New("metadata field missing")

// TransportError 表示与注册中心之间的网络/HTTP 层失败。
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError 表示注册中心返回了非 2xx 状态码。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request %s: unexpected status %d", e.URL, e.StatusCode)
}

// ParseError 表示元数据响应不是合法文本或合法 XML。
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse metadata %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingFieldError 表示元数据文档格式正确但缺少 PackageHash/PackageHashAlgorithm。
type MissingFieldError struct {
	URL   string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("metadata %s: field %s not found", e.URL, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
