package registry

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	fieldPackageHash          = "PackageHash"
	fieldPackageHashAlgorithm = "PackageHashAlgorithm"
)

// PackageHash 读取注册中心对 name/version 上报的摘要与算法。
func (c *Client) PackageHash(ctx context.Context, name, version string) (PackageDigest, error) {
	target := c.metadataURL(name, version)
	body, err := c.get(ctx, target)
	if err != nil {
		return PackageDigest{}, err
	}
	return parsePackageHash(target, body)
}

// parsePackageHash 按元素名扫描整个文档，不关心字段所在的层级或文档 schema。
// 同名元素出现多次时以最后一个非空值为准，m:null 的空元素视同缺失。
func parsePackageHash(source string, body []byte) (PackageDigest, error) {
	if !utf8.Valid(body) {
		return PackageDigest{}, &ParseError{URL: source, Err: errors.New("response is not valid UTF-8 text")}
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		hash, algorithm string
		sawElement      bool
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return PackageDigest{}, &ParseError{URL: source, Err: err}
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawElement = true

		switch se.Name.Local {
		case fieldPackageHash, fieldPackageHashAlgorithm:
			var text string
			if err := dec.DecodeElement(&text, &se); err != nil {
				return PackageDigest{}, &ParseError{URL: source, Err: err}
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			if se.Name.Local == fieldPackageHash {
				hash = text
			} else {
				algorithm = text
			}
		}
	}

	if !sawElement {
		return PackageDigest{}, &ParseError{URL: source, Err: errors.New("no XML element found")}
	}
	if hash == "" {
		return PackageDigest{}, &MissingFieldError{URL: source, Field: fieldPackageHash}
	}
	if algorithm == "" {
		return PackageDigest{}, &MissingFieldError{URL: source, Field: fieldPackageHashAlgorithm}
	}

	return PackageDigest{
		Value:     hash,
		Algorithm: ParseHashAlgorithm(algorithm),
	}, nil
}
