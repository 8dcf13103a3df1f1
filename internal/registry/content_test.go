package registry

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/any-hub/nuget-dl/internal/registry/registrytest"
)

func TestDownloadBytesReturnsFullBody(t *testing.T) {
	stub := registrytest.NewServer(t)
	content := bytes.Repeat([]byte("0123456789"), 10_000)
	stub.AddPackage(testName, testVersion, content)

	client := newTestClient(t, stub.URL)
	body, err := client.DownloadBytes(context.Background(), testName, testVersion)
	if err != nil {
		t.Fatalf("DownloadBytes error: %v", err)
	}
	if !bytes.Equal(body, content) {
		t.Fatalf("downloaded body mismatch: got %d bytes", len(body))
	}
	if stub.ContentHits(testName, testVersion) != 1 {
		t.Fatalf("expected one content request")
	}
}

func TestDownloadBytesStatusError(t *testing.T) {
	stub := registrytest.NewServer(t)
	stub.Put(testName, testVersion, registrytest.Package{ContentStatus: http.StatusInternalServerError})

	client := newTestClient(t, stub.URL)
	_, err := client.DownloadBytes(context.Background(), testName, testVersion)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 StatusError, got %v", err)
	}
}

func TestDownloadBytesTransportError(t *testing.T) {
	stub := registrytest.NewServer(t)
	client := newTestClient(t, stub.URL)
	stub.Close()

	_, err := client.DownloadBytes(context.Background(), testName, testVersion)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	if _, err := NewClient("ftp://registry.example", nil); err == nil {
		t.Fatalf("non-http scheme should be rejected")
	}
	if _, err := NewClient("http://", nil); err == nil {
		t.Fatalf("missing host should be rejected")
	}
	client, err := NewClient("", nil)
	if err != nil {
		t.Fatalf("empty url should fall back to default: %v", err)
	}
	if client.BaseURL() != DefaultBaseURL {
		t.Fatalf("unexpected default base url %s", client.BaseURL())
	}
}
