// Package registry talks to a NuGet v2 (OData) package registry. It exposes the
// two leaf fetchers used by the resolver: one reads the PackageHash and
// PackageHashAlgorithm fields from the package metadata document, the other
// downloads the raw .nupkg archive. Neither fetcher caches, retries or
// authenticates; callers inject the base URL and the shared http.Client so
// tests can point the client at a local stub.
package registry
