// Package resolver implements the cache-validation-and-fetch algorithm: given
// a package name, version and target directory it either reuses the artifact
// already on disk (when its recomputed digest equals the digest the registry
// reports) or downloads a fresh copy and replaces the artifact in full.
package resolver
