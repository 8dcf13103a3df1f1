// Package cache owns the on-disk layout of downloaded packages: every artifact
// lives at <dir>/<name>.<version>.nupkg. The store exposes read/write
// primitives with safe semantics (temp file + rename, so an artifact is only
// ever fully replaced) and a per-artifact lock that combines an in-process
// mutex with an advisory <artifact>.lock file, letting concurrent resolvers
// share one packages directory. Digest validation lives in the resolver; this
// package never decides whether an artifact is still valid.
package cache
