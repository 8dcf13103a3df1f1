// Package server hosts the Fiber mirror: a request-ID and recover middleware
// chain plus the NuGet v2 content route, which resolves every download through
// the cache resolver so repeated pulls are answered from PackagesDir after a
// digest check. Diagnostics routes under /-/ live in the routes subpackage.
package server
