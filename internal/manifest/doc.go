// Package manifest holds the bulk entry points: a list of name/version pairs
// downloaded in order through the cache resolver, and the config-driven
// variant that reads the [Dependencies] table.
package manifest
