// Package sanitizer normalizes user and upstream supplied text before it is
// validated, stored or used as a cache key.
//
// All functions are idempotent and never fail: invalid input yields an empty
// string or slice.
//
// Normalization includes:
//   - Strings: collapse whitespace runs, trim leading/trailing spaces
//   - Message bodies: drop control characters, keep line breaks, trim edges
//   - Lookup keys: collapse whitespace and lowercase
//   - URLs: enforce HTTPS, lowercase the host, keep path and query
//   - ID sets: drop empties and duplicates, sort
package sanitizer
