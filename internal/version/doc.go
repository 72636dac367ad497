// Package version compares (name, semantic version) pairs for class
// identity, compatibility and ordering.
//
// Two refs are comparable only when their names match. A missing version is
// compatible with everything and never newer than anything. Otherwise two
// versions are compatible when either one satisfies the caret range of the
// other (same major for 1.x and up, same major.minor for 0.x, same patch for
// 0.0.x). Ordering is plain MAJOR.MINOR.PATCH numeric order.
//
// This package imports nothing internal.
package version
