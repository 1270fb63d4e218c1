// Package reference decides which git reference an audit compares against or
// inspects, validates it, and brackets full-mode checkouts with a restore.
package reference
