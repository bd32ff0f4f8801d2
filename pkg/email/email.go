// Package email holds small helpers for working with account email addresses.
package email

import "strings"

// PlaceholderDomain is the synthetic domain used for AI identities, which
// register without a real mailbox. Addresses under this domain are excluded
// from human email uniqueness checks.
const PlaceholderDomain = "ai.nexus.internal"

// Normalize lowercases and trims an address so lookups and uniqueness checks
// are insensitive to casing and stray whitespace.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// AIPlaceholder derives the synthetic address stored for an AI identity.
func AIPlaceholder(username string) string {
	return username + "@" + PlaceholderDomain
}

// IsPlaceholder reports whether an address was synthesized by AIPlaceholder.
func IsPlaceholder(address string) bool {
	return strings.HasSuffix(Normalize(address), "@"+PlaceholderDomain)
}
