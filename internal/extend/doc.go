// Package extend widens diff hunks with surrounding file content fetched
// through a provider and cached per (reference, path).
package extend
