// Package auth defines the machine-readable authorization status reported by
// "cups-oauth status -o json|yaml".
//
// A StatusResponse summarizes the tokens held for one authorization server
// and resource, and lists the credential cache entries by kind.
package auth
