// Package mock provides test doubles shared by the package tests.
//
// Clock is a controllable time source that plugs into credstore.WithClock
// and oauth.WithClock, so token expiry and metadata freshness can be tested
// without waiting. Its Sleep method advances the clock instead of blocking,
// which makes device-grant polling deterministic.
//
// Signer holds an ECDSA P-256 key and issues compact ES256 ID tokens,
// publishing the matching public key as a JWKS document.
package mock
