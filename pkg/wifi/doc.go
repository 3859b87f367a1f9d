// Package wifi supervises the device's AP/STA radio state machine: an
// always-available soft-AP fallback, an opportunistic STA association to
// the user's network when credentials are present, and the keep-alive loop
// that moves between them. All mutation is serialized under one mutex
// guarding mode, credentials, and the two failure timestamps; transitions
// always pass through the Transitioning state so no observer reads a
// momentarily inconsistent mode.
package wifi
