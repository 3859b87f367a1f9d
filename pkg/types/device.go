package types

import "fmt"

// DeviceIdentity is a stable 48-bit identifier, analogous to a MAC address
// or chip ID, derived once at first boot and persisted so values derived
// from it (the AP SSID) stay stable across reboots.
type DeviceIdentity struct {
	ID uint64 // low 48 bits significant
}

// HexUpper renders the full identity as 12 uppercase hex digits.
func (d DeviceIdentity) HexUpper() string {
	return fmt.Sprintf("%012X", d.ID&0xFFFFFFFFFFFF)
}

// SSIDSuffix returns the upper 16 bits of the identity as 4 uppercase hex
// digits — the part of the identity used to build the AP SSID.
func (d DeviceIdentity) SSIDSuffix() string {
	upper := (d.ID & 0xFFFFFFFFFFFF) >> 32
	return fmt.Sprintf("%04X", upper)
}

// APSSID derives the stable access-point SSID from the identity.
func (d DeviceIdentity) APSSID() string {
	return APSSIDPrefix + d.SSIDSuffix()
}
