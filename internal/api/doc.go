// Package api implements the device's northbound surface: the HTTP/JSON
// control API and the /ws event stream described in spec.md §4.6 and §6.
// Handlers validate input, call into the core components, and for the
// two operations that can block on hardware or network I/O (ad-hoc
// dosing, Wi-Fi transitions) respond immediately and finish the work on
// a detached goroutine rather than holding the request open.
package api
