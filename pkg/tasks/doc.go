// Package tasks hosts the device's long-lived background loops: the
// scheduler tick, the Wi-Fi keep-alive, dosing-log retention pruning, and
// the Prometheus metrics refresh. Each follows the same shape — a struct
// holding a stopCh, Start launching one goroutine, Stop closing the
// channel — rather than a shared scheduler, so any one loop's cadence can
// change without touching the others.
package tasks
