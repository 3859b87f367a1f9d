/*
Package metrics defines and registers the Prometheus metrics exposed at
/metrics: dosing head state and volume counters, scheduler tick latency,
dosing log retention, Wi-Fi mode and connectivity, and API request
latency. Handler serves the standard Prometheus text exposition format;
Timer is a small helper for recording operation durations.
*/
package metrics
