/*
Package storage provides the namespaced key/value persistence backend the
dosing engine, schedule manager, dosing log, and Wi-Fi supervisor are all
built on.

BoltStore backs it with an embedded BoltDB (bbolt) file, one bucket per
namespace (wifi_config, schedules, dosinglogs, dosingHead0..dosingHead3).
Values are opaque blobs — callers own their own encoding (the core
packages use JSON) — so this package has no dependency on any particular
record shape beyond the fixed namespace names it provisions at open time.
*/
package storage
