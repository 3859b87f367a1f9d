/*
Package health provides a minimal connectivity-checker abstraction.

The Wi-Fi supervisor uses TCPChecker to probe the STA gateway on port 80
while the link is associated. A failed probe is only logged; whether the
link counts as connected is still decided by the radio driver's reported
association state.
*/
package health
