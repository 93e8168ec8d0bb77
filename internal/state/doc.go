// Package state holds the shared view of the client session.
//
// # Ownership
//
// The reconciliation loop is the only writer of credentials, summoner and
// phase. Command handlers write the user toggles. Everyone may read.
//
// # Concurrency
//
// State is safe for concurrent use. A single RWMutex guards every field
// and each method holds it for a field copy only; callers copy values out,
// do their network I/O, and come back to write. Reads of different fields
// are not atomic with respect to each other; use Snapshot when several
// fields must be read together.
//
// # Lifecycle
//
// New builds the state once at startup from the persisted toggles with no
// credentials, no summoner and phase None. Stop clears the running flag;
// the loop observes it after its next wake-up and exits. There is no other
// teardown.
package state
