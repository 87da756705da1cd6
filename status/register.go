// Package status holds the process-wide last-known robot status.
//
// The register is a single cell written by the ingest path's status handler
// and by the transport's health callback, and read by any number of
// concurrent status queries. Reads always observe a complete value.
package status

import "sync/atomic"

// Offline is the status reported before the robot has ever published one
const Offline = "offline"

// Snapshot is one consistent read of the register
type Snapshot struct {
	Status    string
	Connected bool
}

// Register is the process-wide robot status cell
type Register struct {
	state atomic.Value // stores Snapshot
}

// NewRegister creates a register reporting offline and disconnected
func NewRegister() *Register {
	r := &Register{}
	r.state.Store(Snapshot{Status: Offline})
	return r
}

// SetStatus overwrites the robot status, keeping the connected flag
func (r *Register) SetStatus(status string) {
	for {
		cur := r.state.Load().(Snapshot)
		if r.state.CompareAndSwap(cur, Snapshot{Status: status, Connected: cur.Connected}) {
			return
		}
	}
}

// SetConnected records the transport's connected flag, keeping the status
func (r *Register) SetConnected(connected bool) {
	for {
		cur := r.state.Load().(Snapshot)
		if r.state.CompareAndSwap(cur, Snapshot{Status: cur.Status, Connected: connected}) {
			return
		}
	}
}

// Get returns the current status and connected flag
func (r *Register) Get() (string, bool) {
	s := r.state.Load().(Snapshot)
	return s.Status, s.Connected
}
