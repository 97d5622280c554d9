// Package rtpriority provides best-effort acquisition of the OS
// facilities a real-time control loop wants: elevated fixed-priority
// scheduling, single-CPU affinity, and locked resident memory. None of
// these are guaranteed: the control core remains correct at default
// priority, it simply cannot then guarantee its jitter target. Callers
// should acquire these before starting the loop and are not required to
// check the returned status for correctness, only for diagnostics.
package rtpriority

// Status reports which real-time facilities were successfully acquired.
type Status struct {
	PriorityAcquired bool
	AffinityAcquired bool
	MemoryLocked     bool
}

// Acquired reports whether any real-time facility was obtained. A
// false value does not indicate failure of the control core itself,
// only that its jitter target cannot be guaranteed on this host.
func (s Status) Acquired() bool {
	return s.PriorityAcquired || s.AffinityAcquired || s.MemoryLocked
}

// Acquire attempts, best-effort, to raise the calling thread to a
// fixed-priority real-time scheduling policy, pin it to cpu, and lock
// resident memory against paging. Each facility is attempted
// independently; failure of one does not abort the others. The actual
// mechanism is platform-specific (see rtpriority_linux.go); unsupported
// platforms return a zero Status.
func Acquire(cpu int, priority int) Status {
	return acquire(cpu, priority)
}
