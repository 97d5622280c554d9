//go:build linux

package rtpriority

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// schedFIFO is SCHED_FIFO, the fixed-priority real-time policy a
// control loop wants when the platform supports it. x/sys/unix does
// not expose a typed wrapper for sched_setscheduler, so this package
// calls the syscall directly, following the same raw-syscall style as the
// corpus's ioctl helpers.
const schedFIFO = 1

// schedParam mirrors struct sched_param on Linux: a single int
// priority field.
type schedParam struct {
	priority int32
}

// acquire sets the calling OS thread to SCHED_FIFO at priority, pins it
// to cpu via sched_setaffinity, and locks the process's resident memory
// with mlockall. Each step is attempted independently and best-effort:
// all three typically require elevated privileges (CAP_SYS_NICE,
// CAP_IPC_LOCK) that a non-root deployment will not have.
func acquire(cpu int, priority int) Status {
	runtime.LockOSThread()

	var status Status

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err == nil {
		status.AffinityAcquired = true
	}

	param := schedParam{priority: int32(priority)}
	if _, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, 0, uintptr(schedFIFO), uintptr(unsafe.Pointer(&param))); errno == 0 {
		status.PriorityAcquired = true
	}

	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err == nil {
		status.MemoryLocked = true
	}

	return status
}
