package device

import (
	"runtime"
)

// FreeHeap reports heap bytes obtained from the OS but not currently in use.
// The closest analog to the firmware's free-heap counter.
func FreeHeap() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.HeapSys < m.HeapInuse {
		return 0
	}
	return m.HeapSys - m.HeapInuse
}
