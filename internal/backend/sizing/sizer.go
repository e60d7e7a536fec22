// Package sizing is a pure function deciding how much of an offer's cpu
// and memory to use, and how to split that memory between JVM heap and
// overhead.
package sizing

import "math"

// Result is the usable (cpus, total-mem, heap-mem) triple returned by
// Size, all in MB except CpusToUse which is a cpu-share count.
type Result struct {
	CpusToUse       float64
	TotalMemToUseMB float64
	HeapMemMB       float64
}

// Policy carries the sizing knobs read from Configuration.
type Policy struct {
	MinMBPerCore   float64
	MaxMBPerCore   float64
	MemoryOverhead float64
}

// Size decides how much cpu and memory of an offer to use. ok is false
// when the offer cannot satisfy even a single core under the configured
// policy.
func Size(availableCpus, availableMemMB float64, policy Policy) (Result, bool) {
	if availableCpus <= 0 {
		return Result{}, false
	}

	usableMem := availableMemMB - policy.MemoryOverhead
	if usableMem < policy.MinMBPerCore {
		return Result{}, false
	}

	ratio := usableMem / availableCpus

	switch {
	case policy.MaxMBPerCore > 0 && ratio > policy.MaxMBPerCore:
		// Memory-rich case: cap heap at maxMBPerCore * availableCpus.
		heap := policy.MaxMBPerCore * availableCpus
		if heap < policy.MinMBPerCore {
			return Result{}, false
		}
		return Result{
			CpusToUse:       availableCpus,
			TotalMemToUseMB: heap + policy.MemoryOverhead,
			HeapMemMB:       heap,
		}, true

	case ratio < policy.MinMBPerCore:
		// Memory-poor case: reduce cpus to fit the minimum ratio.
		desiredCpus := math.Floor(usableMem / policy.MinMBPerCore)
		if desiredCpus <= 0 {
			return Result{}, false
		}
		return Result{
			CpusToUse:       desiredCpus,
			TotalMemToUseMB: usableMem + policy.MemoryOverhead,
			HeapMemMB:       usableMem,
		}, true

	default:
		// Balanced case.
		return Result{
			CpusToUse:       availableCpus,
			TotalMemToUseMB: usableMem + policy.MemoryOverhead,
			HeapMemMB:       usableMem,
		}, true
	}
}

// AdvertisedCpuShare is what gets reported to the resource manager: it may
// exceed CpusToUse by extraCoresPerSlave, a deliberate oversubscription.
func AdvertisedCpuShare(cpusToUse, extraCoresPerSlave float64) float64 {
	return cpusToUse + extraCoresPerSlave
}
