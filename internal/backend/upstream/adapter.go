// Package upstream defines the capability set the backend requires from
// the hosting application, kept as a narrow interface so the backend
// package never depends on the application's internals.
package upstream

import "github.com/metamx/mesos-scheduler-backend/internal/backend/state"

// Adapter bridges the backend to the hosting application.
type Adapter interface {
	// CalculateMemoryOverhead returns the per-executor JVM memory
	// overhead, in MB, added on top of heap size.
	CalculateMemoryOverhead() float64

	// RemoveExecutor is invoked exactly once per launched TaskId over its
	// lifetime, when that task's executor terminates for any reason.
	RemoveExecutor(id state.ExecutorId, reason string)

	// MarkRegistered signals that the backend has successfully registered
	// as a framework with the resource manager.
	MarkRegistered()

	// Error propagates a fatal driver error to the upstream task
	// scheduler.
	Error(message string)

	// ExecutorEnv returns the application's executor-environment map,
	// copied verbatim into every launch command.
	ExecutorEnv() map[string]string

	// DriverURL and AppId are read once per launch by the command
	// builder. ExecutorHome/ExecutorUri come from Configuration instead,
	// since they are frozen at start rather than owned by the
	// application.
	DriverURL() string
	AppId() string

	// MinRegisteredResourcesRatio gates
	// Backend.SufficientResourcesRegistered.
	MinRegisteredResourcesRatio() float64
}
