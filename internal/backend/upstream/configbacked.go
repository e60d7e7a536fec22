package upstream

import (
	"github.com/metamx/mesos-scheduler-backend/internal/backend/configuration"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/state"
)

// ConfigBackedAdapter is a minimal Adapter implementation for standalone
// deployments where the hosting application's own scheduler plumbing
// (task queue, RPC layer) lives outside this process and is reached only
// through DriverURL/AppId. RemoveExecutor/MarkRegistered/Error are no-ops
// (neither forwarded nor logged), since there is no in-process application
// object to notify — a real embedding (the way Spark embeds its
// MesosCoarseGrainedSchedulerBackend inside the driver process) would
// supply its own Adapter instead of this one.
type ConfigBackedAdapter struct {
	config           configuration.Configuration
	memoryOverheadMB float64
	env              map[string]string
	driverURL        string
	appId            string
}

// NewConfigBackedAdapter builds an Adapter purely from process
// configuration, for deployments with no richer hosting application to
// delegate to.
func NewConfigBackedAdapter(config configuration.Configuration, memoryOverheadMB float64, env map[string]string, driverURL, appId string) *ConfigBackedAdapter {
	return &ConfigBackedAdapter{
		config:           config,
		memoryOverheadMB: memoryOverheadMB,
		env:              env,
		driverURL:        driverURL,
		appId:            appId,
	}
}

func (a *ConfigBackedAdapter) CalculateMemoryOverhead() float64 {
	return a.memoryOverheadMB
}

func (a *ConfigBackedAdapter) RemoveExecutor(id state.ExecutorId, reason string) {}

func (a *ConfigBackedAdapter) MarkRegistered() {}

func (a *ConfigBackedAdapter) Error(message string) {}

func (a *ConfigBackedAdapter) ExecutorEnv() map[string]string {
	return a.env
}

func (a *ConfigBackedAdapter) DriverURL() string {
	return a.driverURL
}

func (a *ConfigBackedAdapter) AppId() string {
	return a.appId
}

func (a *ConfigBackedAdapter) MinRegisteredResourcesRatio() float64 {
	return a.config.MinRegisteredResourcesRatio
}
