package configuration

import "github.com/pkg/errors"

// Validate fails startup fast on configuration errors with a descriptive
// message.
func Validate(config Configuration) error {
	if config.ShutdownTimeout < 0 {
		return errors.New("mesos.coarse.shutdown.ms must be >= 0")
	}
	if config.ExecutorUri == "" && config.ExecutorHome == "" {
		return errors.New("executor.home must be set when executor.uri is not set")
	}
	if config.MaxMBPerCore > 0 && config.MinMBPerCore > config.MaxMBPerCore {
		return errors.Errorf(
			"cores.mb.min (%v) must not exceed cores.mb.max (%v)",
			config.MinMBPerCore, config.MaxMBPerCore,
		)
	}
	if config.MinRegisteredResourcesRatio < 0 || config.MinRegisteredResourcesRatio > 1 {
		return errors.New("minRegisteredResourcesRatio must be in [0, 1]")
	}
	if config.ShuffleServiceEnabled && config.ShuffleServicePort <= 0 {
		return errors.New("shuffle.service.port must be set when shuffle.service.enabled is true")
	}
	if !config.Testing && (config.DriverHost == "" || config.DriverPort <= 0) {
		return errors.New("driver.host and driver.port must be set unless testing is true")
	}
	return nil
}
