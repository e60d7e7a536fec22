// Command backend is the process entrypoint for the coarse-grained
// scheduler backend: it loads configuration, wires a Backend, starts it
// bound to the resource-manager driver, and waits for a shutdown signal.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/metamx/mesos-scheduler-backend/internal/backend"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/configuration"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/driver"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/mesoshttp"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/metrics"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/upstream"
)

const configLocationFlag = "config"

func init() {
	pflag.String(configLocationFlag, "", "Fully qualified path to backend configuration file")
	pflag.Parse()
}

func main() {
	configureLogging()

	config, err := loadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	m := metrics.New()

	adapter := upstream.NewConfigBackedAdapter(
		config,
		defaultMemoryOverheadMB,
		envFromOSEnviron(),
		fmt.Sprintf("driver://%s:%d", config.DriverHost, config.DriverPort),
		config.AppId,
	)

	b, err := backend.New(config, adapter, m)
	if err != nil {
		log.WithError(err).Fatal("failed to construct backend")
	}

	schedulerDriver := newSchedulerDriver(config)
	if err := b.Start(schedulerDriver); err != nil {
		log.WithError(err).Fatal("failed to start backend")
	}

	// The inbound half of the driver contract (subscribing to the
	// master's offer/status event stream and dispatching into b) is the
	// resource-manager driver library's own responsibility; a production
	// deployment wires that loop to call
	// b.Registered/b.ResourceOffers/b.StatusUpdate/... as events arrive.

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
	<-stopSignal

	log.Info("shutdown signal received, draining")
	b.Stop()
	log.Info("shutdown complete")
}

func configureLogging() {
	log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	log.SetOutput(os.Stdout)
}

func loadConfig() (configuration.Configuration, error) {
	config := configuration.Default()

	viper.SetConfigName("backend")
	viper.AddConfigPath("./config")
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return config, err
	}
	if userSpecified := viper.GetString(configLocationFlag); userSpecified != "" {
		viper.SetConfigFile(userSpecified)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return config, err
		}
		log.Warn("no configuration file found, using defaults")
	}
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	if config.AppId == "" {
		config.AppId = uuid.New().String()
	}

	if err := configuration.Validate(config); err != nil {
		return config, err
	}
	return config, nil
}

// defaultMemoryOverheadMB is the per-executor JVM overhead used for
// standalone deployments with no richer application-level overhead
// calculation.
const defaultMemoryOverheadMB = 384

// envFromOSEnviron turns the process environment into the executor
// environment map the command builder copies onto every launch.
func envFromOSEnviron() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, found := strings.Cut(kv, "=")
		if found {
			env[k] = v
		}
	}
	return env
}

// newSchedulerDriver builds the outbound half of the resource-manager
// driver. In Testing mode it uses an in-memory FakeDriver so the backend
// can run without a real Mesos master.
func newSchedulerDriver(config configuration.Configuration) driver.SchedulerDriver {
	if config.Testing {
		return driver.NewFakeDriver()
	}
	return mesoshttp.New(config.DriverHost, config.DriverPort, config.AppId)
}
