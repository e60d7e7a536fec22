// Package command assembles the executor launch command, environment, and
// URIs from configuration and an accepted offer's sizing result.
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/configuration"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/driver"
)

// Spec carries the per-launch inputs the command builder needs beyond the
// frozen Configuration: the node this task is being launched on, the sizer
// result, and the identifiers that go into the launch flags.
type Spec struct {
	NodeId          driver.NodeId
	Hostname        string
	TaskId          int64
	HeapMemMB       float64
	DriverURL       string
	AppId           string
	AdvertisedCores float64

	// ExecutorEnv is the application's executor-environment map, copied
	// verbatim into the launch command's environment.
	ExecutorEnv map[string]string
}

// Build assembles a CommandInfo and, when a container image is configured,
// a ContainerInfo.
func Build(config configuration.Configuration, spec Spec) (*driver.CommandInfo, *driver.ContainerInfo) {
	env := map[string]string{}
	for k, v := range spec.ExecutorEnv {
		env[k] = v
	}
	if config.ExecutorOpts != "" {
		env["EXECUTOR_OPTS"] = config.ExecutorOpts
	}
	env["EXECUTOR_MEMORY"] = fmt.Sprintf("%dM", int64(spec.HeapMemMB))
	if config.ExtraClassPath != "" {
		env["CLASSPATH"] = config.ExtraClassPath
	}
	if config.ExtraLibraryPath != "" {
		env["LD_LIBRARY_PATH"] = config.ExtraLibraryPath
	}

	var uris []driver.URI
	var launcherPath string
	var executorId string

	if config.ExecutorUri == "" {
		// No URI: invoke the launcher directly out of the configured home.
		launcherPath = config.ExecutorHome + "/bin/executor"
		executorId = string(spec.NodeId)
	} else {
		// URI set: fetch it, then invoke the launcher relative to the
		// unpacked directory, whose basename is the first segment of the
		// URI's filename before the first '.', globbed.
		uris = append(uris, driver.URI{Value: config.ExecutorUri, Executable: false, Extract: true})
		base := basenameBeforeFirstDot(config.ExecutorUri)
		launcherPath = base + "*/bin/executor"
		// The URI-set path composes NodeId/TaskId; the URI-unset path uses
		// NodeId alone. This asymmetry is deliberate, not a bug: the two
		// launch paths carry different amounts of information to the
		// launched executor.
		executorId = fmt.Sprintf("%s/%d", spec.NodeId, spec.TaskId)
	}

	args := []string{
		"--driver-url", spec.DriverURL,
		"--executor-id", executorId,
		"--hostname", spec.Hostname,
		"--cores", strconv.FormatFloat(spec.AdvertisedCores, 'f', -1, 64),
		"--app-id", spec.AppId,
	}

	cmd := &driver.CommandInfo{
		Value:       launcherPath,
		Arguments:   args,
		Environment: env,
		Uris:        uris,
		Shell:       false,
	}

	var container *driver.ContainerInfo
	if config.ContainerImage != "" {
		container = &driver.ContainerInfo{Image: config.ContainerImage}
	}

	return cmd, container
}

func basenameBeforeFirstDot(uri string) string {
	slash := strings.LastIndex(uri, "/")
	name := uri
	if slash >= 0 {
		name = uri[slash+1:]
	}
	if dot := strings.Index(name, "."); dot >= 0 {
		return name[:dot]
	}
	return name
}
