package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/configuration"
)

func TestBuild_NoUriInvokesLauncherDirectlyWithNodeIdOnly(t *testing.T) {
	config := configuration.Default()
	config.ExecutorHome = "/opt/executor"

	cmd, container := Build(config, Spec{
		NodeId:          "node-a",
		Hostname:        "host-a",
		TaskId:          7,
		HeapMemMB:       1664,
		DriverURL:       "driver://host:1234",
		AppId:           "app-1",
		AdvertisedCores: 5,
	})

	assert.Equal(t, "/opt/executor/bin/executor", cmd.Value)
	assert.Empty(t, cmd.Uris)
	assert.Nil(t, container)
	assert.Contains(t, cmd.Arguments, "--executor-id")
	idx := indexOf(cmd.Arguments, "--executor-id")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "node-a", cmd.Arguments[idx+1])
	assert.Equal(t, "1664M", cmd.Environment["EXECUTOR_MEMORY"])
}

func TestBuild_UriSetFetchesAndUsesCompositeExecutorId(t *testing.T) {
	config := configuration.Default()
	config.ExecutorUri = "https://example.com/dist/executor-1.2.3.tgz"

	cmd, _ := Build(config, Spec{
		NodeId:          "node-a",
		TaskId:          7,
		HeapMemMB:       1024,
		AdvertisedCores: 4,
	})

	require.Len(t, cmd.Uris, 1)
	assert.Equal(t, config.ExecutorUri, cmd.Uris[0].Value)
	assert.True(t, cmd.Uris[0].Extract)
	assert.Equal(t, "executor-1*/bin/executor", cmd.Value)

	idx := indexOf(cmd.Arguments, "--executor-id")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "node-a/7", cmd.Arguments[idx+1])
}

func TestBuild_ContainerImageAttachedWhenConfigured(t *testing.T) {
	config := configuration.Default()
	config.ExecutorHome = "/opt/executor"
	config.ContainerImage = "registry/executor:latest"

	_, container := Build(config, Spec{NodeId: "n", HeapMemMB: 512})
	require.NotNil(t, container)
	assert.Equal(t, "registry/executor:latest", container.Image)
}

func TestBuild_ExtraClassPathAndLibraryPathOnlySetWhenConfigured(t *testing.T) {
	config := configuration.Default()
	config.ExecutorHome = "/opt/executor"

	cmd, _ := Build(config, Spec{NodeId: "n", HeapMemMB: 512})
	_, hasClasspath := cmd.Environment["CLASSPATH"]
	_, hasLibPath := cmd.Environment["LD_LIBRARY_PATH"]
	assert.False(t, hasClasspath)
	assert.False(t, hasLibPath)

	config.ExtraClassPath = "/opt/libs/*"
	config.ExtraLibraryPath = "/opt/native"
	cmd, _ = Build(config, Spec{NodeId: "n", HeapMemMB: 512})
	assert.Equal(t, "/opt/libs/*", cmd.Environment["CLASSPATH"])
	assert.Equal(t, "/opt/native", cmd.Environment["LD_LIBRARY_PATH"])
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}
	return -1
}
