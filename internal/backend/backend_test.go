package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/configuration"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/driver"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/state"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/upstream/fake"
)

func newTestBackend(t *testing.T, config configuration.Configuration) (*Backend, *fake.Adapter, *driver.FakeDriver) {
	config.Testing = true
	adapter := fake.New()
	b, err := New(config, adapter, nil)
	require.NoError(t, err)
	d := driver.NewFakeDriver()
	require.NoError(t, b.Start(d))
	return b, adapter, d
}

func TestNew_RejectsInvalidConfiguration(t *testing.T) {
	config := configuration.Default() // no ExecutorHome/ExecutorUri set
	_, err := New(config, fake.New(), nil)
	assert.Error(t, err)
}

func TestRegistered_MarksUpstreamAndPersistsAppId(t *testing.T) {
	config := configuration.Default()
	config.ExecutorHome = "/opt/executor"
	b, adapter, d := newTestBackend(t, config)

	b.Registered(d, "app-1")

	assert.True(t, adapter.Registered)
	assert.Equal(t, "app-1", b.state.AppId())
}

func TestError_PropagatesToUpstreamAdapter(t *testing.T) {
	config := configuration.Default()
	config.ExecutorHome = "/opt/executor"
	b, adapter, d := newTestBackend(t, config)

	b.Error(d, "driver exploded")

	require.Len(t, adapter.Errors, 1)
	assert.Equal(t, "driver exploded", adapter.Errors[0])
}

// TestStop_DrainsOnceLiveExecutorFinishes checks that, with one live
// executor, Stop drains once a FINISHED status arrives, well before the
// configured timeout, and then stops the driver.
func TestStop_DrainsOnceLiveExecutorFinishes(t *testing.T) {
	config := configuration.Default()
	config.ExecutorHome = "/opt/executor"
	config.ShutdownTimeout = 2 * time.Second
	b, _, d := newTestBackend(t, config)
	b.Registered(d, "app-1")

	b.state.Lock()
	taskId := b.state.NextTaskId()
	b.state.RecordLaunch(taskId, "node-a", "host-a", 4)
	b.state.Unlock()

	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	b.StatusUpdate(d, &driver.TaskStatus{NodeId: "node-a", State: driver.TaskFinished})

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Stop did not return after drain completed")
	}

	assert.True(t, d.Stopped)
}

func TestStop_IsIdempotent(t *testing.T) {
	config := configuration.Default()
	config.ExecutorHome = "/opt/executor"
	config.ShutdownTimeout = 10 * time.Millisecond
	b, _, _ := newTestBackend(t, config)

	b.Stop()
	b.Stop()

	assert.True(t, b.state.StopCalled())
}

func TestDoRequestTotalExecutors_SetsLimitEnforcedByOfferHandler(t *testing.T) {
	config := configuration.Default()
	config.ExecutorHome = "/opt/executor"
	config.MaxCores = 16
	b, _, d := newTestBackend(t, config)
	b.Registered(d, "app-1")

	assert.True(t, b.DoRequestTotalExecutors(1))

	offerA := &driver.Offer{Id: "o1", NodeId: "node-a", Hostname: "a", Resources: cpuMem(4, 2048)}
	offerB := &driver.Offer{Id: "o2", NodeId: "node-b", Hostname: "b", Resources: cpuMem(4, 2048)}
	b.ResourceOffers(d, []*driver.Offer{offerA, offerB})

	assert.Equal(t, 1, d.LaunchCount())
}

func TestDoKillExecutors_KillsLiveTask(t *testing.T) {
	config := configuration.Default()
	config.ExecutorHome = "/opt/executor"
	b, _, d := newTestBackend(t, config)
	b.Registered(d, "app-1")

	b.state.Lock()
	taskId := b.state.NextTaskId()
	b.state.RecordLaunch(taskId, "node-a", "host-a", 4)
	b.state.Unlock()

	ok := b.DoKillExecutors([]state.ExecutorId{state.NewExecutorId("node-a", taskId)})
	assert.True(t, ok)
	assert.Len(t, d.Killed, 1)
}

func cpuMem(cpus, mem int64) map[string]resource.Quantity {
	return map[string]resource.Quantity{
		"cpus": *resource.NewQuantity(cpus, resource.DecimalSI),
		"mem":  *resource.NewQuantity(mem, resource.DecimalSI),
	}
}
