package offers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/configuration"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/driver"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/state"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/upstream/fake"
)

func cpuMemOffer(id, node string, cpus, mem int64) *driver.Offer {
	return &driver.Offer{
		Id:       driver.OfferId(id),
		NodeId:   driver.NodeId(node),
		Hostname: node + ".local",
		Resources: map[string]resource.Quantity{
			"cpus": *resource.NewQuantity(cpus, resource.DecimalSI),
			"mem":  *resource.NewQuantity(mem, resource.DecimalSI),
		},
		Attributes: map[string]driver.Attribute{},
	}
}

func newHandler(t *testing.T, config configuration.Configuration, overheadMB float64) (*Handler, *state.Bookkeeping, *fake.Adapter) {
	store := state.NewBookkeeping()
	adapter := fake.New()
	adapter.MemoryOverheadMB = overheadMB
	h, err := New(config, store, adapter, nil)
	require.NoError(t, err)
	return h, store, adapter
}

func TestHandle_AcceptsAFeasibleOfferAndTracksAcquiredCores(t *testing.T) {
	config := configuration.Default()
	config.MaxCores = 4
	h, store, _ := newHandler(t, config, 384)

	d := driver.NewFakeDriver()
	h.Handle(d, []*driver.Offer{cpuMemOffer("o1", "node-a", 4, 2048)})

	assert.Equal(t, 1, d.LaunchCount())
	assert.Equal(t, 4.0, store.TotalCoresAcquiredSnapshot())
}

func TestHandle_SecondOfferToSameNodeIsDeclined(t *testing.T) {
	config := configuration.Default()
	config.MaxCores = 8
	h, _, _ := newHandler(t, config, 0)

	d := driver.NewFakeDriver()
	h.Handle(d, []*driver.Offer{cpuMemOffer("o1", "node-a", 4, 2048)})
	h.Handle(d, []*driver.Offer{cpuMemOffer("o2", "node-a", 4, 2048)})

	assert.Equal(t, 1, d.LaunchCount())
	assert.Equal(t, 1, d.DeclineCount())
}

// TestHandle_NodeAtFailureThresholdIsDeclinedEvenWhenResourcesFit covers a
// node that has already failed twice: subsequent offers from it are
// declined even though resources would fit.
func TestHandle_NodeAtFailureThresholdIsDeclinedEvenWhenResourcesFit(t *testing.T) {
	config := configuration.Default()
	config.MaxCores = 8
	config.MaxSlaveFailures = 2
	h, store, _ := newHandler(t, config, 0)

	store.Lock()
	store.RecordFailure("node-b")
	store.RecordFailure("node-b")
	store.Unlock()

	d := driver.NewFakeDriver()
	h.Handle(d, []*driver.Offer{cpuMemOffer("o1", "node-b", 4, 2048)})

	assert.Equal(t, 0, d.LaunchCount())
	assert.Equal(t, 1, d.DeclineCount())
}

func TestHandle_StopsLaunchingOnceExecutorLimitIsReached(t *testing.T) {
	config := configuration.Default()
	config.MaxCores = 16
	h, store, _ := newHandler(t, config, 0)

	store.Lock()
	store.SetExecutorLimit(1)
	store.Unlock()

	d := driver.NewFakeDriver()
	h.Handle(d, []*driver.Offer{
		cpuMemOffer("o1", "node-a", 4, 2048),
		cpuMemOffer("o2", "node-b", 4, 2048),
	})

	assert.Equal(t, 1, d.LaunchCount())
	assert.Equal(t, 1, d.DeclineCount())
}

func TestHandle_StopCalledDeclinesEveryOfferWithoutEvaluation(t *testing.T) {
	config := configuration.Default()
	config.MaxCores = 8
	h, store, _ := newHandler(t, config, 0)
	store.SetStopCalled()

	d := driver.NewFakeDriver()
	h.Handle(d, []*driver.Offer{
		cpuMemOffer("o1", "node-a", 4, 2048),
		cpuMemOffer("o2", "node-b", 4, 2048),
	})

	assert.Equal(t, 0, d.LaunchCount())
	assert.Equal(t, 2, d.DeclineCount())
}

func TestHandle_MaxCoresCapIsNeverExceeded(t *testing.T) {
	config := configuration.Default()
	config.MaxCores = 4
	h, store, _ := newHandler(t, config, 0)

	d := driver.NewFakeDriver()
	h.Handle(d, []*driver.Offer{cpuMemOffer("o1", "node-a", 4, 2048)})
	h.Handle(d, []*driver.Offer{cpuMemOffer("o2", "node-b", 4, 2048)})

	assert.LessOrEqual(t, store.TotalCoresAcquiredSnapshot(), config.MaxCores)
	assert.Equal(t, 1, d.LaunchCount())
}
