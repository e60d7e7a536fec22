// Package offers evaluates a batch of resource offers against bookkeeping
// state and either launches on or declines each one.
package offers

import (
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/command"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/configuration"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/constraints"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/driver"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/metrics"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/sizing"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/state"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/upstream"
)

// refuseFilter requests the resource manager withhold a launched offer's
// node from being reoffered for this long. Declined offers carry no
// filter.
const refuseFilter = 5 * time.Second

// Handler evaluates offers one batch at a time.
type Handler struct {
	config      configuration.Configuration
	state       *state.Bookkeeping
	adapter     upstream.Adapter
	constraints []constraints.Constraint
	metrics     *metrics.Metrics
}

// New builds a Handler. The constraint string is parsed once, at
// construction, since Configuration is frozen at start.
func New(config configuration.Configuration, store *state.Bookkeeping, adapter upstream.Adapter, m *metrics.Metrics) (*Handler, error) {
	parsed, err := constraints.Parse(config.Constraints)
	if err != nil {
		return nil, err
	}
	return &Handler{config: config, state: store, adapter: adapter, constraints: parsed, metrics: m}, nil
}

// Handle evaluates an entire batch of offers, holding the state lock for
// its duration.
func (h *Handler) Handle(d driver.SchedulerDriver, offers []*driver.Offer) {
	h.state.Lock()
	defer h.state.Unlock()

	if h.state.StopCalled() {
		for _, offer := range offers {
			h.decline(d, offer, nil)
		}
		return
	}

	for _, offer := range offers {
		h.handleOne(d, offer)
	}
}

func (h *Handler) handleOne(d driver.SchedulerDriver, offer *driver.Offer) {
	offerCpus := quantityToFloat64(offer.Cpus())
	offerMem := quantityToFloat64(offer.Mem())

	// Clamp to what's left under maxCores.
	clampedCpus := offerCpus
	if h.config.MaxCores > 0 {
		remainingCores := h.config.MaxCores - h.state.TotalCoresAcquired()
		if remainingCores < clampedCpus {
			clampedCpus = remainingCores
		}
	}

	result, feasible := sizing.Size(clampedCpus, offerMem, sizing.Policy{
		MinMBPerCore:   h.config.MinMBPerCore,
		MaxMBPerCore:   h.config.MaxMBPerCore,
		MemoryOverhead: h.adapter.CalculateMemoryOverhead(),
	})

	if !h.admit(offer, feasible) {
		log.WithField("node", offer.NodeId).Debug("declining offer: admission predicate failed")
		h.decline(d, offer, nil)
		return
	}

	h.launch(d, offer, result)
}

// admit reports whether offer should be accepted: within the executor
// limit and cores cap, matching constraints, sized feasibly, on a node
// below the failure threshold and not already running an executor.
// Caller must hold the state lock.
func (h *Handler) admit(offer *driver.Offer, sizerFeasible bool) bool {
	if limit, set := h.state.ExecutorLimit(); set && h.state.ExecutorCount() >= limit {
		return false
	}
	if h.config.MaxCores > 0 && h.state.TotalCoresAcquired() >= h.config.MaxCores {
		return false
	}
	if !constraints.Matches(h.constraints, offer.Attributes) {
		return false
	}
	if !sizerFeasible {
		return false
	}
	if h.state.Failures(offer.NodeId) >= h.config.MaxSlaveFailures {
		return false
	}
	if h.state.HasExecutorOnNode(offer.NodeId) {
		return false
	}
	return true
}

func (h *Handler) launch(d driver.SchedulerDriver, offer *driver.Offer, result sizing.Result) {
	taskId := h.state.NextTaskId()
	h.state.RecordLaunch(taskId, offer.NodeId, offer.Hostname, result.CpusToUse)

	advertisedCores := sizing.AdvertisedCpuShare(result.CpusToUse, h.config.ExtraCoresPerSlave)

	cmd, container := command.Build(h.config, command.Spec{
		NodeId:          offer.NodeId,
		Hostname:        offer.Hostname,
		TaskId:          taskId,
		HeapMemMB:       result.HeapMemMB,
		DriverURL:       h.adapter.DriverURL(),
		AppId:           h.adapter.AppId(),
		AdvertisedCores: advertisedCores,
		ExecutorEnv:     h.adapter.ExecutorEnv(),
	})

	task := &driver.TaskInfo{
		TaskId: strconv.FormatInt(taskId, 10),
		NodeId: offer.NodeId,
		Name:   "executor",
		Resources: map[string]resource.Quantity{
			"cpus": *resource.NewMilliQuantity(int64(advertisedCores*1000), resource.DecimalSI),
			"mem":  *resource.NewQuantity(int64(result.TotalMemToUseMB), resource.DecimalSI),
		},
		Command:   cmd,
		Container: container,
	}

	if err := d.LaunchTasks([]driver.OfferId{offer.Id}, []*driver.TaskInfo{task}, &driver.Filters{RefuseSeconds: refuseFilter}); err != nil {
		log.WithError(err).WithField("node", offer.NodeId).Warn("failed to launch task")
		return
	}

	if h.metrics != nil {
		h.metrics.OffersAccepted.Inc()
		h.metrics.CoresAcquired.Add(result.CpusToUse)
		h.metrics.Launches.Inc()
	}
}

func (h *Handler) decline(d driver.SchedulerDriver, offer *driver.Offer, filters *driver.Filters) {
	if err := d.DeclineOffer(offer.Id, filters); err != nil {
		log.WithError(err).WithField("node", offer.NodeId).Warn("failed to decline offer")
	}
	if h.metrics != nil {
		h.metrics.OffersDeclined.Inc()
	}
}

// quantityToFloat64 converts an offer resource quantity to the float64
// cpu/MB units the sizer works in.
func quantityToFloat64(q resource.Quantity) float64 {
	return float64(q.MilliValue()) / 1000.0
}
