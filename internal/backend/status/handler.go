// Package status reacts to task status transitions reported by the
// resource-manager driver.
package status

import (
	"context"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/configuration"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/driver"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/metrics"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/shuffle"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/state"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/upstream"
)

// registrationTimeout bounds the synchronous shuffle-service registration
// call made while the state lock is held.
const registrationTimeout = 5 * time.Second

// Handler reacts to task status updates.
type Handler struct {
	config  configuration.Configuration
	state   *state.Bookkeeping
	adapter upstream.Adapter
	shuffle shuffle.Client
	metrics *metrics.Metrics
}

// New builds a Handler. shuffleClient may be nil when
// Configuration.ShuffleServiceEnabled is false.
func New(config configuration.Configuration, store *state.Bookkeeping, adapter upstream.Adapter, shuffleClient shuffle.Client, m *metrics.Metrics) *Handler {
	return &Handler{config: config, state: store, adapter: adapter, shuffle: shuffleClient, metrics: m}
}

// Handle reacts to a single task status update.
func (h *Handler) Handle(d driver.SchedulerDriver, update *driver.TaskStatus) {
	h.state.Lock()
	defer h.state.Unlock()

	if h.config.ShuffleServiceEnabled && h.shuffle != nil {
		h.registerWithShuffleServiceOnFirstRunning(update)
	}

	if !update.State.IsTerminal() {
		return
	}

	h.handleTerminal(d, update)
}

// registerWithShuffleServiceOnFirstRunning fires the shuffle-service
// registration call the first time a task reports RUNNING. Caller must
// hold the state lock; the network call is made while it is held,
// deliberately, so a concurrent removal can't race the registration.
func (h *Handler) registerWithShuffleServiceOnFirstRunning(update *driver.TaskStatus) {
	if update.State != driver.TaskRunning {
		return
	}
	host, present := h.state.TakeHostForShuffleRegistration(update.NodeId)
	if !present {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), registrationTimeout)
	defer cancel()
	if err := h.shuffle.Register(ctx, host, h.config.ShuffleServicePort); err != nil {
		log.WithError(err).WithField("node", update.NodeId).Warn("shuffle service registration failed")
	}
}

func (h *Handler) handleTerminal(d driver.SchedulerDriver, update *driver.TaskStatus) {
	// The bijection is authoritative: the resource manager's status-reported
	// NodeId may be absent or stale, so resolve via TaskId when we can.
	nodeId := update.NodeId
	if taskId, err := strconv.ParseInt(update.TaskId, 10, 64); err == nil {
		if resolved, ok := h.state.NodeForTask(taskId); ok {
			nodeId = resolved
		}
	}

	if update.State.IsFailure() {
		count := h.state.RecordFailure(nodeId)
		if count >= h.config.MaxSlaveFailures {
			log.WithField("node", nodeId).WithField("failures", count).Warn("node reached failure threshold, blacklisting")
		}
		// Counters are never reset, so each node crosses the threshold once.
		if count == h.config.MaxSlaveFailures && h.metrics != nil {
			h.metrics.BlacklistedNodes.Inc()
		}
	}

	// executorTerminated performs the bijection/core bookkeeping removal
	// and the idempotent removeExecutor callback in one place, since it
	// is also the entry point SlaveLost and ExecutorLost use.
	h.executorTerminated(nodeId, update.State.String())

	if err := d.ReviveOffers(); err != nil {
		log.WithError(err).Warn("failed to revive offers")
	}

	if h.metrics != nil {
		h.metrics.Terminations.WithLabelValues(update.State.String()).Inc()
	}
}

// ExecutorTerminated is the exported form of executorTerminated, used
// directly by the lifecycle controller for SlaveLost/ExecutorLost, which
// are treated as termination without blacklisting.
func (h *Handler) ExecutorTerminated(nodeId driver.NodeId, reason string) {
	h.state.Lock()
	defer h.state.Unlock()
	h.executorTerminated(nodeId, reason)
}

// executorTerminated is idempotent: a node with no live task is a no-op.
// Caller must hold the state lock.
func (h *Handler) executorTerminated(nodeId driver.NodeId, reason string) {
	if !h.state.HasExecutorOnNode(nodeId) {
		return
	}
	taskId, ok := h.state.TaskForNode(nodeId)
	if !ok {
		return
	}
	h.state.RemoveTask(taskId)
	h.adapter.RemoveExecutor(state.NewExecutorId(nodeId, taskId), reason)
	h.state.ClearPendingRemoval(nodeId)
}
