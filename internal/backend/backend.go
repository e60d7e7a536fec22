// Package backend wires the offer handler, status handler, and bookkeeping
// state into the driver.Scheduler implementation that the resource-manager
// driver drives directly.
package backend

import (
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/configuration"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/driver"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/metrics"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/offers"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/shuffle"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/state"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/status"
	"github.com/metamx/mesos-scheduler-backend/internal/backend/upstream"
)

// drainPollInterval is the busy-wait granularity for Stop's drain loop.
const drainPollInterval = 10 * time.Millisecond

// Backend implements driver.Scheduler and is driven entirely by external
// callbacks; it runs no goroutines of its own. Stop's bounded drain loop
// runs on the goroutine that calls Stop.
type Backend struct {
	config  configuration.Configuration
	state   *state.Bookkeeping
	adapter upstream.Adapter
	metrics *metrics.Metrics

	offerHandler  *offers.Handler
	statusHandler *status.Handler

	shuffleClient shuffle.Client

	driver driver.SchedulerDriver
}

// New constructs a Backend. The shuffle client is constructed lazily at
// registration, so it starts nil here even when ShuffleServiceEnabled is
// true.
func New(config configuration.Configuration, adapter upstream.Adapter, m *metrics.Metrics) (*Backend, error) {
	if err := configuration.Validate(config); err != nil {
		return nil, err
	}

	store := state.NewBookkeeping()
	offerHandler, err := offers.New(config, store, adapter, m)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		config:  config,
		state:   store,
		adapter: adapter,
		metrics: m,
	}
	b.offerHandler = offerHandler
	b.statusHandler = status.New(config, store, adapter, nil, m)
	return b, nil
}

// Start records d as the driver that outbound calls (kill, stop) go to.
// It does not start d and does not register this Backend with it as a
// callback sink; whatever delivers offers and status updates calls the
// driver.Scheduler methods directly. It currently always returns nil;
// configuration errors are reported by New.
func (b *Backend) Start(d driver.SchedulerDriver) error {
	b.driver = d
	log.Info("starting mesos scheduler backend")
	return nil
}

// Registered implements driver.Scheduler.
func (b *Backend) Registered(d driver.SchedulerDriver, appId string) {
	b.state.SetAppId(appId)
	if b.config.ShuffleServiceEnabled {
		b.shuffleClient = shuffle.NewHTTPClient(appId)
		b.statusHandler = status.New(b.config, b.state, b.adapter, b.shuffleClient, b.metrics)
	}
	b.adapter.MarkRegistered()
	log.WithField("appId", appId).Info("registered with resource manager")
}

// Reregistered implements driver.Scheduler: log only, no state change.
func (b *Backend) Reregistered(d driver.SchedulerDriver) {
	log.Info("reregistered with resource manager")
}

// Disconnected implements driver.Scheduler.
func (b *Backend) Disconnected(d driver.SchedulerDriver) {
	log.Warn("disconnected from resource manager")
}

// ResourceOffers implements driver.Scheduler, delegating to the offer handler.
func (b *Backend) ResourceOffers(d driver.SchedulerDriver, offerList []*driver.Offer) {
	b.offerHandler.Handle(d, offerList)
}

// StatusUpdate implements driver.Scheduler, delegating to the status handler.
func (b *Backend) StatusUpdate(d driver.SchedulerDriver, update *driver.TaskStatus) {
	b.statusHandler.Handle(d, update)
}

// SlaveLost implements driver.Scheduler: treated as executor termination
// with reason "node lost", no blacklisting.
func (b *Backend) SlaveLost(d driver.SchedulerDriver, nodeId driver.NodeId) {
	b.statusHandler.ExecutorTerminated(nodeId, "node lost")
}

// ExecutorLost implements driver.Scheduler: same treatment as SlaveLost.
func (b *Backend) ExecutorLost(d driver.SchedulerDriver, executorId string, nodeId driver.NodeId, status int) {
	b.statusHandler.ExecutorTerminated(nodeId, "node lost")
}

// Error implements driver.Scheduler: propagated to the upstream task
// scheduler as fatal.
func (b *Backend) Error(d driver.SchedulerDriver, message string) {
	log.WithField("message", message).Error("resource manager driver error")
	b.adapter.Error(message)
}

// Stop CAS-guards against duplicate calls, drains nodesWithExecutors with
// polling until empty or ShutdownTimeout elapses, then stops the driver
// regardless.
func (b *Backend) Stop() {
	if !b.state.SetStopCalled() {
		return
	}

	b.drain()

	if b.driver != nil {
		if err := b.driver.Stop(); err != nil {
			log.WithError(err).Warn("failed to stop driver")
		}
	}
}

func (b *Backend) drain() {
	deadline := time.Now().Add(b.config.ShutdownTimeout)
	for {
		b.state.Lock()
		remaining := b.state.ExecutorCount()
		b.state.Unlock()

		if remaining == 0 {
			return
		}
		if time.Now().After(deadline) {
			log.WithField("remaining", remaining).Warn("shutdown drain timed out with live executors")
			return
		}
		time.Sleep(drainPollInterval)
	}
}

// SufficientResourcesRegistered reports whether enough cpu has been
// acquired to consider the framework usably registered.
func (b *Backend) SufficientResourcesRegistered() bool {
	if b.config.MaxCores <= 0 {
		return true
	}
	return b.state.TotalCoresAcquiredSnapshot() >= b.config.MaxCores*b.adapter.MinRegisteredResourcesRatio()
}

// DoRequestTotalExecutors records the new executor-count limit;
// enforcement happens in the offer handler.
func (b *Backend) DoRequestTotalExecutors(n int) bool {
	b.state.Lock()
	defer b.state.Unlock()
	b.state.SetExecutorLimit(n)
	return true
}

// DoKillExecutors parses each id as "nodeId/taskId"; if the node has a
// live task, instructs the driver to kill it and marks the node pending
// removal. Teardown completes when the matching status update arrives.
func (b *Backend) DoKillExecutors(ids []state.ExecutorId) bool {
	if b.driver == nil {
		return false
	}

	for _, id := range ids {
		nodeId, taskId, err := state.ParseExecutorId(id)
		if err != nil {
			log.WithError(err).Warn("failed to parse executor id for kill request")
			continue
		}

		b.state.Lock()
		liveTaskId, hasLive := b.state.TaskForNode(nodeId)
		if hasLive && liveTaskId == taskId {
			b.state.MarkPendingRemoval(nodeId)
		}
		b.state.Unlock()

		if hasLive && liveTaskId == taskId {
			if err := b.driver.KillTask(strconv.FormatInt(taskId, 10)); err != nil {
				log.WithError(err).WithField("node", nodeId).Warn("failed to kill task")
			}
		}
	}
	return true
}
