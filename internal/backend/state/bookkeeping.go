// Package state holds the mutex-guarded maps and counters that every
// other component mutates or reads under a single lock.
package state

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/atomic"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/driver"
)

// ExecutorId is the externally visible "<NodeId>/<TaskId>" composite
// identifier used when talking to the upstream application.
type ExecutorId string

// NewExecutorId builds the composite id.
func NewExecutorId(nodeId driver.NodeId, taskId int64) ExecutorId {
	return ExecutorId(fmt.Sprintf("%s/%d", nodeId, taskId))
}

// ParseExecutorId splits the composite id back into its NodeId and TaskId
// parts, by splitting on the first '/'.
func ParseExecutorId(id ExecutorId) (driver.NodeId, int64, error) {
	nodeId, taskIdStr, found := strings.Cut(string(id), "/")
	if !found {
		return "", 0, fmt.Errorf("malformed executor id %q: missing '/'", id)
	}
	taskId, err := strconv.ParseInt(taskIdStr, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed executor id %q: %w", id, err)
	}
	return driver.NodeId(nodeId), taskId, nil
}

// Bookkeeping is the single lock-guarded state store for the backend.
// Every field below is protected by lock except StopCalled, which is a
// lock-free atomic.
type Bookkeeping struct {
	lock sync.Mutex

	coresByTaskId      map[int64]float64
	totalCoresAcquired float64

	nodesWithExecutors map[driver.NodeId]struct{}
	nodeIdToHost       map[driver.NodeId]string

	taskToNode map[int64]driver.NodeId
	nodeToTask map[driver.NodeId]int64

	failuresByNodeId map[driver.NodeId]int

	executorLimitSet bool
	executorLimit    int

	pendingRemovedNodeIds map[driver.NodeId]struct{}

	nextTaskId int64

	appId string

	stopCalled atomic.Bool
}

// NewBookkeeping constructs an empty state store.
func NewBookkeeping() *Bookkeeping {
	return &Bookkeeping{
		coresByTaskId:         map[int64]float64{},
		nodesWithExecutors:    map[driver.NodeId]struct{}{},
		nodeIdToHost:          map[driver.NodeId]string{},
		taskToNode:            map[int64]driver.NodeId{},
		nodeToTask:            map[driver.NodeId]int64{},
		failuresByNodeId:      map[driver.NodeId]int{},
		pendingRemovedNodeIds: map[driver.NodeId]struct{}{},
	}
}

// Lock/Unlock expose the single state lock to callers that need to hold
// it across several of the read/mutate operations below. The lock
// serializes every callback into the backend.
func (b *Bookkeeping) Lock()   { b.lock.Lock() }
func (b *Bookkeeping) Unlock() { b.lock.Unlock() }

// StopCalled reports whether Stop has been CAS-set; lock-free.
func (b *Bookkeeping) StopCalled() bool {
	return b.stopCalled.Load()
}

// SetStopCalled performs the compare-and-swap false->true. Returns true
// if this call performed the transition.
func (b *Bookkeeping) SetStopCalled() bool {
	return b.stopCalled.CompareAndSwap(false, true)
}

// AppId returns the framework id recorded at registration. It takes the
// state lock, so it is not lock-free and must not be called with the lock
// held.
func (b *Bookkeeping) AppId() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.appId
}

// SetAppId records the framework id at registration.
func (b *Bookkeeping) SetAppId(appId string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.appId = appId
}

// TotalCoresAcquired must be called with the lock held by the caller, or
// use TotalCoresAcquiredSnapshot for a lock-acquiring read.
func (b *Bookkeeping) TotalCoresAcquired() float64 {
	return b.totalCoresAcquired
}

func (b *Bookkeeping) TotalCoresAcquiredSnapshot() float64 {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.totalCoresAcquired
}

// ExecutorCount returns the number of live tasks. Caller must hold the
// lock.
func (b *Bookkeeping) ExecutorCount() int {
	return len(b.taskToNode)
}

// ExecutorLimit returns the configured executor limit, or (0, false) when
// unset — callers should treat unset as +∞.
func (b *Bookkeeping) ExecutorLimit() (int, bool) {
	return b.executorLimit, b.executorLimitSet
}

// SetExecutorLimit records a new executor-count limit. Caller must hold
// the lock.
func (b *Bookkeeping) SetExecutorLimit(n int) {
	b.executorLimit = n
	b.executorLimitSet = true
}

// HasExecutorOnNode reports the single-executor-per-node rule. Caller
// must hold the lock.
func (b *Bookkeeping) HasExecutorOnNode(nodeId driver.NodeId) bool {
	_, present := b.nodesWithExecutors[nodeId]
	return present
}

// Failures returns the failure count recorded for a node. Caller must
// hold the lock.
func (b *Bookkeeping) Failures(nodeId driver.NodeId) int {
	return b.failuresByNodeId[nodeId]
}

// NextTaskId mints a new, never-reused TaskId. Caller must hold the
// lock.
func (b *Bookkeeping) NextTaskId() int64 {
	id := b.nextTaskId
	b.nextTaskId++
	return id
}

// RecordLaunch performs the atomic bookkeeping update on accept. Caller
// must hold the lock.
func (b *Bookkeeping) RecordLaunch(taskId int64, nodeId driver.NodeId, hostname string, cpusToUse float64) {
	b.coresByTaskId[taskId] = cpusToUse
	b.totalCoresAcquired += cpusToUse
	b.nodesWithExecutors[nodeId] = struct{}{}
	b.nodeIdToHost[nodeId] = hostname
	b.taskToNode[taskId] = nodeId
	b.nodeToTask[nodeId] = taskId
}

// TakeHostForShuffleRegistration is idempotent by removal: it returns the
// host and true the first time it is called for nodeId, removing the
// entry so a second call returns ("", false). Caller must hold the lock.
func (b *Bookkeeping) TakeHostForShuffleRegistration(nodeId driver.NodeId) (string, bool) {
	host, present := b.nodeIdToHost[nodeId]
	if !present {
		return "", false
	}
	delete(b.nodeIdToHost, nodeId)
	return host, true
}

// NodeForTask resolves a TaskId to its NodeId via the bijection. Caller
// must hold the lock.
func (b *Bookkeeping) NodeForTask(taskId int64) (driver.NodeId, bool) {
	nodeId, ok := b.taskToNode[taskId]
	return nodeId, ok
}

// TaskForNode resolves a NodeId to its live TaskId via the bijection.
// Caller must hold the lock.
func (b *Bookkeeping) TaskForNode(nodeId driver.NodeId) (int64, bool) {
	taskId, ok := b.nodeToTask[nodeId]
	return taskId, ok
}

// RemoveTask tears down the bijection and core accounting for a
// terminated task. Caller must hold the lock.
func (b *Bookkeeping) RemoveTask(taskId int64) {
	nodeId, ok := b.taskToNode[taskId]
	if !ok {
		return
	}
	b.totalCoresAcquired -= b.coresByTaskId[taskId]
	delete(b.coresByTaskId, taskId)
	delete(b.taskToNode, taskId)
	delete(b.nodeToTask, nodeId)
	delete(b.nodesWithExecutors, nodeId)
}

// RecordFailure increments a node's monotonic failure counter. It is
// never reset. Caller must hold the lock.
func (b *Bookkeeping) RecordFailure(nodeId driver.NodeId) int {
	b.failuresByNodeId[nodeId]++
	return b.failuresByNodeId[nodeId]
}

// MarkPendingRemoval records that we asked the driver to kill the task on
// nodeId. Caller must hold the lock.
func (b *Bookkeeping) MarkPendingRemoval(nodeId driver.NodeId) {
	b.pendingRemovedNodeIds[nodeId] = struct{}{}
}

// ClearPendingRemoval erases a node from the pending-removal set. Caller
// must hold the lock.
func (b *Bookkeeping) ClearPendingRemoval(nodeId driver.NodeId) {
	delete(b.pendingRemovedNodeIds, nodeId)
}
