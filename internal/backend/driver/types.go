// Package driver defines the contract between the scheduler backend and the
// resource manager's driver library. The driver itself (the Mesos
// SchedulerDriver equivalent) is an external collaborator; this package only
// specifies the types and interfaces the backend consumes from it and
// exposes to it.
package driver

import (
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
)

// NodeId identifies a physical host, as supplied by the resource manager.
type NodeId string

// OfferId identifies a single resource offer.
type OfferId string

// TaskState is the lifecycle state of a launched task, as reported by the
// resource manager.
type TaskState int

const (
	TaskStaging TaskState = iota
	TaskStarting
	TaskRunning
	TaskFinished
	TaskFailed
	TaskKilled
	TaskLost
	TaskError
)

func (s TaskState) String() string {
	switch s {
	case TaskStaging:
		return "STAGING"
	case TaskStarting:
		return "STARTING"
	case TaskRunning:
		return "RUNNING"
	case TaskFinished:
		return "FINISHED"
	case TaskFailed:
		return "FAILED"
	case TaskKilled:
		return "KILLED"
	case TaskLost:
		return "LOST"
	case TaskError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the state denotes the end of a task's life.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskFinished, TaskFailed, TaskKilled, TaskLost, TaskError:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the terminal state should count against a
// node's failure budget. FINISHED and KILLED are terminal but not failures.
func (s TaskState) IsFailure() bool {
	switch s {
	case TaskFailed, TaskLost, TaskError:
		return true
	default:
		return false
	}
}

// Offer is a bundle of resources on a specific node, offered by the
// resource manager for a bounded time.
type Offer struct {
	Id         OfferId
	NodeId     NodeId
	Hostname   string
	Resources  map[string]resource.Quantity
	Attributes map[string]Attribute
}

func (o *Offer) Cpus() resource.Quantity {
	return o.Resources["cpus"]
}

func (o *Offer) Mem() resource.Quantity {
	return o.Resources["mem"]
}

// AttributeKind distinguishes the three Mesos attribute value shapes this
// backend's constraint matcher understands.
type AttributeKind int

const (
	AttributeScalar AttributeKind = iota
	AttributeText
	AttributeRange
)

// Attribute is a single named value in an offer's attribute map.
type Attribute struct {
	Kind   AttributeKind
	Text   string
	Scalar float64
	Ranges []Range
}

// Range is an inclusive [Begin, End] numeric range, used by range-typed
// attributes (e.g. a port range).
type Range struct {
	Begin float64
	End   float64
}

// TaskStatus reports a lifecycle transition for a single task.
type TaskStatus struct {
	TaskId  string
	NodeId  NodeId
	State   TaskState
	Message string
}

// TaskInfo describes a task to be launched on an accepted offer.
type TaskInfo struct {
	TaskId    string
	NodeId    NodeId
	Name      string
	Resources map[string]resource.Quantity
	Command   *CommandInfo
	Container *ContainerInfo
}

// CommandInfo is the launch command assembled by the command builder.
type CommandInfo struct {
	Value       string
	Arguments   []string
	Environment map[string]string
	Uris        []URI
	Shell       bool
}

// URI is a resource to fetch into the executor's sandbox before the launch
// command runs.
type URI struct {
	Value      string
	Executable bool
	Extract    bool
}

// ContainerInfo is attached to a TaskInfo when a container image is
// configured.
type ContainerInfo struct {
	Image string
}

// Filters accompanies a launch or decline and tells the resource manager
// how long it may withhold the offer's node from being reoffered.
type Filters struct {
	RefuseSeconds time.Duration
}

// Scheduler is the set of callbacks the resource-manager driver invokes on
// the backend. Each callback may be invoked from a
// different driver-owned thread; implementations serialize internally.
type Scheduler interface {
	Registered(d SchedulerDriver, appId string)
	Reregistered(d SchedulerDriver)
	Disconnected(d SchedulerDriver)
	ResourceOffers(d SchedulerDriver, offers []*Offer)
	StatusUpdate(d SchedulerDriver, status *TaskStatus)
	SlaveLost(d SchedulerDriver, nodeId NodeId)
	ExecutorLost(d SchedulerDriver, executorId string, nodeId NodeId, status int)
	Error(d SchedulerDriver, message string)
}

// SchedulerDriver is the set of methods the backend invokes on the driver
//. The concrete driver is a thread-safe external
// collaborator; this interface is what the backend needs from it.
type SchedulerDriver interface {
	LaunchTasks(offerIds []OfferId, tasks []*TaskInfo, filters *Filters) error
	DeclineOffer(offerId OfferId, filters *Filters) error
	KillTask(taskId string) error
	ReviveOffers() error
	Stop() error
}
