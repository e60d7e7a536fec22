// Package fake provides test doubles for the upstream package.
package fake

import (
	"sync"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/state"
)

// RemovedExecutor records one RemoveExecutor call.
type RemovedExecutor struct {
	Id     state.ExecutorId
	Reason string
}

// Adapter is a fake upstream.Adapter recording every call it receives.
type Adapter struct {
	mu sync.Mutex

	MemoryOverheadMB float64
	Registered       bool
	Removed          []RemovedExecutor
	Errors           []string

	Env            map[string]string
	DriverURLValue string
	AppIdValue     string
	MinRatio       float64
}

func New() *Adapter {
	return &Adapter{Env: map[string]string{}}
}

func (a *Adapter) CalculateMemoryOverhead() float64 {
	return a.MemoryOverheadMB
}

func (a *Adapter) RemoveExecutor(id state.ExecutorId, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Removed = append(a.Removed, RemovedExecutor{Id: id, Reason: reason})
}

func (a *Adapter) MarkRegistered() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Registered = true
}

func (a *Adapter) Error(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Errors = append(a.Errors, message)
}

func (a *Adapter) ExecutorEnv() map[string]string {
	return a.Env
}

func (a *Adapter) DriverURL() string {
	return a.DriverURLValue
}

func (a *Adapter) AppId() string {
	return a.AppIdValue
}

func (a *Adapter) MinRegisteredResourcesRatio() float64 {
	return a.MinRatio
}

// RemovalCount returns how many times RemoveExecutor was called for id.
func (a *Adapter) RemovalCount(id state.ExecutorId) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	count := 0
	for _, r := range a.Removed {
		if r.Id == id {
			count++
		}
	}
	return count
}
