package driver

import "sync"

// FakeDriver is an in-memory SchedulerDriver used by component tests across
// the backend.
type FakeDriver struct {
	mu sync.Mutex

	Launched []LaunchCall
	Declined []DeclineCall
	Killed   []string
	Revived  int
	Stopped  bool
}

type LaunchCall struct {
	OfferIds []OfferId
	Tasks    []*TaskInfo
	Filters  *Filters
}

type DeclineCall struct {
	OfferId OfferId
	Filters *Filters
}

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

func (f *FakeDriver) LaunchTasks(offerIds []OfferId, tasks []*TaskInfo, filters *Filters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Launched = append(f.Launched, LaunchCall{OfferIds: offerIds, Tasks: tasks, Filters: filters})
	return nil
}

func (f *FakeDriver) DeclineOffer(offerId OfferId, filters *Filters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Declined = append(f.Declined, DeclineCall{OfferId: offerId, Filters: filters})
	return nil
}

func (f *FakeDriver) KillTask(taskId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Killed = append(f.Killed, taskId)
	return nil
}

func (f *FakeDriver) ReviveOffers() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Revived++
	return nil
}

func (f *FakeDriver) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stopped = true
	return nil
}

func (f *FakeDriver) LaunchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Launched {
		n += len(c.Tasks)
	}
	return n
}

func (f *FakeDriver) DeclineCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Declined)
}
