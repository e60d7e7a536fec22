// Package mesoshttp is a minimal binding of driver.SchedulerDriver onto
// the Mesos v1 HTTP scheduler API (plain JSON over HTTP). Subscribing to
// the master's event stream and dispatching decoded events back into a
// driver.Scheduler is the resource-manager driver's own responsibility
// and is not implemented here; this package covers only the outbound
// calls the backend issues (accept, decline, kill, revive).
package mesoshttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/driver"
)

// Driver is a driver.SchedulerDriver backed by HTTP calls to a Mesos
// master's /api/v1/scheduler endpoint.
type Driver struct {
	endpoint    string
	frameworkId string
	httpClient  *http.Client
}

// New builds a Driver bound to a master host:port and framework id. The
// id is sent on every call; it is not updated on registration by this
// package or by the backend. Callers that learn the id later may pass an
// empty string here and set it with SetFrameworkId.
func New(host string, port int, frameworkId string) *Driver {
	return &Driver{
		endpoint:    fmt.Sprintf("http://%s:%d/api/v1/scheduler", host, port),
		frameworkId: frameworkId,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SetFrameworkId records the framework id assigned at registration, used
// on every subsequent call.
func (d *Driver) SetFrameworkId(id string) {
	d.frameworkId = id
}

// call is the envelope shared by every Mesos v1 scheduler Call message.
type call struct {
	FrameworkID *frameworkID `json:"framework_id,omitempty"`
	Type        string       `json:"type"`
	Accept      *acceptCall  `json:"accept,omitempty"`
	Decline     *declineCall `json:"decline,omitempty"`
	Kill        *killCall    `json:"kill,omitempty"`
	Revive      *struct{}    `json:"revive,omitempty"`
}

type frameworkID struct {
	Value string `json:"value"`
}

type offerID struct {
	Value string `json:"value"`
}

type taskID struct {
	Value string `json:"value"`
}

type acceptCall struct {
	OfferIDs   []offerID  `json:"offer_ids"`
	Operations []launchOp `json:"operations"`
	Filters    *filters   `json:"filters,omitempty"`
}

type launchOp struct {
	Type   string        `json:"type"`
	Launch *launchDetail `json:"launch,omitempty"`
}

type launchDetail struct {
	TaskInfos []taskInfo `json:"task_infos"`
}

type taskInfo struct {
	TaskID  taskID `json:"task_id"`
	AgentID struct {
		Value string `json:"value"`
	} `json:"agent_id"`
	Name string `json:"name"`
}

type declineCall struct {
	OfferIDs []offerID `json:"offer_ids"`
	Filters  *filters  `json:"filters,omitempty"`
}

type killCall struct {
	TaskID taskID `json:"task_id"`
}

type filters struct {
	RefuseSeconds float64 `json:"refuse_seconds,omitempty"`
}

func (d *Driver) post(body call) error {
	body.FrameworkID = &frameworkID{Value: d.frameworkId}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshaling mesos scheduler call")
	}

	req, err := http.NewRequest(http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "building mesos scheduler request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling mesos scheduler api")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Errorf("mesos scheduler api returned status %d for call type %s", resp.StatusCode, body.Type)
	}
	return nil
}

// LaunchTasks implements driver.SchedulerDriver via an ACCEPT call
// carrying a single LAUNCH operation.
func (d *Driver) LaunchTasks(offerIds []driver.OfferId, tasks []*driver.TaskInfo, f *driver.Filters) error {
	offerIDs := make([]offerID, len(offerIds))
	for i, id := range offerIds {
		offerIDs[i] = offerID{Value: string(id)}
	}

	infos := make([]taskInfo, len(tasks))
	for i, t := range tasks {
		infos[i].TaskID = taskID{Value: t.TaskId}
		infos[i].AgentID.Value = string(t.NodeId)
		infos[i].Name = t.Name
	}

	return d.post(call{
		Type: "ACCEPT",
		Accept: &acceptCall{
			OfferIDs: offerIDs,
			Operations: []launchOp{{
				Type:   "LAUNCH",
				Launch: &launchDetail{TaskInfos: infos},
			}},
			Filters: toWireFilters(f),
		},
	})
}

// DeclineOffer implements driver.SchedulerDriver via a DECLINE call.
func (d *Driver) DeclineOffer(id driver.OfferId, f *driver.Filters) error {
	return d.post(call{
		Type: "DECLINE",
		Decline: &declineCall{
			OfferIDs: []offerID{{Value: string(id)}},
			Filters:  toWireFilters(f),
		},
	})
}

// KillTask implements driver.SchedulerDriver via a KILL call.
func (d *Driver) KillTask(id string) error {
	return d.post(call{Type: "KILL", Kill: &killCall{TaskID: taskID{Value: id}}})
}

// ReviveOffers implements driver.SchedulerDriver via a REVIVE call.
func (d *Driver) ReviveOffers() error {
	return d.post(call{Type: "REVIVE", Revive: &struct{}{}})
}

// Stop implements driver.SchedulerDriver. The Mesos v1 API has no
// explicit "stop" call beyond closing the SUBSCRIBE connection, which is
// owned by the (unimplemented) event-stream loop; this is a no-op here.
func (d *Driver) Stop() error {
	return nil
}

func toWireFilters(f *driver.Filters) *filters {
	if f == nil {
		return nil
	}
	return &filters{RefuseSeconds: f.RefuseSeconds.Seconds()}
}
