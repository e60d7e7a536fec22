// Package shuffle implements the optional shuffle-service registration
// call made when a task's status first reports RUNNING.
package shuffle

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Client registers an executor's host with the external shuffle service.
type Client interface {
	Register(ctx context.Context, host string, port int) error
}

// HTTPClient is the production Client: a small JSON POST to the shuffle
// service's registration endpoint.
type HTTPClient struct {
	httpClient *http.Client
	appId      string
}

// NewHTTPClient builds a Client bound to appId, initialized once at
// framework registration.
func NewHTTPClient(appId string) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		appId:      appId,
	}
}

func (c *HTTPClient) Register(ctx context.Context, host string, port int) error {
	url := "http://" + host + ":" + strconv.Itoa(port) + "/api/v1/applications/" + c.appId + "/register"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return errors.Wrapf(err, "building shuffle registration request for host %s", host)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "registering with shuffle service on host %s", host)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return errors.Errorf("shuffle service registration for host %s failed with status %d: %s", host, resp.StatusCode, body.Message)
	}
	return nil
}
