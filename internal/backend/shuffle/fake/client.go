// Package fake provides a test double for shuffle.Client.
package fake

import (
	"context"
	"sync"
)

// Registration records one Register call.
type Registration struct {
	Host string
	Port int
}

// Client is a fake shuffle.Client recording every registration attempt.
type Client struct {
	mu sync.Mutex

	Registrations []Registration
	Err           error
}

func New() *Client {
	return &Client{}
}

func (c *Client) Register(_ context.Context, host string, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Registrations = append(c.Registrations, Registration{Host: host, Port: port})
	return nil
}

func (c *Client) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Registrations)
}
