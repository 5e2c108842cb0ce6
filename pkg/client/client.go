// SPDX-FileCopyrightText: 2023 Christoph Mewes
// SPDX-License-Identifier: MIT

package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gh "github.com/google/go-github/v53/github"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

type rateLimit struct {
	Cost      int
	Remaining int
}

type Client struct {
	ctx               context.Context
	client            *githubv4.Client
	rest              *gh.Client
	log               logrus.FieldLogger
	requests          map[string]int
	remainingPoints   int
	remainingRequests int
	totalCosts        map[string]int
	lock              sync.RWMutex
}

func NewClient(ctx context.Context, log logrus.FieldLogger, token string) (*Client, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}

	src := oauth2.StaticTokenSource(
		&oauth2.Token{
			AccessToken: token,
		},
	)
	httpClient := oauth2.NewClient(ctx, src)

	return &Client{
		ctx:               ctx,
		client:            githubv4.NewClient(httpClient),
		rest:              gh.NewClient(httpClient),
		log:               log,
		requests:          map[string]int{},
		remainingPoints:   0,
		remainingRequests: 0,
		totalCosts:        map[string]int{},
		lock:              sync.RWMutex{},
	}, nil
}

// GetRemainingPoints returns the GraphQL API points left, as of the last query.
func (c *Client) GetRemainingPoints() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.remainingPoints
}

// GetRemainingRequests returns the REST API requests left, as of the last mutation.
func (c *Client) GetRemainingRequests() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.remainingRequests
}

func (c *Client) GetRequestCounts() map[string]int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return copyCounts(c.requests)
}

func (c *Client) GetTotalCosts() map[string]int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return copyCounts(c.totalCosts)
}

func copyCounts(counts map[string]int) map[string]int {
	result := map[string]int{}
	for key, val := range counts {
		result[key] = val
	}

	return result
}

func (c *Client) countRequest(owner string, name string, rateLimit rateLimit) {
	key := fmt.Sprintf("%s/%s", owner, name)

	c.lock.Lock()
	defer c.lock.Unlock()

	val := c.requests[key]
	c.requests[key] = val + 1

	val = c.totalCosts[key]
	c.totalCosts[key] = val + rateLimit.Cost

	c.remainingPoints = rateLimit.Remaining
}

func (c *Client) countRESTRequest(owner string, name string, resp *gh.Response) {
	key := fmt.Sprintf("%s/%s", owner, name)

	c.lock.Lock()
	defer c.lock.Unlock()

	val := c.requests[key]
	c.requests[key] = val + 1

	// the response is nil if the request never made it to GitHub
	if resp != nil {
		c.remainingRequests = resp.Rate.Remaining
	}
}
