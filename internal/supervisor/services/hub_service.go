// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package services

import (
	"context"
	"fmt"
)

// Endpoint is a hub endpoint: it runs until its context ends and closes
// its connections on the way out.
type Endpoint interface {
	Serve(ctx context.Context) error
	String() string
}

// HubService supervises one hub endpoint.
type HubService struct {
	endpoint Endpoint
}

// NewHubService wraps endpoint.
func NewHubService(endpoint Endpoint) *HubService {
	return &HubService{endpoint: endpoint}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	err := s.endpoint.Serve(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.endpoint, err)
	}
	return fmt.Errorf("%s stopped unexpectedly", s.endpoint)
}

// String implements fmt.Stringer for supervisor logs.
func (s *HubService) String() string {
	return s.endpoint.String()
}
