package service

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/vocdoni/zk-census/api"
	"github.com/vocdoni/zk-census/log"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	conf api.APIConfig
	api  *api.API
	mu   sync.Mutex
}

// NewAPI creates a new APIService instance.
func NewAPI(conf *api.APIConfig) *APIService {
	return &APIService{conf: *conf}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(_ context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api != nil {
		return fmt.Errorf("service already running")
	}
	var err error
	as.api, err = api.New(&as.conf)
	if err != nil {
		as.api = nil
		return fmt.Errorf("failed to start API server: %w", err)
	}
	return nil
}

// Stop halts the API server, waiting a few seconds for the ongoing
// requests.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := as.api.Close(ctx); err != nil {
		log.Warnw("API server did not stop cleanly", "error", err.Error())
	}
	as.api = nil
}

// HostPort returns the host and port of the API server. While running, the
// port is the one actually bound.
func (as *APIService) HostPort() (string, int) {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api == nil {
		return as.conf.Host, as.conf.Port
	}
	host, port, err := net.SplitHostPort(as.api.Addr().String())
	if err != nil {
		return as.conf.Host, as.conf.Port
	}
	p, _ := strconv.Atoi(port)
	return host, p
}
