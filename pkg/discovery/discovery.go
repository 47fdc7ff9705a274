package discovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"k8s.io/client-go/discovery"
)

// MetricsGroup is the API group served by metrics-server.
const MetricsGroup = "metrics.k8s.io"

// Features are the optional cluster APIs the tools depend on.
type Features struct {
	HasMetricsAPI bool
}

type OnChangeFunc func(Features)

// Discovery polls the API server's groups and reports feature changes.
type Discovery struct {
	client   discovery.DiscoveryInterface
	interval time.Duration
	onChange OnChangeFunc

	mu       sync.RWMutex
	features Features
	ready    bool
}

func New(client discovery.DiscoveryInterface, interval time.Duration, onChange OnChangeFunc) *Discovery {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Discovery{
		client:   client,
		interval: interval,
		onChange: onChange,
	}
}

func (d *Discovery) GetFeatures() Features {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.features
}

// IsReady reports whether at least one poll has succeeded.
func (d *Discovery) IsReady() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

// Start polls once synchronously, then every interval until ctx is done.
func (d *Discovery) Start(ctx context.Context) {
	d.poll()
	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.poll()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (d *Discovery) poll() {
	groups, err := d.client.ServerGroups()
	if err != nil {
		slog.Warn("discovery: failed to fetch server groups", "error", err)
		return
	}

	newFeatures := Features{}
	for _, group := range groups.Groups {
		if group.Name == MetricsGroup {
			newFeatures.HasMetricsAPI = true
		}
	}

	d.mu.Lock()
	changed := !d.ready || newFeatures != d.features
	d.features = newFeatures
	d.ready = true
	d.mu.Unlock()

	if changed {
		slog.Info("discovery: cluster features updated", "metricsAPI", newFeatures.HasMetricsAPI)
		if d.onChange != nil {
			d.onChange(newFeatures)
		}
	}
}
