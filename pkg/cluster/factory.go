package cluster

import (
	"fmt"
	"sync"
	"time"

	"github.com/isitobservable/kube-health-mcp/pkg/k8s"
)

// Options configure every provider the factory builds.
type Options struct {
	Kubeconfig    string
	KubectlPath   string
	MetricsSource string
	Timeout       time.Duration
}

// ClientsFunc builds API clients for a kube context.
type ClientsFunc func(kubeconfig, kubeContext string) (*k8s.Clients, error)

// Factory hands out one Provider per kube context and caches it for later requests.
// The empty context is the kubeconfig's current context.
type Factory struct {
	opts       Options
	newClients ClientsFunc

	mu        sync.Mutex
	providers map[string]Provider
}

// NewFactory creates a factory. A nil newClients uses k8s.NewClients.
func NewFactory(opts Options, newClients ClientsFunc) *Factory {
	if newClients == nil {
		newClients = k8s.NewClients
	}
	return &Factory{
		opts:       opts,
		newClients: newClients,
		providers:  make(map[string]Provider),
	}
}

// For returns the provider for kubeContext, building it on first use.
func (f *Factory) For(kubeContext string) (Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.providers[kubeContext]; ok {
		return p, nil
	}
	clients, err := f.newClients(f.opts.Kubeconfig, kubeContext)
	if err != nil {
		return nil, fmt.Errorf("connecting to context %q: %w", kubeContext, err)
	}
	p := NewKubeProvider(clients, &Kubectl{
		Path:       f.opts.KubectlPath,
		Kubeconfig: f.opts.Kubeconfig,
		Context:    kubeContext,
		Timeout:    f.opts.Timeout,
	}, f.opts.MetricsSource)
	f.providers[kubeContext] = p
	return p, nil
}
