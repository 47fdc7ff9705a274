package k8s

import (
	"fmt"

	"k8s.io/client-go/discovery"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

// Clients bundles the API clients used against one kube context.
type Clients struct {
	Clientset kubernetes.Interface
	Metrics   metricsclient.Interface
	Discovery discovery.DiscoveryInterface
	Context   string
}

// NewClients builds clients for kubeContext. With no explicit kubeconfig and no context,
// the in-cluster config is tried first.
func NewClients(kubeconfigPath, kubeContext string) (*Clients, error) {
	cfg, err := loadRESTConfig(kubeconfigPath, kubeContext)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}
	cfg.QPS = 30
	cfg.Burst = 60

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	metrics, err := metricsclient.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return &Clients{
		Clientset: clientset,
		Metrics:   metrics,
		Discovery: clientset.Discovery(),
		Context:   kubeContext,
	}, nil
}

func loadRESTConfig(kubeconfigPath, kubeContext string) (*rest.Config, error) {
	if kubeconfigPath == "" && kubeContext == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
	}
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		loadingRules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{}
	if kubeContext != "" {
		overrides.CurrentContext = kubeContext
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
}
