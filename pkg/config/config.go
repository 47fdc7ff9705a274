package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Metrics sources for get_nodes_by_memory.
const (
	MetricsSourceAPI     = "api"
	MetricsSourceKubectl = "kubectl"
)

type Config struct {
	ClusterName            string        `mapstructure:"cluster_name"`
	Port                   int           `mapstructure:"port"`
	LogLevel               string        `mapstructure:"log_level"`
	Namespace              string        `mapstructure:"namespace"`
	ToolTimeout            time.Duration `mapstructure:"tool_timeout"`
	Kubeconfig             string        `mapstructure:"kubeconfig"`
	KubeconfigINIPath      string        `mapstructure:"kubeconfig_ini_path"`
	TempDir                string        `mapstructure:"mcp_temp_dir"`
	KubectlPath            string        `mapstructure:"kubectl_path"`
	LogTailLines           int64         `mapstructure:"log_tail_lines"`
	MemoryThresholdPercent int           `mapstructure:"memory_threshold_percent"`
	MetricsSource          string        `mapstructure:"metrics_source"`
	AuditLogPath           string        `mapstructure:"audit_log_path"`
	DiscoveryInterval      time.Duration `mapstructure:"discovery_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cluster_name", "")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("namespace", "default")
	v.SetDefault("tool_timeout", 30*time.Second)
	v.SetDefault("kubeconfig", "")
	v.SetDefault("kubeconfig_ini_path", "/vault/secrets/kubectl.ini")
	v.SetDefault("mcp_temp_dir", "")
	v.SetDefault("kubectl_path", "kubectl")
	v.SetDefault("log_tail_lines", 50)
	v.SetDefault("memory_threshold_percent", 80)
	v.SetDefault("metrics_source", MetricsSourceAPI)
	v.SetDefault("audit_log_path", "")
	v.SetDefault("discovery_interval", 60*time.Second)
}

// Load reads configuration from the environment and, when CONFIG_FILE is set, from that
// YAML file. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ClusterName == "" {
		return errors.New("CLUSTER_NAME environment variable is required")
	}
	if c.MemoryThresholdPercent < 0 || c.MemoryThresholdPercent > 100 {
		return fmt.Errorf("MEMORY_THRESHOLD_PERCENT must be between 0 and 100, got %d", c.MemoryThresholdPercent)
	}
	if c.LogTailLines < 1 {
		return fmt.Errorf("LOG_TAIL_LINES must be positive, got %d", c.LogTailLines)
	}
	switch c.MetricsSource {
	case MetricsSourceAPI, MetricsSourceKubectl:
	default:
		return fmt.Errorf("METRICS_SOURCE must be %q or %q, got %q", MetricsSourceAPI, MetricsSourceKubectl, c.MetricsSource)
	}
	return nil
}
