package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isitobservable/kube-health-mcp/pkg/audit"
	"github.com/isitobservable/kube-health-mcp/pkg/cluster"
	"github.com/isitobservable/kube-health-mcp/pkg/config"
	"github.com/isitobservable/kube-health-mcp/pkg/discovery"
	"github.com/isitobservable/kube-health-mcp/pkg/guard"
	"github.com/isitobservable/kube-health-mcp/pkg/k8s"
	mcpserver "github.com/isitobservable/kube-health-mcp/pkg/mcp"
	"github.com/isitobservable/kube-health-mcp/pkg/telemetry"
	"github.com/isitobservable/kube-health-mcp/pkg/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	// Initialize OpenTelemetry logs, tracer and meters
	logHandler, logsShutdown, err := telemetry.InitLogs(context.Background(), cfg.ClusterName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	if logHandler != nil {
		config.SetupLogging(cfg.LogLevel, logHandler)
	} else {
		config.SetupLogging(cfg.LogLevel)
	}

	slog.Info("starting kube-health-mcp server", "cluster", cfg.ClusterName, "port", cfg.Port)

	tracerShutdown, err := telemetry.InitTracer(context.Background(), cfg.ClusterName)
	if err != nil {
		slog.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	meterShutdown, err := telemetry.InitMeterProvider(context.Background(), cfg.ClusterName)
	if err != nil {
		slog.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}

	// Kubeconfig from the secrets file takes precedence over KUBECONFIG
	kubeconfig := cfg.Kubeconfig
	provisioned, err := k8s.ExtractKubeconfig(cfg.KubeconfigINIPath, cfg.TempDir)
	if err != nil {
		slog.Error("failed to provision kubeconfig", "path", cfg.KubeconfigINIPath, "error", err)
		os.Exit(1)
	}
	if provisioned != nil {
		kubeconfig = provisioned.Path
	}

	// Audit log: rotated file when AUDIT_LOG_PATH is set, stdout otherwise
	var auditLogger audit.Logger
	if cfg.AuditLogPath != "" {
		auditCfg := audit.DefaultConfig()
		auditCfg.Path = cfg.AuditLogPath
		auditLogger, err = audit.NewLogger(auditCfg)
		if err != nil {
			slog.Error("failed to open audit log", "path", cfg.AuditLogPath, "error", err)
			os.Exit(1)
		}
	} else {
		auditLogger = audit.NewStdoutLogger()
	}

	factory := cluster.NewFactory(cluster.Options{
		Kubeconfig:    kubeconfig,
		KubectlPath:   cfg.KubectlPath,
		MetricsSource: cfg.MetricsSource,
		Timeout:       cfg.ToolTimeout,
	}, nil)

	// Discovery runs against the default context
	clients, err := k8s.NewClients(kubeconfig, "")
	if err != nil {
		slog.Error("failed to create K8s clients", "error", err)
		os.Exit(1)
	}

	registry := tools.NewRegistry()
	base := tools.BaseTool{
		Cfg:       cfg,
		Providers: factory,
		Gate:      guard.NewGate(guard.NewFilter(), auditLogger),
	}
	registry.RegisterCore(base)

	srv := mcpserver.NewServer(registry, nil)

	memoryTool := &tools.GetNodesByMemoryTool{BaseTool: base}
	disc := discovery.New(clients.Discovery, cfg.DiscoveryInterval, func(features discovery.Features) {
		if features.HasMetricsAPI || cfg.MetricsSource == config.MetricsSourceKubectl {
			registry.Register(memoryTool)
		} else {
			slog.Warn("metrics.k8s.io not served, get_nodes_by_memory disabled")
			registry.Unregister(memoryTool.Name())
		}
		srv.SyncTools()
	})

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	disc.Start(ctx)

	// Health check endpoints
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	healthMux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !disc.IsReady() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "not ready: initial API discovery pending")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port+1),
		Handler:           healthMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("health check server listening", "addr", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	// Start MCP Streamable HTTP server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := srv.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("MCP server error", "error", err)
			stop()
		}
	}()

	slog.Info("server ready", "port", cfg.Port)

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}
	if err := auditLogger.Close(); err != nil {
		slog.Error("audit log close error", "error", err)
	}
	if err := provisioned.Cleanup(); err != nil {
		slog.Error("failed to remove temporary kubeconfig", "error", err)
	}

	// Flush pending OTel data before exit
	if err := tracerShutdown(shutdownCtx); err != nil {
		slog.Error("tracer shutdown error", "error", err)
	}
	if err := meterShutdown(shutdownCtx); err != nil {
		slog.Error("meter provider shutdown error", "error", err)
	}
	if err := logsShutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "log provider shutdown error: %v\n", err)
	}

	slog.Info("server stopped")
}
