package k8s

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"k8s.io/client-go/tools/clientcmd"
)

// kubeconfigMarker is where the embedded kubeconfig starts inside a secrets INI file.
var kubeconfigMarker = []byte("apiVersion: v1")

// ErrNoKubeconfig means the INI file holds no embedded kubeconfig.
var ErrNoKubeconfig = errors.New("no kubeconfig found in secrets file")

// ProvisionedKubeconfig is a temporary kubeconfig file extracted from a secrets file.
type ProvisionedKubeconfig struct {
	Path string
}

// Cleanup removes the temporary file.
func (p *ProvisionedKubeconfig) Cleanup() error {
	if p == nil || p.Path == "" {
		return nil
	}
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	slog.Info("k8s: cleaned up temporary kubeconfig", "path", p.Path)
	return nil
}

// ExtractKubeconfig reads iniPath, keeps everything from "apiVersion: v1" onwards, checks
// it parses as a kubeconfig and writes it to a temp file in tempDir (os.TempDir when empty).
// A missing iniPath returns (nil, nil): the default kubeconfig resolution applies.
func ExtractKubeconfig(iniPath, tempDir string) (*ProvisionedKubeconfig, error) {
	content, err := os.ReadFile(iniPath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("k8s: secrets file not found, using default kubectl configuration", "path", iniPath)
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", iniPath, err)
	}

	start := bytes.Index(content, kubeconfigMarker)
	if start == -1 {
		return nil, fmt.Errorf("%w: %s", ErrNoKubeconfig, iniPath)
	}
	kubeconfig := content[start:]

	if _, err := clientcmd.Load(kubeconfig); err != nil {
		return nil, fmt.Errorf("parsing kubeconfig from %s: %w", iniPath, err)
	}

	f, err := os.CreateTemp(tempDir, "kubeconfig-*.yaml")
	if err != nil {
		return nil, fmt.Errorf("creating temporary kubeconfig: %w", err)
	}
	if err := writeSecretFile(f, kubeconfig); err != nil {
		return nil, err
	}

	slog.Info("k8s: kubeconfig written to temporary file", "path", f.Name(), "source", iniPath)
	return &ProvisionedKubeconfig{Path: f.Name()}, nil
}

// writeSecretFile restricts f to its owner, writes data and closes it. On any failure the
// file is removed so no credentials are left behind.
func writeSecretFile(f *os.File, data []byte) (err error) {
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if err := f.Chmod(0o600); err != nil {
		return fmt.Errorf("securing temporary kubeconfig: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing temporary kubeconfig: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temporary kubeconfig: %w", err)
	}
	return nil
}
