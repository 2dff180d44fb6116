package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/vectorconf/composer/internal/compose"
	"github.com/obsidianstack/vectorconf/composer/internal/config"
	"github.com/obsidianstack/vectorconf/composer/internal/manifest"
)

const defaultConfigMapName = "vector"

func newRenderCmd() *cobra.Command {
	var (
		valuesPath string
		outPath    string
		configMap  bool
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the agent configuration document",
		Long: `Render composes the Vector configuration described by a values file.

Example:
  vectorconf render -f values.yaml -o vector.yaml
  vectorconf render -f values.yaml --configmap --watch -o configmap.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.Load(valuesPath)
			if err != nil {
				return err
			}
			slog.Info("values loaded",
				"path", valuesPath,
				"ingress", v.Ingress.Enabled,
				"metrics_exporter", v.MetricsExporter.Enabled,
				"api", v.API.Enabled,
				"topology", !v.Topology.Empty(),
			)

			if err := renderTo(cmd.OutOrStdout(), outPath, v, configMap); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return watchAndRender(ctx, cmd.OutOrStdout(), valuesPath, outPath, configMap)
		},
	}

	cmd.Flags().StringVarP(&valuesPath, "values", "f", "values.yaml", "path to values file")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&configMap, "configmap", false, "wrap the document in a Kubernetes ConfigMap")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-render whenever the values file changes")
	return cmd
}

// watchAndRender re-renders on every valid change of valuesPath until ctx is
// cancelled. A failed render keeps the previous output in place.
func watchAndRender(ctx context.Context, stdout io.Writer, valuesPath, outPath string, configMap bool) error {
	err := config.Watch(ctx, valuesPath, func(v *config.Values) {
		if err := renderTo(stdout, outPath, v, configMap); err != nil {
			slog.Error("render failed, keeping previous output", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", valuesPath, err)
	}
	slog.Info("vectorconf shutting down")
	return nil
}

// renderDocument composes v and, when requested by flag or values, wraps it
// in a ConfigMap.
func renderDocument(v *config.Values, configMap bool) ([]byte, error) {
	doc, err := compose.Compose(v)
	if err != nil {
		return nil, err
	}
	if !configMap && !v.Output.ConfigMap.Enabled {
		return doc, nil
	}

	out := v.Output.ConfigMap
	if out.Name == "" {
		out.Name = defaultConfigMapName
	}
	return manifest.Render(out, doc)
}

func renderTo(stdout io.Writer, outPath string, v *config.Values, configMap bool) error {
	data, err := renderDocument(v, configMap)
	if err != nil {
		return err
	}
	if err := writeOutput(stdout, outPath, data); err != nil {
		return err
	}
	slog.Info("document rendered", "output", displayPath(outPath), "bytes", len(data))
	return nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
// Files are replaced atomically so a watching agent never reads a partial
// document.
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func displayPath(path string) string {
	if path == "" || path == "-" {
		return "stdout"
	}
	return path
}
