// cmd_infer.go - infer Command
// Laedt ein Modell lokal, fuehrt die Inferenz aus und gibt die Ausgaben als JSON aus
package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/7blacky7/xinfer/backends"
	"github.com/7blacky7/xinfer/envconfig"
	"github.com/7blacky7/xinfer/logutil"
	"github.com/7blacky7/xinfer/model"
)

// InferHandler - Fuehrt eine Inferenz ohne laufenden Server aus
func InferHandler(cmd *cobra.Command, args []string) error {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))

	r := model.NewRegistry()
	if err := backends.RegisterAll(r); err != nil {
		return err
	}
	r.Seal()

	backend, _ := cmd.Flags().GetString("backend")
	device, _ := cmd.Flags().GetString("device")
	dtype, _ := cmd.Flags().GetString("dtype")
	prompt, _ := cmd.Flags().GetString("prompt")
	rawOpts, _ := cmd.Flags().GetStringArray("option")
	showStats, _ := cmd.Flags().GetBool("stats")

	opts, err := parseOptions(rawOpts)
	if err != nil {
		return err
	}

	createOpts := []model.Option{model.WithBackend(backend), model.WithOptions(opts)}
	if device != "" {
		createOpts = append(createOpts, model.WithDevice(device))
	}
	if dtype != "" {
		createOpts = append(createOpts, model.WithDType(dtype))
	}

	m, err := r.CreateModel(cmd.Context(), args[0], createOpts...)
	if err != nil {
		return err
	}

	inputs := make([]model.Input, 0, len(args)-1)
	for _, src := range args[1:] {
		inputs = append(inputs, model.Input{Image: src, Prompt: prompt, Options: opts})
	}

	outputs, err := m.InferBatch(cmd.Context(), inputs)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	for i, out := range outputs {
		if err := enc.Encode(map[string]any{"image": args[i+1], "output": out}); err != nil {
			return err
		}
	}

	if showStats {
		m.Stats().Render(cmd.ErrOrStderr())
	}
	return nil
}

// parseOptions wandelt key=value Paare in eine Options-Map.
// Zahlen und Booleans werden erkannt, alles andere bleibt String.
func parseOptions(pairs []string) (map[string]any, error) {
	opts := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid option %q, expected key=value", p)
		}

		switch {
		case v == "true" || v == "false":
			opts[k] = v == "true"
		default:
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				opts[k] = n
			} else {
				opts[k] = v
			}
		}
	}
	return opts, nil
}

func newInferCmd() *cobra.Command {
	inferCmd := &cobra.Command{
		Use:   "infer MODEL IMAGE [IMAGE...]",
		Short: "Run a model on one or more images",
		Args:  cobra.MinimumNArgs(2),
		RunE:  InferHandler,
	}

	inferCmd.Flags().String("backend", "", "Backend to use when the model id is registered by several backends")
	inferCmd.Flags().String("device", "", "Device (cpu, cuda, mps)")
	inferCmd.Flags().String("dtype", "", "Data type (float32, float16, bfloat16)")
	inferCmd.Flags().StringP("prompt", "p", "", "Text prompt for image-text models")
	inferCmd.Flags().StringArrayP("option", "o", nil, "Backend option as key=value (repeatable)")
	inferCmd.Flags().Bool("stats", false, "Print inference statistics to stderr")
	return inferCmd
}
