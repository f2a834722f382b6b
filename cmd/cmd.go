// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/7blacky7/xinfer/envconfig"
	"github.com/7blacky7/xinfer/version"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-32s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "xinfer",
		Short:         "Unified inference for computer vision models",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "xinfer version is %s\n", version.Version)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	serveCmd := newServeCmd()
	listCmd := newListCmd()
	inferCmd := newInferCmd()

	envVars := envconfig.AsMap()
	backendEnvs := []envconfig.EnvVar{
		envVars["XINFER_DEVICE"],
		envVars["XINFER_DTYPE"],
		envVars["HF_TOKEN"],
		envVars["HF_ENDPOINT"],
		envVars["HF_INFERENCE_ENDPOINT"],
		envVars["ULTRALYTICS_API_KEY"],
		envVars["XINFER_ULTRALYTICS_URL"],
		envVars["XINFER_TORCHSERVE_URL"],
		envVars["XINFER_TORCHSERVE_MANAGEMENT_URL"],
		envVars["XINFER_OLLAMA_HOST"],
		envVars["XINFER_OLLAMA_PULL"],
	}

	appendEnvDocs(serveCmd, append([]envconfig.EnvVar{
		envVars["XINFER_DEBUG"],
		envVars["XINFER_HOST"],
		envVars["XINFER_ORIGINS"],
		envVars["XINFER_BATCH_CONCURRENCY"],
		envVars["XINFER_LOCAL_IMAGES"],
	}, backendEnvs...))
	appendEnvDocs(inferCmd, append([]envconfig.EnvVar{
		envVars["XINFER_DEBUG"],
		envVars["XINFER_BATCH_CONCURRENCY"],
	}, backendEnvs...))

	rootCmd.AddCommand(
		serveCmd,
		listCmd,
		inferCmd,
	)

	return rootCmd
}
