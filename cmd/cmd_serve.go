// cmd_serve.go - serve Command
package cmd

import (
	"net"

	"github.com/spf13/cobra"

	"github.com/7blacky7/xinfer/envconfig"
	"github.com/7blacky7/xinfer/server"
)

// RunServer - Startet den HTTP-Server auf XINFER_HOST
func RunServer(_ *cobra.Command, _ []string) error {
	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	return server.Serve(ln)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the inference server",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}
}
