// cmd_list.go - list Command
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/7blacky7/xinfer/backends"
	"github.com/7blacky7/xinfer/model"
)

// ListHandler - Listet alle registrierten Modelle auf
func ListHandler(cmd *cobra.Command, args []string) error {
	r := model.NewRegistry()
	if err := backends.RegisterAll(r); err != nil {
		return err
	}
	r.Seal()

	backend, _ := cmd.Flags().GetString("backend")
	ioKind, _ := cmd.Flags().GetString("io")

	entries := r.ListModels(model.FilterBackend(backend), model.FilterIO(model.InputOutput(ioKind)))

	var data [][]string
	for _, e := range entries {
		if len(args) == 0 || strings.Contains(strings.ToLower(e.ModelID), strings.ToLower(args[0])) {
			data = append(data, []string{e.ModelID, e.Backend, e.IO.String()})
		}
	}

	out := cmd.OutOrStdout()
	if f, ok := out.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return writePlain(out, data)
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"MODEL", "BACKEND", "INPUT --> OUTPUT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

// writePlain schreibt tab-getrennte Zeilen fuer Pipes
func writePlain(w io.Writer, rows [][]string) error {
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func newListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:     "list [FILTER]",
		Aliases: []string{"ls"},
		Short:   "List registered models",
		Args:    cobra.MaximumNArgs(1),
		RunE:    ListHandler,
	}

	listCmd.Flags().String("backend", "", "Only show models of this backend")
	listCmd.Flags().String("io", "", `Only show models with this input/output kind (e.g. "image --> text")`)
	return listCmd
}
