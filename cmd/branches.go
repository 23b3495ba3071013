package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pdfhistory/internal/repository"
	"pdfhistory/internal/service"
)

func newBranchesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "branches",
		Short: "Print version branches grouped by original file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := openDatabase(ctx, appConfig.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := repository.NewFileVersionRepository(db).List(ctx)
			if err != nil {
				return err
			}
			groups := service.NewLineageIndex(records).GroupByOriginal()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(groups)
			}
			printBranches(cmd.OutOrStdout(), groups)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printBranches(w io.Writer, groups []service.HistoryGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "no files")
		return
	}

	for _, group := range groups {
		fmt.Fprintf(w, "%s\n", group.OriginalID)
		for _, branch := range group.Branches {
			if len(branch) == 0 {
				continue
			}
			leaf := branch[0]

			tools := make([]string, 0, len(leaf.ToolChain))
			for _, op := range leaf.ToolChain {
				tools = append(tools, op.ToolName)
			}
			chain := "original"
			if leaf.HasVersionHistory() {
				chain = strings.Join(tools, " > ")
			}

			fmt.Fprintf(w, "  v%d %s  %s  %s  (%d versions, %s)\n",
				leaf.VersionNumber,
				leaf.ID,
				leaf.Name,
				humanize.IBytes(uint64(leaf.Size)),
				len(branch),
				chain,
			)
		}
	}
}
