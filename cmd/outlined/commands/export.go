package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/podlove/outliner/internal/render"
	"github.com/podlove/outliner/internal/repo"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <container-id>",
	Short: "Export a container's node tree to markdown",
	Long: `export renders a container's outline as nested markdown bullets with
a YAML frontmatter header (container_id, node_count, exported_at), the
read-side counterpart to the "show notes" the engine's purpose section
names.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	containerID := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	repository := repo.NewSQLiteRepository(store)
	nodes, err := repository.ListByContainer(context.Background(), containerID)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	doc, err := render.Markdown(containerID, nodes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if exportOut == "" {
		_, err = os.Stdout.Write(doc)
		return err
	}
	return os.WriteFile(exportOut, doc, 0644)
}
