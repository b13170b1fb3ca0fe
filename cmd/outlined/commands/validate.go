package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podlove/outliner/internal/mutator"
	"github.com/podlove/outliner/internal/repo"
)

var validateCmd = &cobra.Command{
	Use:   "validate <container-id>",
	Short: "Check a container's tree invariants",
	Long: `validate loads every node of a container and runs the full-tree
invariant validator, the one meant for test and debug use rather than the
incremental checks the live command path runs — the tool for catching a
corrupted tree after the fact.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	containerID := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	repository := repo.NewSQLiteRepository(store)
	nodes, err := repository.ListByContainer(context.Background(), containerID)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	issues := mutator.ValidateContainer(nodes)
	if len(issues) == 0 {
		fmt.Printf("%s: %d nodes, invariants hold\n", containerID, len(nodes))
		return nil
	}

	for _, issue := range issues {
		fmt.Println(issue.String())
	}
	return fmt.Errorf("validate: %d invariant violation(s) in %s", len(issues), containerID)
}
