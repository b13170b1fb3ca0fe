package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/podlove/outliner/internal/eventstore"
)

var replayCmd = &cobra.Command{
	Use:   "replay <container-id>",
	Short: "Dump a container's event log in sequence order",
	Long: `replay reads the append-only event log internal/eventstore maintains
for one container and prints every event in the order it was committed,
the same order a subscriber attached from sequence 0 would observe.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	containerID := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := eventstore.New().ListByContainer(context.Background(), store, containerID)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	colorize := isatty.IsTerminal(os.Stdout.Fd())
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("replay: marshal payload for seq %d: %w", ev.Sequence, err)
		}
		age := humanize.Time(ev.CreatedAt)
		if colorize {
			fmt.Printf("\033[36m#%-6d\033[0m %-28s \033[90m%s\033[0m (%s) %s\n", ev.Sequence, ev.EventType, ev.EventID, age, payload)
		} else {
			fmt.Printf("#%-6d %-28s %s (%s) %s\n", ev.Sequence, ev.EventType, ev.EventID, age, payload)
		}
	}
	fmt.Fprintf(os.Stderr, "%s: %d events\n", containerID, len(events))
	return nil
}
