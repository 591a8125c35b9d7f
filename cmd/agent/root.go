package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/service"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agent",
		Short:         "Operator tool for Farcaster ingestion and persona runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(queue.TaskTypeIngest, "ingest", "Fetch casts and rebuild the activity snapshot"))
	root.AddCommand(newRunCmd(queue.TaskTypePersona, "persona", "Generate a persona from stored casts"))
	root.AddCommand(newRunCmd(queue.TaskTypePipeline, "pipeline", "Ingest then generate a persona"))
	root.AddCommand(newEnqueueCmd())
	root.AddCommand(newCreditsCmd())
	root.AddCommand(newResetCmd())

	return root
}

// withApp runs fn with a wired app and a context cancelled on SIGINT/SIGTERM.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

func parseFIDArg(s string) (int64, error) {
	fid, err := strconv.ParseInt(s, 10, 64)
	if err != nil || fid <= 0 {
		return 0, fmt.Errorf("invalid fid %q", s)
	}
	return fid, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runFailure prints what the service reported before returning the error.
func runFailure(cmd *cobra.Command, partial any, err error) error {
	if re, ok := service.AsRunError(err); ok {
		_ = printJSON(cmd, map[string]any{
			"phase":  re.Phase,
			"state":  re.State,
			"reason": re.Reason,
			"error":  re.Message(),
			"result": partial,
		})
	}
	return err
}
