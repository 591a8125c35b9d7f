package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/service"
)

func newRunCmd(kind queue.TaskType, use, short string) *cobra.Command {
	var (
		all   bool
		force bool
	)
	cmd := &cobra.Command{
		Use:   use + " [fid]",
		Short: short,
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("pass either a fid or --all")
			}
			if !all && len(args) != 1 {
				return errors.New("a fid is required unless --all is set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if all {
					summary, err := a.batchRunner(kind, force).RunAll(ctx, kind)
					if err != nil && summary == nil {
						return err
					}
					if printErr := printJSON(cmd, summary); printErr != nil {
						return printErr
					}
					if summary.QuotaExceeded {
						return errors.New("daily credit budget exhausted")
					}
					return err
				}

				fid, err := parseFIDArg(args[0])
				if err != nil {
					return err
				}
				return runOne(ctx, cmd, a, kind, fid, force)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "run for every registered user with a fid")
	if kind == queue.TaskTypePersona {
		cmd.Flags().BoolVar(&force, "force", false, "with --all, regenerate personas that are still current")
	} else {
		cmd.Flags().BoolVar(&force, "force", false, "ignore the freshness cooldown and regenerate current personas")
	}
	return cmd
}

func runOne(ctx context.Context, cmd *cobra.Command, a *app, kind queue.TaskType, fid int64, force bool) error {
	opts := service.IngestOptions{Force: force}
	switch kind {
	case queue.TaskTypeIngest:
		res, err := a.services.Ingestion().Run(ctx, fid, opts)
		if err != nil {
			return runFailure(cmd, res, err)
		}
		return printJSON(cmd, res)
	case queue.TaskTypePersona:
		res, err := a.services.Persona().Generate(ctx, fid)
		if err != nil {
			return runFailure(cmd, res, err)
		}
		return printJSON(cmd, res)
	case queue.TaskTypePipeline:
		res, err := a.services.Pipeline().Run(ctx, fid, opts)
		if err != nil {
			return runFailure(cmd, res, err)
		}
		return printJSON(cmd, res)
	default:
		return fmt.Errorf("unknown task type %q", kind)
	}
}

func newEnqueueCmd() *cobra.Command {
	var (
		task  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "enqueue <fid>",
		Short: "Queue a run for the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fid, err := parseFIDArg(args[0])
			if err != nil {
				return err
			}
			taskType, err := queue.ParseTaskType(task)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				msgID, err := a.services.Tasks().Enqueue(ctx, taskType, fid, force)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]string{"task": string(taskType), "message_id": msgID})
			})
		},
	}
	cmd.Flags().StringVar(&task, "task", string(queue.TaskTypePipeline), "ingest|persona|pipeline")
	cmd.Flags().BoolVar(&force, "force", false, "ignore the freshness cooldown")
	return cmd
}

func newCreditsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "credits",
		Short: "Show the configured daily credit budget",
		Long:  "Show the daily credit budget. Each process keeps its own count, so a fresh CLI run reports its own usage only.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app) error {
				return printJSON(cmd, a.services.Credits().Status())
			})
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <fid>",
		Short: "Delete a user's casts, snapshot and personas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fid, err := parseFIDArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.services.Data().Reset(ctx, fid)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
}
