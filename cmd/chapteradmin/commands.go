package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/chapterhub/internal/app/system/tasks"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"github.com/dalemusser/chapterhub/internal/app/system/workers"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/spf13/cobra"
)

type opener func(cmd *cobra.Command) (*env, error)

// withEnv opens the env, runs fn under the batch timeout and closes it.
func withEnv(open opener, fn func(ctx context.Context, e *env) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := open(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.Batch())
		defer cancel()
		return fn(ctx, e)
	}
}

func parseMonth(s string) (*models.Period, error) {
	if s == "" {
		return nil, nil
	}
	p, err := models.ParseMonth(s)
	if err != nil {
		return nil, fmt.Errorf("--month: %w", err)
	}
	return &p, nil
}

func prayerCommand(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prayer",
		Short: "Prayer rotation: initial generation and monthly rotation",
	}

	var genMonth string
	var genPreview bool
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Create the first month of prayer assignments",
		Args:  cobra.NoArgs,
		RunE: withEnv(open, func(ctx context.Context, e *env) error {
			month, err := parseMonth(genMonth)
			if err != nil {
				return err
			}
			p := e.svc.Rotation.CurrentPeriod()
			if month != nil {
				p = *month
			}
			if genPreview {
				pv, err := e.svc.Rotation.PreviewInitial(ctx, p)
				if err != nil {
					return err
				}
				return writeJSON(e.out, pv)
			}
			res, err := e.svc.Rotation.GenerateInitial(ctx, p)
			if err != nil {
				return err
			}
			return writeJSON(e.out, res)
		}),
	}
	generate.Flags().StringVar(&genMonth, "month", "", "target month (YYYY-MM), default current month")
	generate.Flags().BoolVar(&genPreview, "preview", false, "print the assignments without writing them")

	var rotMonth string
	var rotPreview bool
	rotate := &cobra.Command{
		Use:   "rotate",
		Short: "Rotate prayer buckets into a new month",
		Args:  cobra.NoArgs,
		RunE: withEnv(open, func(ctx context.Context, e *env) error {
			month, err := parseMonth(rotMonth)
			if err != nil {
				return err
			}
			if rotPreview {
				pv, err := e.svc.Rotation.PreviewRotation(ctx, month)
				if err != nil {
					return err
				}
				return writeJSON(e.out, pv)
			}
			res, err := e.svc.Rotation.RotateBuckets(ctx, month)
			if err != nil {
				return err
			}
			return writeJSON(e.out, res)
		}),
	}
	rotate.Flags().StringVar(&rotMonth, "month", "", "target month (YYYY-MM), default current month")
	rotate.Flags().BoolVar(&rotPreview, "preview", false, "print the rotation without writing it")

	cmd.AddCommand(generate, rotate)
	return cmd
}

func communicationCommand(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "communication",
		Aliases: []string{"comm"},
		Short:   "Communication assignments: initial generation and auto-transfer",
	}

	var genPreview bool
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Give every active member a communication owner",
		Args:  cobra.NoArgs,
		RunE: withEnv(open, func(ctx context.Context, e *env) error {
			if genPreview {
				rows, err := e.svc.Transfer.PreviewInitial(ctx)
				if err != nil {
					return err
				}
				return writeJSON(e.out, map[string]any{"rows": rows})
			}
			res, err := e.svc.Transfer.GenerateInitial(ctx)
			if err != nil {
				return err
			}
			return writeJSON(e.out, res)
		}),
	}
	generate.Flags().BoolVar(&genPreview, "preview", false, "print the assignments without writing them")

	var threshold int
	var autoPreview bool
	auto := &cobra.Command{
		Use:   "auto-transfer",
		Short: "Move unresponsive communication assignments to another committee member",
		Args:  cobra.NoArgs,
		RunE: withEnv(open, func(ctx context.Context, e *env) error {
			var days *int
			if threshold != 0 {
				if threshold < 0 {
					return fmt.Errorf("--threshold must be positive, got %d", threshold)
				}
				days = &threshold
			}
			if autoPreview {
				pv, err := e.svc.Transfer.PreviewAutoTransfers(ctx, days)
				if err != nil {
					return err
				}
				return writeJSON(e.out, pv)
			}
			res, err := e.svc.Transfer.ProcessAutoTransfers(ctx, days)
			if err != nil {
				return err
			}
			return writeJSON(e.out, res)
		}),
	}
	auto.Flags().IntVar(&threshold, "threshold", 0, "days without success before transfer, default from settings")
	auto.Flags().BoolVar(&autoPreview, "preview", false, "print the transfers without making them")

	cmd.AddCommand(generate, auto)
	return cmd
}

func runJobCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:       "run-job <auto-transfer|prayer-rotation>",
		Short:     "Run one scheduled job now, exactly as the scheduler would",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"auto-transfer", "prayer-rotation"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			jobs := e.svc.Jobs(e.log, timeouts.Batch())
			var job *tasks.Job
			for i := range jobs {
				if jobs[i].Name == args[0] {
					job = &jobs[i]
				}
			}
			if job == nil {
				return fmt.Errorf("unknown job %q", args[0])
			}

			sched := workers.NewScheduler(jobs, e.log, workers.Options{Timeout: timeouts.Batch(), Metrics: e.svc.Metrics})
			err = sched.RunOnce(*job)
			switch {
			case errors.Is(err, tasks.ErrNotDue):
				fmt.Fprintf(e.out, "%s: not due\n", job.Name)
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(e.out, "%s: ok\n", job.Name)
			return nil
		},
	}
}
