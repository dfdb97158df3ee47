package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/service"
)

const defaultDownloadTTL = time.Hour

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var owner, name string
	var process bool

	cmd := &cobra.Command{
		Use:   "submit <video>",
		Short: "Validate and store a video as a new job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			job, err := app.intake.Submit(runCtx, service.SubmitRequest{
				Owner:      owner,
				Filename:   name,
				SourcePath: args[0],
			})
			if job != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "job %s: %s\n", job.ID, job.Status.Label())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "input stored at %s\n", job.Input)
			if !process {
				return nil
			}

			observe, finish := progressObserver(cmd.ErrOrStderr(), job.ID)
			err = app.pipeline.Process(runCtx, job, observe)
			finish()
			if err != nil {
				return err
			}
			return printOutcome(cmd, app, job.ID)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", currentUser(), "Owner recorded on the job")
	cmd.Flags().StringVar(&name, "name", "", "File name to record (defaults to the file's base name)")
	cmd.Flags().BoolVar(&process, "process", false, "Run the pipeline right after submitting")
	return cmd
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "process <job-id>...",
		Short: "Run or resume the pipeline for jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			if len(args) == 1 {
				observe, finish := progressObserver(cmd.ErrOrStderr(), args[0])
				err := app.pipeline.ProcessByID(runCtx, args[0], observe)
				finish()
				if err != nil {
					return err
				}
				return printOutcome(cmd, app, args[0])
			}

			failed := service.NewWorkerPool(app.pipeline, app.events, workers).Run(runCtx, args)
			ids := make([]string, 0, len(failed))
			for id := range failed {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintf(cmd.ErrOrStderr(), "job %s failed: %v\n", id, failed[id])
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d jobs failed", len(failed), len(args))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d jobs completed\n", len(args))
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 2, "Jobs processed concurrently")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the state of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			return printOutcome(cmd, app, args[0])
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			jobs, err := app.intake.ListByOwner(owner)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No jobs for %s\n", owner)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderJobs(jobs))
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", currentUser(), "Owner whose jobs are listed")
	return cmd
}

func renderJobs(jobs []*domain.Job) string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		output := ""
		if !job.Output.IsZero() {
			output = job.Output.String()
		}
		rows = append(rows, []string{
			job.ID,
			job.OriginalName,
			job.Status.Label(),
			strconv.Itoa(job.Progress) + "%",
			humanize.Time(job.CreatedAt),
			output,
		})
	}
	return renderTable(
		[]string{"ID", "File", "Status", "Progress", "Created", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

// printOutcome prints the job's status and, once completed, where to fetch
// the result.
func printOutcome(cmd *cobra.Command, app *application, id string) error {
	view, err := app.intake.Status(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("job %s not found", id)
		}
		return err
	}

	rows := [][]string{
		{"Status", view.Label},
		{"Progress", strconv.Itoa(view.Progress) + "%"},
	}
	if view.Error != "" {
		rows = append(rows, []string{"Error", view.Error})
	}
	if view.Completed {
		job, err := app.intake.Get(id)
		if err != nil {
			return err
		}
		url, err := app.intake.DownloadURL(cmd.Context(), job, defaultDownloadTTL)
		if err != nil {
			return err
		}
		rows = append(rows, []string{"Download", url})
		if job.OutputMetadata != nil {
			rows = append(rows, []string{"Duration", domain.FormatDuration(job.OutputMetadata.Duration)})
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Job %s\n%s\n", view.ID, renderTable([]string{"Field", "Value"}, rows, nil))
	return nil
}

func currentUser() string {
	for _, key := range []string{"VIDEOFACTORY_OWNER", "USER", "USERNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "local"
}
