package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tinystep/internal/cron"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage scheduled task generation jobs",
	}
	cmd.AddCommand(jobsAddCmd())
	cmd.AddCommand(jobsListCmd())
	cmd.AddCommand(jobsRunCmd())
	cmd.AddCommand(jobsToggleCmd())
	cmd.AddCommand(jobsDeleteCmd())
	return cmd
}

func jobsAddCmd() *cobra.Command {
	var expr, note, name string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Schedule periodic task generation for the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.newCronService(cmd.Context())
			if err := svc.Start(); err != nil {
				return err
			}
			defer svc.Stop()

			if expr == "" {
				expr = a.cfg.Schedule.Cron
			}
			if name == "" {
				name = "tasks for " + currentUserID()
			}
			job, err := svc.AddJob(name, cron.Schedule{Kind: "cron", Expr: expr}, currentUserID(), note)
			if err != nil {
				return err
			}
			fmt.Printf("Added job %s (%s)\n", job.ID, expr)
			return nil
		},
	}
	cmd.Flags().StringVar(&expr, "cron", "", "5-field cron expression (default from config, \"0 9 * * *\")")
	cmd.Flags().StringVar(&note, "note", "", "note passed to every generated task")
	cmd.Flags().StringVar(&name, "name", "", "job name")
	return cmd
}

func jobsListCmd() *cobra.Command {
	var jsonOutput bool
	var showDisabled bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.newCronService(cmd.Context())
			if err := svc.Start(); err != nil {
				return err
			}
			defer svc.Stop()

			printJobs(svc.ListJobs(showDisabled), jsonOutput)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&showDisabled, "all", false, "include disabled jobs")
	return cmd
}

func jobsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [jobId]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.newCronService(cmd.Context())
			if err := svc.Start(); err != nil {
				return err
			}
			defer svc.Stop()

			ran, result, err := svc.RunJob(args[0], true)
			if err != nil {
				return err
			}
			if !ran {
				fmt.Println("Job did not run:", result)
				return nil
			}
			fmt.Println(result)
			return nil
		},
	}
}

func jobsToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [jobId] [true|false]",
		Short: "Enable or disable a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled := args[1] == "true" || args[1] == "1" || args[1] == "on"

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.newCronService(cmd.Context())
			if err := svc.Start(); err != nil {
				return err
			}
			defer svc.Stop()

			if err := svc.EnableJob(args[0], enabled); err != nil {
				return err
			}
			fmt.Printf("Job %s enabled=%v\n", args[0], enabled)
			return nil
		},
	}
}

func jobsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [jobId]",
		Short: "Delete a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.newCronService(cmd.Context())
			if err := svc.Start(); err != nil {
				return err
			}
			defer svc.Stop()

			if err := svc.RemoveJob(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted job %s\n", args[0])
			return nil
		},
	}
}

func printJobs(jobs []cron.Job, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.MarshalIndent(jobs, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs configured.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tNAME\tUSER\tENABLED\tSCHEDULE\tLAST RUN\n")
	for _, j := range jobs {
		schedule := j.Schedule.Kind
		if j.Schedule.Expr != "" {
			schedule = j.Schedule.Expr
		} else if j.Schedule.EveryMS != nil {
			d := time.Duration(*j.Schedule.EveryMS) * time.Millisecond
			schedule = "every " + d.String()
		}

		lastRun := "never"
		if j.State.LastRunAtMS != nil {
			lastRun = time.UnixMilli(*j.State.LastRunAtMS).Format(time.DateTime)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%s\t%s\n",
			shortUID(j.ID), j.Name, j.Payload.UserID, j.Enabled, schedule, lastRun)
	}
	tw.Flush()
}
