package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tinystep/internal/store"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Generate and respond to tasks",
	}
	cmd.AddCommand(taskNextCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskReplyCmd())
	cmd.AddCommand(taskDoneCmd())
	return cmd
}

func taskNextCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Pick an eligible goal and generate the next task",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			uid := currentUserID()
			if _, err := a.svc.GetOrCreateUser(cmd.Context(), uid, ""); err != nil {
				return err
			}

			task, err := a.svc.NextTask(cmd.Context(), uid, note)
			if err != nil {
				return err
			}
			if task == nil {
				fmt.Println("No goal is eligible right now.")
				return nil
			}

			fmt.Printf("Task %s\n", task.UID)
			if task.Goal != nil {
				fmt.Printf("Goal: %s\n", task.Goal.Path)
			}
			fmt.Printf("\n%s\n", task.Description)
			if len(task.Tags) > 0 {
				fmt.Printf("\nTags: %s\n", strings.Join(task.Tags, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "special note passed to task generation")
	return cmd
}

func taskListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generated tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.svc.GetOrCreateUser(cmd.Context(), currentUserID(), "")
			if err != nil {
				return err
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(user.Tasks, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			if len(user.Tasks) == 0 {
				fmt.Println("No tasks yet.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "UID\tGOAL\tREPLY\tDESCRIPTION\n")
			for _, t := range user.Tasks {
				goal := "-"
				if t.Goal != nil {
					goal = t.Goal.Path
				}
				reply := "-"
				if t.Reply != nil {
					reply = string(t.Reply.Type)
				}
				desc := t.Description
				if len(desc) > 60 {
					desc = desc[:57] + "..."
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortUID(t.UID), goal, reply, desc)
			}
			tw.Flush()
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func taskReplyCmd() *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "reply [taskUid] [accept|reject|later]",
		Short: "Record a verdict on a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			reply, err := a.svc.Reply(cmd.Context(), currentUserID(), args[0], store.ReplyType(args[1]), comment)
			if err != nil {
				return err
			}
			fmt.Printf("Recorded %s reply for task %s\n", reply.Type, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "free-form comment stored with the reply")
	return cmd
}

func taskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done [goalPath]",
		Short: "Mark a goal as completed so it stops producing tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.MarkDone(cmd.Context(), currentUserID(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Marked %q done\n", args[0])
			return nil
		},
	}
}

func shortUID(uid string) string {
	if len(uid) > 8 {
		return uid[:8]
	}
	return uid
}
