package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tinystep/internal/outline"
)

func docsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage the goals document",
	}
	cmd.AddCommand(docsShowCmd())
	cmd.AddCommand(docsSaveCmd())
	cmd.AddCommand(docsIndexCmd())
	cmd.AddCommand(docsRandomizeCmd())
	return cmd
}

func docsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current goals document",
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
			fmt.Println(user.Doc.Content)
			return nil
		},
	}
}

func docsSaveCmd() *cobra.Command {
	var tz string
	cmd := &cobra.Command{
		Use:   "save [file]",
		Short: "Save a goals document from a file (or stdin with \"-\")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var content []byte
			var err error
			if args[0] == "-" {
				content, err = os.ReadFile("/dev/stdin")
			} else {
				content, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.svc.GetOrCreateUser(cmd.Context(), currentUserID(), tz)
			if err != nil {
				return err
			}

			doc, err := a.svc.SaveDocument(cmd.Context(), user.UID, user.Doc.UID, string(content))
			if err != nil {
				return err
			}
			fmt.Printf("Saved document %s (%d nodes)\n", doc.UID, len(doc.Index))
			return nil
		},
	}
	cmd.Flags().StringVar(&tz, "timezone", "", "IANA timezone for a newly created user")
	return cmd
}

func docsIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Print the indexed goal tree with resolved recurrence rules",
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

			printIndex(user.Doc.Index)
			return nil
		},
	}
}

func docsRandomizeCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "randomize",
		Short: "Generate a fresh goals document for a random persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			uid := currentUserID()
			user, err := a.svc.GetOrCreateUser(cmd.Context(), uid, "")
			if err != nil {
				return err
			}

			content, err := a.svc.RandomizeDoc(cmd.Context(), uid)
			if err != nil {
				return err
			}

			if !save {
				fmt.Println(content)
				return nil
			}
			doc, err := a.svc.SaveDocument(cmd.Context(), uid, user.Doc.UID, content)
			if err != nil {
				return err
			}
			fmt.Printf("Saved generated document %s (%d nodes)\n", doc.UID, len(doc.Index))
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "replace the stored document with the generated one")
	return cmd
}

func printIndex(idx outline.Index) {
	paths := make([]string, 0, len(idx))
	for p := range idx {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "PATH\tKIND\tRULE\tDONE\n")
	for _, p := range paths {
		n := idx[p]
		kind := "category"
		if n.IsItem() {
			kind = fmt.Sprintf("item(%d)", n.ListDepth)
		}
		rule := strings.ReplaceAll(n.RRule, "\n", " ")
		if rule == "" {
			rule = "-"
		}
		done := "-"
		if n.DoneAt != nil {
			done = n.DoneAt.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p, kind, rule, done)
	}
	tw.Flush()
}
