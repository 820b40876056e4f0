package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sitetrack/internal/model"
	"sitetrack/internal/screen"
	"sitetrack/internal/validate"
)

func projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage construction projects",
	}
	cmd.AddCommand(projectsListCmd())
	cmd.AddCommand(projectsShowCmd())
	cmd.AddCommand(projectsCreateCmd())
	cmd.AddCommand(projectsUpdateCmd())
	cmd.AddCommand(projectsDeleteCmd())
	return cmd
}

func projectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your projects, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			w := newWaitSink()
			list := screen.NewProjectList(a.client, w.sink)
			list.Mount()
			if _, err := w.wait(screen.EventReady); err != nil {
				return err
			}
			projects := list.Projects()
			if len(projects) == 0 {
				fmt.Println("no projects yet")
				return nil
			}
			for _, p := range projects {
				fmt.Printf("%s  %s\n", p.ID, p.Name)
			}
			return nil
		},
	}
}

func projectsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			w := newWaitSink()
			scr := screen.NewProject(a.client, w.sink)
			scr.Mount(args[0])
			if _, err := w.wait(screen.EventReady); err != nil {
				return err
			}
			printProject(scr.Current())
			return nil
		},
	}
}

func printProject(p model.Project) {
	fmt.Printf("%s\n  id: %s\n", p.Name, p.ID)
	if p.Description != nil {
		fmt.Printf("  description: %s\n", *p.Description)
	}
	if p.Address != nil {
		fmt.Printf("  address: %s\n", *p.Address)
	}
	if p.StartDate != nil {
		fmt.Printf("  start: %s\n", *p.StartDate)
	}
	if p.EndDate != nil {
		fmt.Printf("  end: %s\n", *p.EndDate)
	}
	if p.Budget != nil {
		fmt.Printf("  budget: %.2f\n", *p.Budget)
	}
}

func projectFormFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "project name")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("address", "", "site address")
	cmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().String("budget", "", "budget")
}

func applyProjectFlags(cmd *cobra.Command, f *validate.ProjectForm) {
	set := map[string]*string{
		"name":        &f.Name,
		"description": &f.Description,
		"address":     &f.Address,
		"start":       &f.StartDate,
		"end":         &f.EndDate,
		"budget":      &f.Budget,
	}
	for flag, dst := range set {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetString(flag)
		}
	}
}

func projectsCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			w := newWaitSink()
			form := screen.NewProjectForm(a.client, a.guard, w.sink)
			form.Mount("")
			if _, err := w.wait(screen.EventReady); err != nil {
				return err
			}
			f := form.Form()
			applyProjectFlags(cmd, &f)
			form.Submit(f)
			if _, err := w.wait(screen.EventSaved); err != nil {
				return err
			}
			fmt.Println("project created")
			return nil
		},
	}
	projectFormFlags(cmd)
	return cmd
}

func projectsUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Edit a project; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			w := newWaitSink()
			form := screen.NewProjectForm(a.client, a.guard, w.sink)
			form.Mount(args[0])
			if _, err := w.wait(screen.EventReady); err != nil {
				return err
			}
			f := form.Form()
			applyProjectFlags(cmd, &f)
			form.Submit(f)
			if _, err := w.wait(screen.EventSaved); err != nil {
				return err
			}
			fmt.Println("project updated")
			return nil
		},
	}
	projectFormFlags(cmd)
	return cmd
}

func projectsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			w := newWaitSink()
			scr := screen.NewProject(a.client, w.sink)
			scr.Mount(args[0])
			if _, err := w.wait(screen.EventReady); err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes && !confirm(fmt.Sprintf("delete project %q?", scr.Current().Name)) {
				fmt.Println("aborted")
				return nil
			}
			scr.Delete()
			if _, err := w.wait(screen.EventNavigateBack); err != nil {
				return err
			}
			fmt.Println("project deleted")
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	return cmd
}

// confirm is the CLI's stand-in for the destructive-action dialog: the
// screens require the decision to happen before Delete is called.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
