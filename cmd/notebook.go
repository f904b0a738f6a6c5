package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var notebookWorkspace string

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Summarize a workspace as a three-part narrative",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromConfig()
		if err != nil {
			return err
		}
		defer a.Close()

		spinner := getSpinner(" Synthesizing...")
		overview, err := a.insights.Overview(context.Background(), notebookWorkspace)
		spinner.Finish()
		if err != nil {
			return err
		}

		fmt.Println()
		for _, act := range []string{overview.Narrative.Act1, overview.Narrative.Act2, overview.Narrative.Act3} {
			fmt.Printf("%s\n\n", act)
		}
		if len(overview.SuggestedQuestions) > 0 {
			color.Yellow("Suggested questions:")
			for _, q := range overview.SuggestedQuestions {
				fmt.Printf("  - %s\n", q)
			}
		}
		return nil
	},
}

var mindMapCmd = &cobra.Command{
	Use:   "mindmap",
	Short: "Outline a workspace's main themes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromConfig()
		if err != nil {
			return err
		}
		defer a.Close()

		spinner := getSpinner(" Mapping concepts...")
		mindMap, err := a.insights.MindMap(context.Background(), notebookWorkspace)
		spinner.Finish()
		if err != nil {
			return err
		}

		fmt.Println()
		color.Cyan(mindMap.Central)
		for _, b := range mindMap.Branches {
			color.Green("├── %s", b.Name)
			for _, c := range b.Children {
				fmt.Printf("│   └── %s\n", c)
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{overviewCmd, mindMapCmd} {
		c.Flags().StringVarP(&notebookWorkspace, "workspace", "w", "", "Workspace ID (required)")
		_ = c.MarkFlagRequired("workspace")
		rootCmd.AddCommand(c)
	}
}

func appFromConfig() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(context.Background(), cfg, appOptions{})
}
