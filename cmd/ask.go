package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/sourcebook/pkg/chat"
)

var askWorkspace string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about a workspace",
	Long:  `Answers one question, or starts an interactive session when no question is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askWorkspace, "workspace", "w", "", "Workspace ID (required)")
	_ = askCmd.MarkFlagRequired("workspace")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(context.Background(), cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		return answer(a.chat, args[0])
	}

	// Interactive chat loop with colored output
	color.Cyan("\nChat with workspace %s (type 'exit' to quit)", askWorkspace)

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.ToLower(query) == "exit" {
			break
		}
		if query == "" {
			continue
		}

		if err := answer(a.chat, query); err != nil {
			color.Red("Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func answer(svc *chat.Service, query string) error {
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	spinner := getSpinner(" Searching sources...")
	reply, err := svc.Ask(context.Background(), askWorkspace, query)
	spinner.Finish()
	if err != nil {
		return err
	}

	assistantPrompt("\nAssistant: ")
	fmt.Println(reply.Response)

	if len(reply.Citations) > 0 {
		color.Yellow("\nCitations:")
		for i, c := range reply.Citations {
			if !c.Found {
				color.Red("  [%d] %s, Page %s (not found in context)", i+1, c.Label, c.Page)
				continue
			}
			fmt.Printf("  [%d] %s, Page %s\n", i+1, c.Source.Source, c.Source.Page)
		}
	}
	return nil
}
