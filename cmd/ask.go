package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/shopsage/internal/models"
	"github.com/xhad/shopsage/pkg/rag"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask for structured recommendations grounded in ingested orders",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		if len(question) < 3 {
			return fmt.Errorf("question must contain at least 3 characters")
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		stop := startSpinner(" Generating recommendations...")
		answer, err := a.orchestrator.Answer(cmd.Context(), shopOrDefault(), question, rag.ModeRecommendation)
		stop()
		if err != nil {
			return err
		}

		printCitations(answer.Citations)
		if answer.Valid {
			var out bytes.Buffer
			if json.Indent(&out, []byte(answer.Text), "", "  ") == nil {
				fmt.Println(out.String())
				return nil
			}
		} else {
			color.Yellow("Model reply was not valid recommendation JSON; showing it verbatim.")
		}
		fmt.Println(answer.Text)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with an analyst about your orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		shop := shopOrDefault()
		color.Cyan("\nChat about %s orders (type 'exit' to quit)", shop)

		scanner := bufio.NewScanner(os.Stdin)
		userPrompt := color.New(color.FgGreen).PrintfFunc()
		assistantPrompt := color.New(color.FgCyan).PrintfFunc()

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

			stop := startSpinner(" Thinking...")
			answer, err := a.orchestrator.Answer(cmd.Context(), shop, query, rag.ModeChat)
			stop()

			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}
			printCitations(answer.Citations)
			assistantPrompt("Assistant: %s\n", answer.Text)
		}
		return scanner.Err()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many orders and documents a shop has",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		stats, err := repo.Stats(cmd.Context(), shopOrDefault())
		if err != nil {
			return err
		}
		fmt.Printf("%s  orders=%d  documents=%d\n", color.CyanString(stats.Shop), stats.Orders, stats.Documents)
		return nil
	},
}

func printCitations(citations []models.Citation) {
	if len(citations) == 0 {
		color.Yellow("No orders retrieved for this shop.")
		return
	}
	refs := make([]string, len(citations))
	for i, c := range citations {
		refs[i] = fmt.Sprintf("%s (%.4f)", c.RefID, c.Score)
	}
	color.Blue("Retrieved: %s", strings.Join(refs, ", "))
}

func init() {
	for _, c := range []*cobra.Command{askCmd, chatCmd, statsCmd} {
		c.Flags().StringVarP(&flagShop, "shop", "s", "", "shop partition (default from config)")
	}
}
