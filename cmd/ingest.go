package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/shopsage/pkg/ingest"
	"github.com/xhad/shopsage/pkg/processor"
)

var (
	flagShop  string
	flagToken string
	flagLimit int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load orders into the document store",
}

var ingestSampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Ingest the bundled demo orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd, shopOrDefault(), ingest.SampleOrders())
	},
}

var ingestRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Fetch and ingest recent orders from a Shopify store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(flagShop) < 3 {
			return fmt.Errorf("--shop must be a store domain such as acme.myshopify.com")
		}
		if len(flagToken) < 10 {
			return fmt.Errorf("--token must be an Admin API access token")
		}
		if flagLimit < 1 || flagLimit > 100 {
			return fmt.Errorf("--limit must be between 1 and 100")
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		stop := startSpinner(" Fetching orders...")
		orders, err := a.shopify.RecentOrders(cmd.Context(), flagShop, flagToken, flagLimit)
		stop()
		if err != nil {
			return fmt.Errorf("failed to fetch orders: %w", err)
		}
		color.Blue("\nFetched %d orders from %s", len(orders), flagShop)

		return ingestWith(cmd, a, flagShop, orders)
	},
}

var ingestFilesCmd = &cobra.Command{
	Use:   "files <pattern>",
	Short: "Ingest JSON order exports matching a glob (e.g. 'exports/**/*.json')",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orders, err := ingest.LoadFiles(args[0])
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			color.Yellow("No orders matched %s", args[0])
			return nil
		}
		return runIngest(cmd, shopOrDefault(), orders)
	},
}

func runIngest(cmd *cobra.Command, shop string, orders []processor.RawOrder) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return ingestWith(cmd, a, shop, orders)
}

func ingestWith(cmd *cobra.Command, a *app, shop string, orders []processor.RawOrder) error {
	progress := newIngestProgress(len(orders), shop)
	pipeline := a.pipeline(progress.update)

	n, err := pipeline.Ingest(cmd.Context(), shop, orders)
	progress.finish()
	if err != nil {
		color.Red("\n✗ Ingested %d of %d orders", n, len(orders))
		return err
	}
	color.Green("\n✓ Ingested %d orders into %s", n, shop)
	return nil
}

func shopOrDefault() string {
	if flagShop != "" {
		return flagShop
	}
	return cfg.Server.DefaultShop
}

func init() {
	ingestCmd.PersistentFlags().StringVarP(&flagShop, "shop", "s", "", "shop partition (default from config)")
	ingestRemoteCmd.Flags().StringVar(&flagToken, "token", "", "Shopify Admin API access token")
	ingestRemoteCmd.Flags().IntVar(&flagLimit, "limit", 20, "number of recent orders to fetch (1-100)")

	ingestCmd.AddCommand(ingestSampleCmd, ingestRemoteCmd, ingestFilesCmd)
}
