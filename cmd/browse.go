/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/eventhub/apiserver/internal/client"
	"github.com/spf13/cobra"
)

var browseFlags struct {
	apiURL   string
	search   string
	mode     string
	typ      string
	location string
	date     string
	page     int
}

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Lists events from a running eventhub server",
	Long: `Lists events from a running eventhub server, applying the compound
browse filters locally over the full fetched set. Usage:

	eventhub browse --search demo --mode online --date thisWeek
`,
	Run: func(cmd *cobra.Command, args []string) {
		tokenPath, err := client.DefaultTokenPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to resolve token path: %v\n", err)
			os.Exit(1)
		}

		api := client.New(browseFlags.apiURL, client.NewFileTokenStore(tokenPath))

		events, err := api.ListAllEvents(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to fetch events: %v\n", err)
			os.Exit(1)
		}

		filters := client.Filters{
			Search:   browseFlags.search,
			Mode:     browseFlags.mode,
			Type:     browseFlags.typ,
			Location: browseFlags.location,
			Date:     browseFlags.date,
		}
		filtered := filters.Apply(events, time.Now())
		page := client.Paginate(filtered, browseFlags.page, client.ItemsPerPage)

		if len(page.Events) == 0 {
			fmt.Println("no events match the current filters")
			return
		}

		for _, event := range page.Events {
			fmt.Printf("%-24s  %-10s  %-8s  %-6s  %s\n",
				event.EventName,
				event.DateTime.Local().Format("2006-01-02 15:04"),
				event.Location,
				event.Mode,
				event.EventType,
			)
		}
		fmt.Printf("\npage %d of %d (%d matching events)\n", page.Number, page.TotalPages, len(filtered))
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().StringVar(&browseFlags.apiURL, "api", "http://localhost:8080/api", "base URL of the events API")
	browseCmd.Flags().StringVar(&browseFlags.search, "search", "", "free-text search across name, description, and location")
	browseCmd.Flags().StringVar(&browseFlags.mode, "mode", "all", "filter by mode (online|offline|all)")
	browseCmd.Flags().StringVar(&browseFlags.typ, "type", "all", "filter by event type (free|paid|all)")
	browseCmd.Flags().StringVar(&browseFlags.location, "location", "all", "filter by exact location")
	browseCmd.Flags().StringVar(&browseFlags.date, "date", "all", "filter by date bucket (today|tomorrow|thisWeek|thisMonth|all)")
	browseCmd.Flags().IntVar(&browseFlags.page, "page", 1, "page of the filtered set to show")
}
