package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/orbitshield/cachesync/internal/domain"
)

var (
	onlineColor  = color.New(color.FgGreen, color.Bold)
	offlineColor = color.New(color.FgRed, color.Bold)
	unknownColor = color.New(color.FgYellow)
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache state for every mirrored table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := callAPI(http.MethodGet, "/api/cache/status")
		if err != nil {
			return err
		}

		var status domain.CacheStatus
		if err := json.Unmarshal(data, &status); err != nil {
			return fmt.Errorf("failed to parse status: %w", err)
		}

		fmt.Printf("Cache dir: %s\n", status.CacheDir)
		fmt.Printf("Supabase:  %s\n", colorConnectivity(status.SupabaseStatus))
		if status.LastSync != nil {
			fmt.Printf("Last sync: %s\n", status.LastSync.Local().Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("Last sync: never")
		}
		fmt.Println()

		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"Table", "Cached", "Records", "Last Sync", "Size (KB)"})

		var rows [][]string
		for _, t := range domain.Tables() {
			ts := status.Tables[t]
			cached := "no"
			if ts.CacheExists {
				cached = "yes"
			}
			lastSync := "never"
			if ts.LastSync != nil {
				lastSync = ts.LastSync.Local().Format("2006-01-02 15:04:05")
			}
			rows = append(rows, []string{
				string(t),
				cached,
				strconv.Itoa(ts.RecordCount),
				lastSync,
				fmt.Sprintf("%.2f", ts.FileSizeKB),
			})
		}

		if err := table.Bulk(rows); err != nil {
			return err
		}
		return table.Render()
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [table]",
	Short: "Trigger a sync of one table, or of all tables",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return syncOne(args[0])
		}
		return syncAll()
	},
}

func syncAll() error {
	data, err := callAPI(http.MethodPost, "/api/cache/sync")
	if err != nil {
		return err
	}

	var result struct {
		Tables map[domain.Table]struct {
			RecordCount int    `json:"record_count"`
			Error       string `json:"error"`
		} `json:"tables"`
		TotalRecords int `json:"total_records"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to parse sync result: %w", err)
	}

	for _, t := range domain.Tables() {
		out, ok := result.Tables[t]
		if !ok {
			continue
		}
		if out.Error != "" {
			fmt.Printf("%-18s %s\n", t, offlineColor.Sprintf("failed: %s", out.Error))
		} else {
			fmt.Printf("%-18s %d records\n", t, out.RecordCount)
		}
	}
	fmt.Printf("\nTotal: %d records\n", result.TotalRecords)
	return nil
}

func syncOne(name string) error {
	data, err := callAPI(http.MethodPost, "/api/cache/sync/"+name)
	if err != nil {
		return err
	}

	var result struct {
		Table       domain.Table `json:"table"`
		RecordCount int          `json:"record_count"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to parse sync result: %w", err)
	}

	fmt.Printf("%s: %d records\n", result.Table, result.RecordCount)
	return nil
}

var loadCmd = &cobra.Command{
	Use:   "load <table>",
	Short: "Dump the cached snapshot of a table as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := callAPI(http.MethodGet, "/api/cache/load/"+args[0])
		if err != nil {
			return err
		}

		var pretty map[string]any
		if err := json.Unmarshal(data, &pretty); err != nil {
			return fmt.Errorf("failed to parse snapshot: %w", err)
		}
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func colorConnectivity(mode domain.Connectivity) string {
	switch mode {
	case domain.ConnectivityOnline:
		return onlineColor.Sprint("online")
	case domain.ConnectivityOffline:
		return offlineColor.Sprint("offline")
	default:
		return unknownColor.Sprint("unknown")
	}
}
