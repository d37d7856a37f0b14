package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/manavgt54/idesync/internal/daemon"
)

func init() {
	rootCmd.AddCommand(newWatchStatusCmd())
}

func newWatchStatusCmd() *cobra.Command {
	watchStatusCmd := &cobra.Command{
		Use:   "watch-status",
		Short: "Continuously poll the daemon's /v1/status endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")
			raw, _ := cmd.Flags().GetBool("raw")

			if err := loadConfig(cmd); err != nil {
				return err
			}

			addr := viper.GetString("http_addr")
			token := viper.GetString("http_token")
			if addr == "" {
				return fmt.Errorf("control plane address not configured; set --http-addr or IDESYNC_HTTP_ADDR")
			}

			cmd.SilenceUsage = true

			statusURL := fmt.Sprintf("http://%s/v1/status", addr)
			client := &http.Client{Timeout: 5 * time.Second}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
					req, _ := http.NewRequestWithContext(cmd.Context(), http.MethodGet, statusURL, nil)
					if token != "" {
						req.Header.Set("Authorization", "Bearer "+token)
					}
					resp, err := client.Do(req)
					if err != nil {
						fmt.Fprintf(os.Stderr, "%s ERROR %v\n", time.Now().UTC().Format(time.RFC3339), err)
						continue
					}
					body, _ := io.ReadAll(resp.Body)
					resp.Body.Close()

					if raw {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\n", body)
						continue
					}

					var v any
					if err := json.Unmarshal(body, &v); err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\n", body)
						continue
					}
					pretty, _ := json.MarshalIndent(v, "", "  ")
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", pretty)
				}
			}
		},
	}

	watchStatusCmd.Flags().Duration("interval", 1*time.Second, "poll interval")
	watchStatusCmd.Flags().Bool("raw", false, "print raw json without pretty formatting")
	watchStatusCmd.Flags().StringP("http-addr", "a", daemon.DefaultHTTPAddr, "Address of the local control plane")
	watchStatusCmd.Flags().StringP("http-token", "t", "", "Access token for the local control plane")

	return watchStatusCmd
}
