package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	var flags configFlags
	var serverURL string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the search cache of a running server",
	}

	var pattern string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries whose key contains --pattern, or all entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}

			query := url.Values{}
			if pattern != "" {
				query.Set("pattern", pattern)
			}
			var resp struct {
				Cleared int    `json:"cleared"`
				Pattern string `json:"pattern"`
			}
			client := newActionClient(serverURL, cfg.BasePath)
			if err := client.call(cmd.Context(), http.MethodPost, "clear-cache", query, &resp); err != nil {
				return err
			}
			if pattern == "" {
				fmt.Printf("Cleared %d cache entries.\n", resp.Cleared)
			} else {
				fmt.Printf("Cleared %d cache entries matching %q.\n", resp.Cleared, resp.Pattern)
			}
			return nil
		},
	}
	clearCmd.Flags().StringVar(&pattern, "pattern", "", "substring of the keys to clear")
	flags.register(clearCmd)

	warmCmd := &cobra.Command{
		Use:   "warm",
		Short: "Cache popular listings, cities, price stats and trending searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			var resp struct {
				Cached struct {
					PopularApartments int `json:"popularApartments"`
					Cities            int `json:"cities"`
					PriceStats        int `json:"priceStats"`
					TrendingSearches  int `json:"trendingSearches"`
				} `json:"cached"`
			}
			client := newActionClient(serverURL, cfg.BasePath)
			if err := client.call(cmd.Context(), http.MethodPost, "cache-popular", nil, &resp); err != nil {
				return err
			}
			c := resp.Cached
			fmt.Printf("Cached %d listings, %d cities, %d price stats, %d trending searches.\n",
				c.PopularApartments, c.Cities, c.PriceStats, c.TrendingSearches)
			return nil
		},
	}
	flags.register(warmCmd)

	cmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "homely server URL")
	cmd.AddCommand(clearCmd, warmCmd)
	return cmd
}
