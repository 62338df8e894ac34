// Package main provides the hound-search binary: a federated
// code-search front end that translates queries, fans them out to
// backend nodes, and serves paginated, cached results.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codehound/hound-search/internal/backend"
	"github.com/codehound/hound-search/internal/cache"
	"github.com/codehound/hound-search/internal/config"
	"github.com/codehound/hound-search/internal/directory"
	"github.com/codehound/hound-search/internal/events"
	"github.com/codehound/hound-search/internal/pkg/logger"
	"github.com/codehound/hound-search/internal/pkg/middleware"
	"github.com/codehound/hound-search/internal/search"
	"github.com/codehound/hound-search/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hound-search",
		Short: "Hound Search - federated code search front end",
		Long: `Hound Search translates code-search queries, fans them out across
backend search nodes, and serves paginated, cached results.

Run 'hound-search serve' to start the API server.
Run 'hound-search search' to run a one-shot query against a server.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		serveCmd(),
		searchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the search API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			verbose, _ := cmd.Flags().GetBool("verbose")
			topologyPath, _ := cmd.Flags().GetString("topology")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logLevel := cfg.Log.Level
			if verbose {
				logLevel = "debug"
			}
			log := logger.New(logLevel, cfg.Log.Format)

			svc, cleanup, err := buildService(cfg, topologyPath, log)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := server.New(server.Config{
				Addr:         cfg.Address(),
				Version:      version,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: time.Duration(cfg.Backend.TimeoutSeconds+30) * time.Second,
				RateLimit: middleware.RateLimiterConfig{
					RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
					Burst:             cfg.RateLimit.Burst,
					CleanupInterval:   time.Minute,
				},
			}, svc, log)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-stop:
				log.Info("shutdown signal received")
				return srv.Stop(context.Background())
			}
		},
	}

	cmd.Flags().String("topology", "topology.yaml", "cluster topology file (nodes and projects)")

	return cmd
}

// buildService wires the orchestrator from configuration. The returned
// cleanup closes the cache and event publisher connections.
func buildService(cfg *config.Config, topologyPath string, log *logger.Logger) (*search.Service, func(), error) {
	static, err := directory.LoadTopology(topologyPath)
	if err != nil {
		return nil, nil, err
	}

	signer, err := backend.NewTokenSigner(cfg.Backend.SharedSecret)
	if err != nil {
		return nil, nil, err
	}

	client := backend.NewClient(backend.ClientConfig{
		BaseURL: cfg.Backend.URL,
		Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
	}, signer, log)

	pages, err := cache.NewPageCache(cfg.Cache.RedisURL, cfg.Cache.Enabled, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting page cache: %w", err)
	}
	routing := cache.NewRoutingCache(pages.Client(), log)

	var publisher events.Publisher
	if cfg.Events.Type == "kafka" {
		publisher, err = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.KafkaBrokerList(),
		})
		if err != nil {
			pages.Close()
			return nil, nil, err
		}
	} else {
		publisher = events.NewMemoryPublisher()
	}

	svc := search.NewService(search.Config{
		PerPage:          cfg.Search.PerPage,
		MaxPerPage:       cfg.Search.MaxPerPage,
		CountLimit:       cfg.Search.CountLimit,
		NumContextLines:  cfg.Search.NumContextLines,
		MaxChunksPerFile: cfg.Search.MaxChunksPerFile,
		RewriteFilters:   cfg.Search.RewriteFilters,
	}, search.Deps{
		Client:  client,
		Pages:   pages,
		Routing: routing,
		Dir:     static,
		Nodes:   static,
		Router:  static,
		Indexer: static,
		Events:  publisher,
		Log:     log,
	})

	cleanup := func() {
		_ = publisher.Close()
		_ = pages.Close()
	}

	return svc, cleanup, nil
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run a one-shot query against a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, _ := cmd.Flags().GetString("server")
			projects, _ := cmd.Flags().GetString("projects")
			regex, _ := cmd.Flags().GetBool("regex")
			multiMatch, _ := cmd.Flags().GetBool("multi-match")
			page, _ := cmd.Flags().GetInt("page")
			perPage, _ := cmd.Flags().GetInt("per-page")

			req := map[string]any{
				"query":       args[0],
				"source":      "api",
				"multi_match": multiMatch,
				"page":        page,
				"per_page":    perPage,
			}
			if cmd.Flags().Changed("regex") {
				req["regex"] = regex
			}
			if projects != "" {
				ids, err := parseIDList(projects)
				if err != nil {
					return err
				}
				req["project_ids"] = ids
			}

			body, err := json.Marshal(req)
			if err != nil {
				return err
			}

			resp, err := http.Post(serverURL+"/v1/search", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			out, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(out))
			}

			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().String("server", "http://localhost:8090", "server URL")
	cmd.Flags().String("projects", "", "comma-separated project ids to scope to")
	cmd.Flags().Bool("regex", false, "regex mode (defaults by source when omitted)")
	cmd.Flags().Bool("multi-match", false, "return chunked multi-match results")
	cmd.Flags().Int("page", 1, "page to fetch")
	cmd.Flags().Int("per-page", 20, "page size")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("hound-search %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

func parseIDList(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid project id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
