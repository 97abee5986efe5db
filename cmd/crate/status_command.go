package main

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"crate/internal/config"
	"crate/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check credentials, directories, the Discogs API, and the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var resolver preflight.IdentityResolver
			if !offline && cfg.RequireCredentials() == nil {
				logger, err := ctx.logger(cmd)
				if err != nil {
					return err
				}
				client, err := ctx.discogsClient(logger)
				if err != nil {
					return err
				}
				resolver = client
			}
			results := preflight.RunAll(cmd.Context(), cfg, resolver)

			store, err := ctx.openHistory()
			if err != nil {
				results = append(results, preflight.Result{Name: "Last backup", Detail: err.Error()})
			} else {
				var reader preflight.LastRunReader
				if store != nil {
					defer store.Close()
					reader = store
				}
				results = append(results, preflight.CheckLastRun(cmd.Context(), reader, time.Now()))
			}

			for _, line := range renderSectionHeader("crate", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configSource(ctx), colorize))
			fmt.Fprintln(out, renderStatusLine("Backup formats", statusInfo, strings.Join(cfg.Backup.OutputFormats, ", "), colorize))
			fmt.Fprintln(out, renderStatusLine("Metrics", statusInfo, metricsSource(cfg), colorize))
			fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, notificationTarget(cfg), colorize))
			for _, result := range results {
				fmt.Fprintln(out, resultLine(result, colorize))
			}

			if !preflight.AllPassed(results) {
				return fmt.Errorf("status: %d of %d checks failed", failedCount(results), len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the Discogs API check")
	return cmd
}

func configSource(ctx *commandContext) string {
	if !ctx.configExists {
		return fmt.Sprintf("%s not found, using defaults and environment", ctx.configPath)
	}
	return ctx.configPath
}

func metricsSource(cfg *config.Config) string {
	if !cfg.Metrics.Enabled {
		return "disabled"
	}
	return cfg.Metrics.TextfilePath
}

// notificationTarget shows only the ntfy host; the topic name acts as a secret.
func notificationTarget(cfg *config.Config) string {
	topic := cfg.Notifications.NtfyTopic
	if topic == "" {
		return "disabled"
	}
	parsed, err := url.Parse(topic)
	if err != nil || parsed.Host == "" {
		return "ntfy"
	}
	target := "ntfy via " + parsed.Host
	if cfg.Notifications.OnSuccess {
		return target + " (all runs)"
	}
	return target + " (failures only)"
}

func failedCount(results []preflight.Result) int {
	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	return failed
}
