package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"aqi_relay/internal/adapters/observability"
	"aqi_relay/internal/adapters/waqi"
	"aqi_relay/internal/app"
	"aqi_relay/internal/domain"
	"aqi_relay/internal/shared"
)

type cityFile struct {
	Cities []string `yaml:"cities"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cities  []string
		file    string
		workers int
	)
	cmd := &cobra.Command{
		Use:           "probe",
		Short:         "Look up air quality for a batch of cities against the upstream feed",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := shared.Load()
			log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

			if file != "" {
				fromFile, err := readCityFile(file)
				if err != nil {
					log.Error().Err(err).Str("file", file).Msg("read city file failed")
					return err
				}
				cities = append(cities, fromFile...)
			}
			cities = compact(cities)
			if len(cities) == 0 {
				return fmt.Errorf("no cities given; use --cities or --file")
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.ProbeWorkers
			}

			client, err := waqi.New(cfg.AQIBase, cfg.AQIToken, cfg.UpstreamTimeout)
			if err != nil {
				log.Error().Err(err).Msg("failed to initialize WAQI client")
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Int("cities", len(cities)).Int("workers", workers).Msg("probe starting")
			res := app.NewProbeService(app.NewLookupService(client, nil, nil)).Probe(ctx, cities, workers)
			for _, r := range res {
				ev := log.Info()
				if r.Outcome != domain.OutcomeOK {
					ev = log.Warn().Err(r.Err)
				}
				ev.Str("city", r.City).Str("outcome", r.Outcome).Dur("duration", r.Duration).Msg("probe")
			}
			if app.Failed(res) {
				return fmt.Errorf("one or more lookups failed")
			}
			log.Info().Msg("probe completed")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&cities, "cities", nil, "comma-separated city names")
	cmd.Flags().StringVar(&file, "file", "", "YAML file with a top-level cities: list")
	cmd.Flags().IntVar(&workers, "workers", 4, "max concurrent lookups (default PROBE_WORKERS)")
	return cmd
}

func readCityFile(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cf cityFile
	if err := yaml.Unmarshal(b, &cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cf.Cities, nil
}

// compact trims names and drops blanks and exact duplicates, keeping order.
func compact(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
