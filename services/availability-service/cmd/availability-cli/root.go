package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/md-rashed-zaman/apptslots/libs/grpcx"
	"github.com/md-rashed-zaman/apptslots/libs/kafkax"
	"github.com/md-rashed-zaman/apptslots/libs/runtime"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/grpcserver"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/profile"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/service"
	"github.com/spf13/cobra"
)

type options struct {
	fixture  string
	timezone string
	duration int
	now      string
	asJSON   bool
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "availability-cli",
		Short: "Compute bookable slots from a schedule fixture",
		Long: `availability-cli runs the availability engine against a YAML fixture
describing one profile (timezone, weekly rules, overrides, booking policy)
and its busy events, or queries a running availability service over gRPC.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.fixture, "fixture", "f", "", "YAML fixture file")
	root.PersistentFlags().StringVar(&opts.timezone, "timezone", "", "viewer timezone (default: the profile's)")
	root.PersistentFlags().IntVar(&opts.duration, "duration", 0, "slot length in minutes (default: policy)")
	root.PersistentFlags().StringVar(&opts.now, "now", "", "evaluate as of this RFC 3339 instant")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine warnings to stderr")

	root.AddCommand(newSlotsCmd(opts), newMonthCmd(opts), newCalendarCmd(opts), newRemoteCmd(opts), newPublishCmd(opts))
	return root
}

// build wires the fixture into a service. It returns the fixture's profile id.
func (o *options) build() (*service.Service, string, error) {
	if o.fixture == "" {
		return nil, "", fmt.Errorf("--fixture is required")
	}
	f, err := loadFixture(o.fixture)
	if err != nil {
		return nil, "", err
	}
	profiles, events, err := f.sources()
	if err != nil {
		return nil, "", err
	}

	logger := runtime.Discard()
	if o.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	calcOpts := []availability.Option{availability.WithLogger(logger)}
	if o.now != "" {
		now, err := time.Parse(time.RFC3339, o.now)
		if err != nil {
			return nil, "", fmt.Errorf("--now: %w", err)
		}
		calcOpts = append(calcOpts, availability.WithClock(func() time.Time { return now }))
	}
	calc := availability.New(availability.DefaultConfig(), calcOpts...)
	return service.New(profiles, events, calc, logger), f.ProfileID, nil
}

func newSlotsCmd(opts *options) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List the bookable slots of one date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, id, err := opts.build()
			if err != nil {
				return err
			}
			slots, err := svc.Slots(cmd.Context(), service.SlotsRequest{ProfileID: id, Date: date, ViewerTZ: opts.timezone, Duration: opts.duration})
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), availability.Labels(slots))
			}
			if len(slots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no slots")
			}
			for _, s := range slots {
				fmt.Fprintf(cmd.OutOrStdout(), "%-9s %s - %s\n", s.Label(), s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newMonthCmd(opts *options) *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Show which dates of a month have at least one slot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, id, err := opts.build()
			if err != nil {
				return err
			}
			days, err := svc.Month(cmd.Context(), service.MonthRequest{ProfileID: id, Year: year, Month: time.Month(month), ViewerTZ: opts.timezone, Duration: opts.duration})
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), days)
			}
			printDays(cmd.OutOrStdout(), days)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func newCalendarCmd(opts *options) *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print the six-week grid of a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, id, err := opts.build()
			if err != nil {
				return err
			}
			grid, err := svc.Calendar(cmd.Context(), id, year, time.Month(month), opts.timezone)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), grid)
			}
			out := cmd.OutOrStdout()
			for i, d := range grid {
				mark := " "
				switch {
				case d.Today:
					mark = "*"
				case !d.CurrentMonth:
					mark = "."
				case d.Available:
					mark = "+"
				}
				fmt.Fprintf(out, "%3d%s", d.Date.Day, mark)
				if i%7 == 6 {
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func newRemoteCmd(opts *options) *cobra.Command {
	var addr, profileID, date string
	var year, month int
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Query a running availability service over gRPC",
		Long: `remote calls GetSlots when --date is given and GetMonthAvailability
when --year and --month are given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := grpcx.Dial(addr, grpcx.DialOptions{})
			if err != nil {
				return err
			}
			defer conn.Close()
			client := grpcserver.NewClient(conn)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			ctx = grpcx.WithRequestID(ctx, grpcx.NewRequestID())

			if date != "" {
				slots, err := client.Slots(ctx, profileID, date, opts.timezone, opts.duration)
				if err != nil {
					return err
				}
				if opts.asJSON {
					return writeJSON(cmd.OutOrStdout(), slots)
				}
				for _, s := range slots {
					fmt.Fprintf(cmd.OutOrStdout(), "%-9s %s - %s\n", s.Label, s.StartTime, s.EndTime)
				}
				return nil
			}
			if year == 0 || month == 0 {
				return fmt.Errorf("either --date or --year and --month are required")
			}
			days, err := client.Month(ctx, profileID, year, time.Month(month), opts.timezone, opts.duration)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), days)
			}
			printDays(cmd.OutOrStdout(), days)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:9099", "gRPC address")
	cmd.Flags().StringVar(&profileID, "profile", "", "profile id")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD")
	cmd.Flags().IntVar(&year, "year", 0, "year")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func newPublishCmd(opts *options) *cobra.Command {
	var brokers, topic string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the fixture's busy events as a snapshot to Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.fixture == "" {
				return fmt.Errorf("--fixture is required")
			}
			f, err := loadFixture(opts.fixture)
			if err != nil {
				return err
			}
			_, events, err := f.sources()
			if err != nil {
				return err
			}
			id, err := profile.ParseID(f.ProfileID)
			if err != nil {
				return err
			}

			pub := busy.NewPublisher(kafkax.NewWriter(brokers, topic))
			defer pub.Close()
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			snap, err := pub.Publish(ctx, busy.Snapshot{ProfileID: id, FetchedAt: time.Now().UTC(), Events: events[id]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published snapshot %s with %d events\n", snap.SnapshotID, len(snap.Events))
			return nil
		},
	}
	cmd.Flags().StringVar(&brokers, "brokers", "localhost:9092", "comma separated Kafka brokers")
	cmd.Flags().StringVar(&topic, "topic", busy.DefaultTopic, "topic")
	return cmd
}

func printDays(w io.Writer, days map[string]bool) {
	keys := make([]string, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	sort.Strings(keys)
	for _, d := range keys {
		state := "-"
		if days[d] {
			state = "available"
		}
		fmt.Fprintf(w, "%s  %s\n", d, state)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
