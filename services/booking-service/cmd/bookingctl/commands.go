package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/app"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
)

type rootOptions struct {
	driver     string
	sqlitePath string
	migrate    bool
}

type session struct {
	engine *booking.Engine
	store  *app.Store
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "bookingctl",
		Short:         "Operate the booking catalog and bookings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "store driver (postgres|sqlite), default STORE_DRIVER")
	root.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite-path", "", "sqlite file, default SQLITE_PATH")
	root.PersistentFlags().BoolVar(&opts.migrate, "migrate", false, "apply the schema before running the command")

	root.AddCommand(
		newMigrateCmd(opts),
		newAddServiceCmd(opts),
		newAddWindowCmd(opts),
		newServicesCmd(opts),
		newSlotsCmd(opts),
		newSetStatusCmd(opts),
	)
	return root
}

func (o *rootOptions) open(ctx context.Context, migrate bool) (*session, error) {
	cfg, err := app.StoreConfigFromEnv()
	if err != nil {
		// DATABASE_URL is not needed when the flag selects sqlite.
		if o.driver != app.DriverSQLite {
			return nil, err
		}
		cfg = app.StoreConfig{Driver: app.DriverSQLite, SQLitePath: config.String("SQLITE_PATH", "slotbook.db")}
	}
	if o.driver != "" {
		cfg.Driver = o.driver
	}
	if o.sqlitePath != "" {
		cfg.SQLitePath = o.sqlitePath
	}
	cfg.AutoMigrate = migrate || o.migrate
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	engineCfg, err := app.EngineConfigFromEnv()
	if err != nil {
		store.Close()
		return nil, err
	}
	logger := runtime.NewLogger("bookingctl", config.String("LOG_LEVEL", "warn"))
	return &session{engine: booking.NewEngine(store, nil, logger, engineCfg), store: store}, nil
}

func withSession(opts *rootOptions, migrate bool, fn func(ctx context.Context, s *session, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := opts.open(ctx, migrate)
		if err != nil {
			return err
		}
		defer s.store.Close()
		return fn(ctx, s, cmd.OutOrStdout())
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, true, func(_ context.Context, _ *session, out io.Writer) error {
			_, err := fmt.Fprintln(out, "schema applied")
			return err
		}),
	}
}

func newAddServiceCmd(opts *rootOptions) *cobra.Command {
	var (
		name     string
		duration int
	)
	cmd := &cobra.Command{
		Use:   "add-service",
		Short: "Create a bookable service",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, false, func(ctx context.Context, s *session, out io.Writer) error {
			svc, err := s.engine.CreateService(ctx, name, duration)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%s\t%s\t%dm\n", svc.ID, svc.Name, svc.DurationMinutes)
			return err
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "service name")
	cmd.Flags().IntVar(&duration, "duration", 30, "appointment length in minutes")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAddWindowCmd(opts *rootOptions) *cobra.Command {
	var (
		serviceID  string
		weekday    int
		start, end string
	)
	cmd := &cobra.Command{
		Use:   "add-window",
		Short: "Add a weekly availability window (weekday 0=Sunday)",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, false, func(ctx context.Context, s *session, out io.Writer) error {
			w, err := s.engine.AddWindow(ctx, serviceID, time.Weekday(weekday), start, end)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%s\t%s\t%s-%s\n", w.ID, w.Weekday, w.StartTime, w.EndTime)
			return err
		}),
	}
	cmd.Flags().StringVar(&serviceID, "service", "", "service id")
	cmd.Flags().IntVar(&weekday, "weekday", 1, "day of week, 0=Sunday")
	cmd.Flags().StringVar(&start, "start", "09:00", "local start time HH:MM")
	cmd.Flags().StringVar(&end, "end", "17:00", "local end time HH:MM (24:00 for end of day)")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

func newServicesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List services",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, false, func(ctx context.Context, s *session, out io.Writer) error {
			services, err := s.engine.ListServices(ctx)
			if err != nil {
				return err
			}
			for _, svc := range services {
				if _, err := fmt.Fprintf(out, "%s\t%s\t%dm\n", svc.ID, svc.Name, svc.DurationMinutes); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func newSlotsCmd(opts *rootOptions) *cobra.Command {
	var serviceID, date string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print free slots for a service on a date",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, false, func(ctx context.Context, s *session, out io.Writer) error {
			d, err := availability.ParseDate(date)
			if err != nil {
				return err
			}
			slots, err := s.engine.ListSlots(ctx, serviceID, d)
			if err != nil {
				return err
			}
			loc := s.engine.Location()
			for _, slot := range slots {
				if _, err := fmt.Fprintf(out, "%s\t%s\n", slot.Start.In(loc).Format(time.RFC3339), slot.End.In(loc).Format(time.RFC3339)); err != nil {
					return err
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&serviceID, "service", "", "service id")
	cmd.Flags().StringVar(&date, "date", time.Now().Format(availability.DateLayout), "date YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

func newSetStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <booking-id> <status>",
		Short: "Staff override of a booking status (no overlap check)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, false, func(ctx context.Context, s *session, out io.Writer) error {
				b, err := s.engine.SetStatus(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "%s\t%s\toverride=%s\n", b.ID, b.Status, strconv.FormatBool(b.StaffOverride))
				return err
			})(cmd, args)
		},
	}
}
