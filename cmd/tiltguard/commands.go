package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-tiltguard/client"
	"github.com/goliatone/go-tiltguard/repository"
	"github.com/goliatone/go-tiltguard/seed"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}

	if a.cfg.Persistence.AutoMigrate {
		if err := a.migrate(ctx, db); err != nil {
			_ = db.Close()
			return err
		}
	}

	st, err := a.buildStack(ctx, db)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer st.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return st.server.Listen(a.cfg.Server.Address)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.GetLogger("http").Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return st.server.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *app) migrateCmd() *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if !rollback {
				return a.migrate(ctx, db)
			}

			group, err := repository.Rollback(ctx, db)
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", group)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rollback, "rollback", false, "revert the last migration group")
	return cmd
}

func (a *app) seedCmd() *cobra.Command {
	var clean bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo users",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if a.cfg.Persistence.AutoMigrate {
				if err := a.migrate(ctx, db); err != nil {
					return err
				}
			}

			res, err := seed.New(repository.NewRepositoryManager(db)).
				WithRegion(a.cfg.Users.DefaultRegion).
				WithLogger(a.GetLogger("seed")).
				Run(ctx, seed.Options{Clean: clean})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if clean {
				fmt.Fprintf(out, "removed %d users\n", res.Removed)
			}
			fmt.Fprintf(out, "created %d users, skipped %d\n", len(res.Created), len(res.Skipped))
			for _, email := range res.Created {
				fmt.Fprintf(out, "  + %s\n", email)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clean, "clean", false, "delete existing users first")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the blocking status like the browser extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			cc := a.cfg.Client
			c := client.New(cc.APIURL).
				WithLogger(a.GetLogger("client")).
				WithToken(cc.Token)

			if c.Token() == "" && cc.Email != "" {
				user, err := c.Login(ctx, cc.Email, cc.Password)
				if err != nil {
					return err
				}
				a.GetLogger("client").Info("logged in", "user_id", user.ID, "email", user.Email)
			}

			out := cmd.OutOrStdout()
			w := client.NewWatcher(c, cc.PollInterval.Duration).
				WithLogger(a.GetLogger("watcher")).
				WithOnChange(func(s client.State) {
					if s.Blocked {
						fmt.Fprintf(out, "risk settings blocked until %s\n", s.Until.Local().Format(time.RFC1123))
						return
					}
					fmt.Fprintln(out, "risk settings unblocked")
				})

			if once {
				if _, err := w.Poll(ctx); err != nil {
					return err
				}
				fmt.Fprintf(out, "blocked: %t\n", w.State().Blocked)
				return nil
			}
			return w.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "poll a single time and exit")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(a.cfg.Masked()))
			return nil
		},
	}
}
