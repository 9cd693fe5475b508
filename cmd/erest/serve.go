// Copyright 2021 ecodeclub
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecodeclub/erest/portfolio"
	"github.com/ecodeclub/erest/resttest"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the backend answers and the key is accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.client()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			if err = portfolio.NewRepository(c).CheckConnection(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		},
	}
}

type serveOptions struct {
	driver  string
	dsn     string
	addr    string
	apiKey  string
	schemas []string
}

// openBackend 打开数据库，执行 schema 文件，返回可以直接挂载的 Handler
func openBackend(opts serveOptions, l *zap.Logger) (*resttest.Handler, *sql.DB, error) {
	db, err := sql.Open(opts.driver, opts.dsn)
	if err != nil {
		return nil, nil, err
	}
	if opts.driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	for _, path := range opts.schemas {
		stmt, err := os.ReadFile(path)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if _, err = db.Exec(string(stmt)); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("schema %s: %w", path, err)
		}
	}
	h, err := resttest.NewHandler(db, opts.driver,
		resttest.WithAPIKey(opts.apiKey), resttest.WithLogger(l))
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return h, db, nil
}

func (a *app) serveCmd() *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local REST and storage backend on top of SQLite or MySQL",
		Example: `  erest serve --schema ./schema.sql
  erest serve --driver mysql --dsn 'root:root@tcp(localhost:3306)/portfolio' --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			l, err := a.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = l.Sync() }()

			h, db, err := openBackend(opts, l)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			srv := &http.Server{Addr: opts.addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				l.Info("erest: serving", zap.String("addr", opts.addr), zap.String("driver", opts.driver))
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			eg.Go(func() error {
				<-ctx.Done()
				sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})
			return eg.Wait()
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.driver, "driver", "sqlite3", "database driver, sqlite3 or mysql")
	f.StringVar(&opts.dsn, "dsn", "file:erest.db?cache=shared", "database DSN")
	f.StringVar(&opts.addr, "addr", ":54321", "listen address")
	f.StringVar(&opts.apiKey, "api-key", resttest.DefaultAPIKey, "anon key clients must send")
	f.StringArrayVar(&opts.schemas, "schema", nil, "SQL file executed at startup, repeatable")
	return cmd
}
