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

// Command erest queries a REST backend from the shell and can run the
// in-process backend locally.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ecodeclub/erest"
	"github.com/ecodeclub/erest/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app 保存全局 flag，子命令通过它拿到配置和 client
type app struct {
	cfgFile string
	url     string
	key     string
	quiet   bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "erest",
		Short: "Query a REST backend: collections, RPC and object storage",
		Long: `erest talks to a PostgREST style backend.

Settings come from the YAML file given by --config and from EREST_*
environment variables, for example EREST_URL and EREST_ANON_KEY.
--url and --key override both.

Results are printed as JSON on stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&a.url, "url", "", "backend base URL, overrides the config")
	pf.StringVar(&a.key, "key", "", "anon key, overrides the config")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "do not log requests")

	root.AddCommand(
		a.selectCmd(),
		a.insertCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.rpcCmd(),
		a.uploadCmd(),
		a.rmCmd(),
		a.urlCmd(),
		a.pingCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) config() (*config.Config, error) {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return nil, err
	}
	if a.url != "" {
		cfg.URL = a.url
	}
	if a.key != "" {
		cfg.AnonKey = a.key
	}
	return cfg, nil
}

func (a *app) logger(cfg *config.Config) (*zap.Logger, error) {
	if a.quiet {
		return zap.NewNop(), nil
	}
	return cfg.NewLogger()
}

// client 调用方负责 Close
func (a *app) client() (*erest.Client, *config.Config, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	l, err := a.logger(cfg)
	if err != nil {
		return nil, nil, err
	}
	c, err := cfg.NewClient(l)
	if err != nil {
		return nil, nil, err
	}
	return c, cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
