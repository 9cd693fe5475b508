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
	"fmt"
	"os"

	"github.com/ecodeclub/erest"
	"github.com/spf13/cobra"
)

func (a *app) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "upload <bucket> <object-path> <file>",
		Short:   "Upload a local file; the configured size and MIME limits apply",
		Example: `  erest upload photos-bucket 2024/sunset.jpg ./sunset.jpg`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[2])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			c, cfg, err := a.client()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			b := c.Storage().From(args[0],
				erest.WithMaxFileSize(cfg.Bucket.MaxFileSize),
				erest.WithAllowedMIMETypes(cfg.Bucket.AllowedMIMETypes...))
			info, err := b.Upload(cmd.Context(), args[1], f).Unwrap()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"path":       info.Path,
				"public_url": b.PublicURL(info.Path),
			})
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <bucket> <object-path>...",
		Short: "Remove objects from a bucket",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.client()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			removed, err := c.Storage().From(args[0]).Remove(cmd.Context(), args[1:]...).Unwrap()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), removed)
		},
	}
}

// urlCmd 不发请求，只是拼接
func (a *app) urlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <bucket> <object-path>",
		Short: "Print the public URL of an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.client()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), c.Storage().From(args[0]).PublicURL(args[1]))
			return err
		},
	}
}
