// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package main

//go:generate go run gen-docs.go --path ../../docs
//go:generate go run gen-docs.go --path ../../docs/man --format man

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	canopycmd "github.com/telekom/canopy/cmd"
)

const (
	formatMarkdown = "markdown"
	formatMan      = "man"
)

func main() {
	if err := newCmdGenDocs().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCmdGenDocs() *cobra.Command {
	var path, format string

	cmd := &cobra.Command{
		Use:   "gen-docs",
		Short: "Generates the CLI reference of canopy",
		Long:  "Generates one markdown page or man page per canopy command, listing its flags.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return genDocs(path, format)
		},
	}

	cmd.Flags().StringVar(&path, "path", "docs", "directory the pages are written to")
	cmd.Flags().StringVar(&format, "format", formatMarkdown, "page format: markdown or man")
	return cmd
}

func genDocs(path, format string) error {
	c := canopycmd.BuildCmd("")
	c.DisableAutoGenTag = true

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	var err error
	switch format {
	case formatMarkdown:
		err = doc.GenMarkdownTree(c, path)
	case formatMan:
		err = doc.GenManTree(c, &doc.GenManHeader{Title: "CANOPY", Section: "1", Source: "canopy"}, path)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to generate docs: %w", err)
	}
	return nil
}
