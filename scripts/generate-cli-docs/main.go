// Package main generates a single markdown reference for the lambdahost CLI.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/runvoy/lambdahost/cmd/lambdahost/cmd"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func main() {
	var outFile string
	flag.StringVar(&outFile, "out", "./docs/CLI.md", "output file for generated markdown")
	flag.Parse()

	if outFile == "" {
		log.Fatal("error: output file is required")
	}

	if err := writeFile(outFile); err != nil {
		log.Fatalf("error: %s", err)
	}
}

func writeFile(outFile string) error {
	if err := os.MkdirAll(filepath.Dir(outFile), 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var buf bytes.Buffer
	if err := render(cmd.RootCmd(), &buf); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Clean(outFile), buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}

	log.Printf("✅ Generated CLI documentation in %s", outFile)
	return nil
}

// render writes the whole command tree as one markdown document. Cobra's per-command
// pages link to sibling files, so links are rewritten to in-page anchors.
func render(root *cobra.Command, w io.Writer) error {
	root.DisableAutoGenTag = true

	if _, err := fmt.Fprintf(w, "# %s CLI\n\n", root.Name()); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "All commands, their flags and examples."); err != nil {
		return err
	}

	for _, c := range commands(root) {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := doc.GenMarkdownCustom(c, w, anchor); err != nil {
			return fmt.Errorf("generating markdown for %s: %w", c.CommandPath(), err)
		}
	}
	return nil
}

// commands lists the available commands depth first, sorted by name at each level.
func commands(c *cobra.Command) []*cobra.Command {
	if !c.IsAvailableCommand() && c.HasParent() {
		return nil
	}
	out := []*cobra.Command{c}

	children := c.Commands()
	sort.Slice(children, func(i, j int) bool {
		return children[i].Name() < children[j].Name()
	})
	for _, child := range children {
		if child.IsAdditionalHelpTopicCommand() {
			continue
		}
		out = append(out, commands(child)...)
	}
	return out
}

// anchor turns "lambdahost_replay.md" into "#lambdahost-replay".
func anchor(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return "#" + strings.ReplaceAll(base, "_", "-")
}
