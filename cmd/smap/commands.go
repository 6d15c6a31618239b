package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/HugoDaniel/smap/internal/sourcemap"
)

var errNotMapped = errors.New("position is not mapped")

func getCmdLookup(c *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <map> <line:column>",
		Short: "Find the original position of a generated position",
		Example: `  # Where does column 120 of the first line come from?
  smap lookup dist/app.js.map 0:120`,
		Args: exactArgsWithMsg(2, "expected a source map file and a line:column position"),
		RunE: func(_ *cobra.Command, args []string) error {
			line, column, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			m, err := c.loadMap(args[0])
			if err != nil {
				return err
			}

			e, ok := m.GeneratedMappings().Get(line, column)
			if !ok || !e.HasSource() {
				return fmt.Errorf("%s: %w", args[1], errNotMapped)
			}
			fmt.Fprintln(c.gs.stdout, c.theme.original(m, e))
			if snippet, ok := sourcemap.SourceSnippet(m, e); ok {
				c.theme.printSnippet(c.gs.stdout, snippet)
			}
			return nil
		},
	}
}

func getCmdReverse(c *rootCommand) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "reverse <map> <source> <line:column>",
		Short: "Find the generated position of an original position",
		Long: `Find the generated position of an original position.

The source can be given as a URL, as a local path, or as it is written in the
"sources" field of the map.`,
		Args: exactArgsWithMsg(3, "expected a source map file, a source and a line:column position"),
		RunE: func(_ *cobra.Command, args []string) error {
			line, column, err := parsePosition(args[2])
			if err != nil {
				return err
			}
			m, err := c.loadMap(args[0])
			if err != nil {
				return err
			}

			sourceIndex := findSource(m, args[1])
			if sourceIndex < 0 {
				return fmt.Errorf("the map has no source %q", args[1])
			}

			if all {
				found := sourcemap.ProcessSourceMappingsInLine(m, sourceIndex, line,
					func(current sourcemap.MappingEntry, _ *sourcemap.MappingEntry) {
						c.printGenerated(m, current)
					})
				if !found {
					return fmt.Errorf("%s: %w", args[2], errNotMapped)
				}
				return nil
			}

			mappings := m.SourceMappings(sourceIndex)
			if mappings == nil {
				return fmt.Errorf("%s: %w", args[2], errNotMapped)
			}
			e, ok := mappings.Get(line, column)
			if !ok {
				return fmt.Errorf("%s: %w", args[2], errNotMapped)
			}
			c.printGenerated(m, e)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "print every generated position of the source line")
	return cmd
}

// findSource finds a source given as a URL, a local path or as written in
// the map.
func findSource(m sourcemap.SourceMap, source string) int {
	if i := sourcemap.FindSourceIndexByFile(m, source, false); i >= 0 {
		return i
	}
	return m.Resolver().FindSourceIndexByRaw(source)
}

func (c *rootCommand) printGenerated(m sourcemap.SourceMap, e sourcemap.MappingEntry) {
	fmt.Fprintf(c.gs.stdout, "%s <- %s\n",
		c.theme.location(m.OutFile(), e.GeneratedLine, e.GeneratedColumn), c.theme.original(m, e))
}

func getCmdSources(c *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "sources <map>",
		Short: "List the sources of a map",
		Args:  exactArgsWithMsg(1, "expected a source map file"),
		RunE: func(_ *cobra.Command, args []string) error {
			m, err := c.loadMap(args[0])
			if err != nil {
				return err
			}

			raw := m.RawSources()
			for i, u := range m.Sources() {
				line := fmt.Sprintf("%d\t%s", i, c.theme.source.Sprint(u.String()))
				if u.String() != raw[i] {
					line += " " + c.theme.faint.Sprintf("(%s)", raw[i])
				}
				if _, ok := m.SourceContent(i); ok {
					line += " [content]"
				}
				if sourcemap.IsIgnored(m, i) {
					line += " " + c.theme.faint.Sprint("[ignored]")
				}
				fmt.Fprintln(c.gs.stdout, line)
			}
			return nil
		},
	}
}

func getCmdMappings(c *rootCommand) *cobra.Command {
	line := -1
	cmd := &cobra.Command{
		Use:   "mappings <map>",
		Short: "Print the mappings of a map in generated order",
		Args:  exactArgsWithMsg(1, "expected a source map file"),
		RunE: func(_ *cobra.Command, args []string) error {
			m, err := c.loadMap(args[0])
			if err != nil {
				return err
			}

			generated := m.GeneratedMappings()
			if line >= 0 {
				for _, e := range generated.MappingsInLine(line) {
					c.printMapping(m, e)
				}
				return nil
			}
			// entries the composed map cannot resolve are skipped
			for i := 0; i < generated.Len(); i++ {
				if e, ok := generated.ByIndex(i); ok {
					c.printMapping(m, e)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&line, "line", -1, "only print the mappings of this generated line")
	return cmd
}

func (c *rootCommand) printMapping(m sourcemap.SourceMap, e sourcemap.MappingEntry) {
	fmt.Fprintf(c.gs.stdout, "%s -> %s\n",
		c.theme.position.Sprintf("%d:%d", e.GeneratedLine, e.GeneratedColumn), c.theme.original(m, e))
}

func getCmdVersion(c *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(c.gs.stdout, "smap v%s (%s, %s, %s/%s)\n", version, commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
