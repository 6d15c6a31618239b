package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	null "gopkg.in/guregu/null.v3"
)

// Panic if the given error is not nil.
func must(err error) {
	if err != nil {
		panic(err)
	}
}

func getNullBool(flags *pflag.FlagSet, key string) null.Bool {
	v, err := flags.GetBool(key)
	if err != nil {
		panic(err)
	}
	return null.NewBool(v, flags.Changed(key))
}

func getNullInt64(flags *pflag.FlagSet, key string) null.Int {
	v, err := flags.GetInt64(key)
	if err != nil {
		panic(err)
	}
	return null.NewInt(v, flags.Changed(key))
}

func getNullString(flags *pflag.FlagSet, key string) null.String {
	v, err := flags.GetString(key)
	if err != nil {
		panic(err)
	}
	return null.NewString(v, flags.Changed(key))
}

func exactArgsWithMsg(n int, msg string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("accepts %d arg(s), received %d: %s", n, len(args), msg)
		}
		return nil
	}
}

// parsePosition parses a zero-based "line:column" pair.
func parsePosition(s string) (line, column int, err error) {
	lineText, columnText, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, fmt.Errorf("invalid position %q, expected line:column", s)
	}
	if line, err = strconv.Atoi(lineText); err != nil || line < 0 {
		return 0, 0, fmt.Errorf("invalid line in position %q", s)
	}
	if column, err = strconv.Atoi(columnText); err != nil || column < 0 {
		return 0, 0, fmt.Errorf("invalid column in position %q", s)
	}
	return line, column, nil
}
