package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/HugoDaniel/smap/internal/config"
	"github.com/HugoDaniel/smap/internal/resolver"
	"github.com/HugoDaniel/smap/internal/sourcemap"
)

// globalState holds everything the commands touch outside of the process,
// so tests can replace it.
type globalState struct {
	fs     afero.Fs
	getwd  func() (string, error)
	args   []string
	stdout io.Writer
	stderr io.Writer

	stdoutTTY, stderrTTY bool

	logger *logrus.Logger
	osExit func(int)
}

func newGlobalState() *globalState {
	stdoutTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	stderrTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	stderr := colorable.NewColorableStderr()

	return &globalState{
		fs:        afero.NewOsFs(),
		getwd:     os.Getwd,
		args:      os.Args,
		stdout:    colorable.NewColorableStdout(),
		stderr:    stderr,
		stdoutTTY: stdoutTTY,
		stderrTTY: stderrTTY,
		logger: &logrus.Logger{
			Out:       stderr,
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.WarnLevel,
		},
		osExit: os.Exit,
	}
}

type globalFlags struct {
	configPath  string
	noConfig    bool
	baseURL     string
	composeWith string
	noColor     bool
}

// This is to keep all fields needed for the main/root smap command
type rootCommand struct {
	gs    *globalState
	flags globalFlags

	cmd     *cobra.Command
	options sourcemap.Options
	theme   *theme
}

func newRootCommand(gs *globalState) *rootCommand {
	c := &rootCommand{gs: gs, theme: newTheme(false)}

	rootCmd := &cobra.Command{
		Use:               "smap",
		Short:             "Query Source Map v3 files",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
		Version:           version,
	}
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "v%s\n" .Version}}`)

	rootCmd.PersistentFlags().AddFlagSet(c.persistentFlagSet())
	rootCmd.SetArgs(gs.args[1:])
	rootCmd.SetOut(gs.stdout)
	rootCmd.SetErr(gs.stderr)

	subCommands := []func(*rootCommand) *cobra.Command{
		getCmdLookup, getCmdReverse, getCmdSources, getCmdMappings, getCmdVersion,
	}
	for _, sc := range subCommands {
		rootCmd.AddCommand(sc(c))
	}

	c.cmd = rootCmd
	return c
}

func (c *rootCommand) persistentFlagSet() *pflag.FlagSet {
	defaults := config.Default()
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)

	flags.StringVarP(&c.flags.configPath, "config", "c", "", "JSON config file")
	must(cobra.MarkFlagFilename(flags, "config"))
	flags.BoolVar(&c.flags.noConfig, "no-config", false, "ignore config files")
	flags.StringVar(&c.flags.baseURL, "base-url", "", "resolve sources against this URL instead of the map location")
	flags.StringVar(&c.flags.composeWith, "compose-with", "",
		"map the sources further through this map, which maps them to their own sources")
	must(cobra.MarkFlagFilename(flags, "compose-with"))
	flags.BoolVar(&c.flags.noColor, "no-color", false, "disable colored output")

	flags.Bool("trim-file-scheme", defaults.TrimFileScheme.Bool, `turn "file:" sources into local paths`)
	flags.Bool("case-sensitive-paths", defaults.CaseSensitivePaths.Bool, "compare source paths case sensitively")
	flags.Bool("base-is-file", defaults.BaseIsFile.Bool,
		"resolve relative sources against the directory of the map instead of the map URL itself")
	flags.Int64("cache-size", defaults.CacheSize.Int64, "number of decoded maps kept in memory")
	flags.String("log-level", defaults.LogLevel.String, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.LogFormat.String, "log output format (text, json)")

	return flags
}

// flagConfig returns the config values set on the command line.
func flagConfig(flags *pflag.FlagSet) config.Config {
	return config.Config{
		TrimFileScheme:     getNullBool(flags, "trim-file-scheme"),
		CaseSensitivePaths: getNullBool(flags, "case-sensitive-paths"),
		BaseIsFile:         getNullBool(flags, "base-is-file"),
		CacheSize:          getNullInt64(flags, "cache-size"),
		LogLevel:           getNullString(flags, "log-level"),
		LogFormat:          getNullString(flags, "log-format"),
	}
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, _ []string) error {
	conf, err := c.consolidateConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if err := c.setupLoggers(conf); err != nil {
		return err
	}
	c.theme = newTheme(!c.flags.noColor && c.gs.stdoutTTY)

	c.options, err = conf.ToOptions(c.gs.fs, c.gs.logger)
	if err != nil {
		return err
	}
	c.gs.logger.Debugf("smap version: v%s (%s)", version, commit)
	return nil
}

// consolidateConfig merges the defaults, the config file, the environment
// and the flags, in increasing priority.
func (c *rootCommand) consolidateConfig(flags *pflag.FlagSet) (config.Config, error) {
	fileConf, err := c.readConfigFile()
	if err != nil {
		return config.Config{}, err
	}
	envConf, err := config.FromEnv()
	if err != nil {
		return config.Config{}, fmt.Errorf("reading environment: %w", err)
	}

	conf := config.Default().Apply(fileConf).Apply(envConf).Apply(flagConfig(flags))
	return conf, conf.Validate()
}

func (c *rootCommand) readConfigFile() (config.Config, error) {
	if c.flags.noConfig {
		return config.Config{}, nil
	}
	if c.flags.configPath != "" {
		path, err := c.absPath(c.flags.configPath)
		if err != nil {
			return config.Config{}, err
		}
		conf, err := config.LoadFile(c.gs.fs, path)
		if err != nil {
			return config.Config{}, err
		}
		return *conf, nil
	}

	wd, err := c.gs.getwd()
	if err != nil {
		return config.Config{}, err
	}
	conf, path, err := config.Load(c.gs.fs, wd)
	if err != nil || conf == nil {
		return config.Config{}, err
	}
	c.gs.logger.WithField("path", path).Debug("loaded config file")
	return *conf, nil
}

func (c *rootCommand) setupLoggers(conf config.Config) error {
	if err := conf.ConfigureLogger(c.gs.logger); err != nil {
		return err
	}
	if strings.EqualFold(conf.LogFormat.String, "json") {
		c.gs.logger.Debug("Logger format: JSON")
		return nil
	}
	c.gs.logger.SetFormatter(&logrus.TextFormatter{
		ForceColors: !c.flags.noColor && c.gs.stderrTTY, DisableColors: c.flags.noColor,
	})
	c.gs.logger.Debug("Logger format: TEXT")
	return nil
}

func (c *rootCommand) execute() {
	exitCode := 0
	defer func() {
		c.gs.osExit(exitCode)
	}()

	if err := c.cmd.Execute(); err != nil {
		exitCode = 1
		c.gs.logger.Error(err)
	}
}

// loadMap decodes the map at path, composed with the --compose-with map
// when one is given.
func (c *rootCommand) loadMap(path string) (sourcemap.SourceMap, error) {
	path, err := c.absPath(path)
	if err != nil {
		return nil, err
	}
	base, err := c.baseURL(path)
	if err != nil {
		return nil, err
	}
	m, err := c.decodeFile(path, base)
	if err != nil {
		return nil, err
	}
	if c.flags.composeWith == "" {
		return m, nil
	}

	parentPath, err := c.absPath(c.flags.composeWith)
	if err != nil {
		return nil, err
	}
	parent, err := c.decodeFile(parentPath, resolver.NewLocalFileURL(parentPath))
	if err != nil {
		return nil, err
	}
	return sourcemap.NewNested(m, parent), nil
}

func (c *rootCommand) baseURL(mapPath string) (resolver.URL, error) {
	if c.flags.baseURL == "" {
		return resolver.NewLocalFileURL(mapPath), nil
	}
	if u, ok := resolver.Parse(c.flags.baseURL); ok {
		return u, nil
	}
	p, err := c.absPath(c.flags.baseURL)
	if err != nil {
		return resolver.URL{}, err
	}
	return resolver.NewLocalFileURL(p), nil
}

func (c *rootCommand) absPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	wd, err := c.gs.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, path), nil
}

func (c *rootCommand) decodeFile(path string, base resolver.URL) (*sourcemap.OneLevel, error) {
	text, err := afero.ReadFile(c.gs.fs, path)
	if err != nil {
		return nil, err
	}

	opts := c.options
	opts.BaseURL = &base
	m, err := sourcemap.Decode(text, opts)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%s has no mappings", path)
	}
	c.gs.logger.WithFields(logrus.Fields{
		"path":    path,
		"sources": len(m.RawSources()),
		"names":   m.HasNameMappings(),
	}).Debug("decoded source map")
	return m, nil
}
