package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/jadenpxrk/dirdoc/internal/archive"
	"github.com/jadenpxrk/dirdoc/internal/dirdoc"
	"github.com/jadenpxrk/dirdoc/internal/language"
	"github.com/jadenpxrk/dirdoc/internal/logging"
	"github.com/jadenpxrk/dirdoc/internal/scan"
	"github.com/jadenpxrk/dirdoc/internal/tokenizer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// version is the application version, set via ldflags.
var version = "dev"

const (
	appName       = "dirdoc"
	defaultOutput = "directory_documentation.md"
	bytesPerMB    = 1024 * 1024
)

var (
	cfgFile string // --config
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "dirdoc [DIRECTORY | GIT_URL]",
	Short: "dirdoc archives a directory tree into a Markdown document.",
	Long: `dirdoc walks a directory (or a cloned Git repository), honours .gitignore
files and writes the directory structure plus the contents of every text file
to a single Markdown archive. Large archives can be split into parts, and any
archive can be turned back into files with "dirdoc reconstruct".`,
	Version:           version,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setupLogger,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runGenerate,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/dirdoc/config.toml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	// Output
	rootCmd.Flags().StringP("output", "o", defaultOutput, "Output file, or '-' for stdout")
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	rootCmd.Flags().BoolP("clipboard", "c", false, "Also copy an unsplit archive to the clipboard")
	viper.BindPFlag("clipboard", rootCmd.Flags().Lookup("clipboard"))
	rootCmd.Flags().BoolP("structure-only", "s", false, "Only write the directory structure, no file contents")
	viper.BindPFlag("structure_only", rootCmd.Flags().Lookup("structure-only"))

	// Filtering
	rootCmd.Flags().StringSliceP("ignore", "i", nil, "Extra ignore patterns in .gitignore syntax (comma-separated or repeated)")
	viper.BindPFlag("ignore", rootCmd.Flags().Lookup("ignore"))
	rootCmd.Flags().Bool("no-gitignore", false, "Don't respect .gitignore files")
	viper.BindPFlag("no_gitignore", rootCmd.Flags().Lookup("no-gitignore"))
	rootCmd.Flags().Bool("include-git", false, "Descend into .git directories")
	viper.BindPFlag("include_git", rootCmd.Flags().Lookup("include-git"))
	rootCmd.Flags().Int("max-depth", 0, "Maximum directory depth to list (0 for no limit)")
	viper.BindPFlag("max_depth", rootCmd.Flags().Lookup("max-depth"))
	rootCmd.Flags().StringSlice("text-ext", nil, "Extra file extensions to treat as text (e.g. .proto,.tf)")
	viper.BindPFlag("text_extensions", rootCmd.Flags().Lookup("text-ext"))

	// Splitting
	rootCmd.Flags().Bool("split", false, "Split the archive into parts when it exceeds --split-limit")
	viper.BindPFlag("split", rootCmd.Flags().Lookup("split"))
	rootCmd.Flags().Float64("split-limit", 18, "Maximum size of one archive part in MB")
	viper.BindPFlag("split_limit_mb", rootCmd.Flags().Lookup("split-limit"))
	rootCmd.Flags().String("oversize", "ask", "What to do with an archive over the limit: ask, split, structure, continue or quit")
	viper.BindPFlag("oversize_action", rootCmd.Flags().Lookup("oversize"))

	// Token Counting
	rootCmd.Flags().String("tokenizer", tokenizer.KindTiktoken, "Tokenizer to use: tiktoken, huggingface or approx")
	viper.BindPFlag("tokenizer", rootCmd.Flags().Lookup("tokenizer"))
	rootCmd.Flags().String("model", "", "Model name for tokenizer (e.g., gpt-4o, gpt2)")
	viper.BindPFlag("model", rootCmd.Flags().Lookup("model"))
	rootCmd.Flags().String("tokenizer-file", "", "Path to local tokenizer.json")
	viper.BindPFlag("tokenizer_file", rootCmd.Flags().Lookup("tokenizer-file"))

	viper.SetDefault("output", defaultOutput)
	viper.SetDefault("split_limit_mb", 18)
	viper.SetDefault("oversize_action", "ask")
	viper.SetDefault("tokenizer", tokenizer.KindTiktoken)
	viper.SetDefault("max_depth", 0)

	rootCmd.AddCommand(reconstructCmd)
}

// configDir is where config.toml and languages.yml are looked up.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if dir := configDir(); dir != "" {
			viper.AddConfigPath(dir)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("DIRDOC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match DIRDOC_*

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}
}

func setupLogger(cmd *cobra.Command, args []string) error {
	l, err := logging.New(viper.GetBool("debug"), appName, version)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = l
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("Using config file", zap.String("path", used))
	}
	return nil
}

// loadOptions turns the resolved configuration into run options.
func loadOptions() (dirdoc.Options, error) {
	limitMB := viper.GetFloat64("split_limit_mb")
	if limitMB < 0 {
		return dirdoc.Options{}, fmt.Errorf("split limit must not be negative, got %g", limitMB)
	}
	return dirdoc.Options{
		Ignore: viper.GetStringSlice("ignore"),
		Scan: scan.Options{
			NoGitignore: viper.GetBool("no_gitignore"),
			IncludeGit:  viper.GetBool("include_git"),
			MaxDepth:    viper.GetInt("max_depth"),
		},
		StructureOnly: viper.GetBool("structure_only"),
		Split:         viper.GetBool("split"),
		SplitLimit:    int(limitMB * bytesPerMB),
	}, nil
}

// loadLanguages merges a user languages.yml over the embedded table.
func loadLanguages() (*language.Table, error) {
	var dirs []string
	if dir := configDir(); dir != "" {
		dirs = append(dirs, dir)
	}
	table, path, err := language.Load(dirs...)
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("Loaded language definitions", zap.String("path", path))
	}
	table.AddTextExtensions(viper.GetStringSlice("text_extensions")...)
	return table, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	input := "."
	if len(args) == 1 {
		input = args[0]
	}

	opts, err := loadOptions()
	if err != nil {
		return err
	}
	dest := viper.GetString("output")
	if dest == "" {
		dest = defaultOutput
	}
	if dest == stdoutPath {
		opts.Split = false
	} else {
		opts.Exclude = []string{dest}
	}
	decider, err := newDecider(viper.GetString("oversize_action"))
	if err != nil {
		return err
	}
	table, err := loadLanguages()
	if err != nil {
		return err
	}

	root := input
	if isGitURL(input) {
		dir, err := cloneGitRepo(cmd.Context(), input)
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		root = dir
		opts.Name = repoName(input)
	}

	counter := tokenizer.New(tokenizer.Config{
		Kind:  viper.GetString("tokenizer"),
		Model: viper.GetString("model"),
		File:  viper.GetString("tokenizer_file"),
	}, logger)
	defer counter.Close()

	fmt.Fprintf(os.Stderr, "⏳ Scanning directory '%s'...\n", input)
	out, err := dirdoc.Generate(root, opts, dirdoc.Deps{
		Inspector: archive.NewFileInspector(table),
		Counter:   counter,
		Decide:    decider,
		Logger:    logger,
	})
	if errors.Is(err, dirdoc.ErrAborted) {
		fmt.Fprintln(os.Stderr, "Creation cancelled by user.")
		return nil
	}
	if err != nil {
		return err
	}
	if out.Result.Tree.Len() == 0 {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Warning: All files in directory '%s' were ignored.\n", input)
	}
	fmt.Fprintf(os.Stderr, "✅ Directory scan complete. Found %d entries.\n", out.Result.Tree.Len())

	written, err := writeOutput(out, dest)
	if err != nil {
		return err
	}
	if viper.GetBool("clipboard") {
		copyToClipboard(out)
	}
	if dest != stdoutPath {
		printStats(os.Stderr, written, out)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
