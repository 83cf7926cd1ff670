package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jadenpxrk/dirdoc/internal/archive"
	"github.com/jadenpxrk/dirdoc/internal/reconstruct"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct ARCHIVE [ARCHIVE...]",
	Short: "Recreate files and directories from dirdoc archives",
	Long: `Reconstruct reads one or more archives in order and writes every file record
below the target directory. Binary files come back empty. Naming the unsplit
output path (e.g. directory_documentation.md) picks up its _partN files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReconstruct,
}

func init() {
	reconstructCmd.Flags().StringP("dir", "d", ".", "Directory to reconstruct into")
	viper.BindPFlag("reconstruct_dir", reconstructCmd.Flags().Lookup("dir"))
}

// expandParts returns path itself if it exists, otherwise its numbered
// parts in order.
func expandParts(path string) []string {
	if _, err := os.Stat(path); err == nil {
		return []string{path}
	}
	var parts []string
	for n := 1; ; n++ {
		name := archive.PartName(path, n)
		if _, err := os.Stat(name); err != nil {
			break
		}
		parts = append(parts, name)
	}
	if len(parts) == 0 {
		return []string{path} // let the open fail with a real error
	}
	return parts
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	outDir := viper.GetString("reconstruct_dir")
	if outDir == "" {
		outDir = "."
	}

	var total reconstruct.Stats
	for _, arg := range args {
		for _, doc := range expandParts(arg) {
			fmt.Fprintf(os.Stderr, "⏳ Reconstructing from '%s'...\n", doc)
			stats, err := reconstruct.ReconstructFile(doc, outDir, logger)
			if err != nil {
				return err
			}
			logger.Debug("Archive done", zap.String("archive", doc), zap.Int("files", stats.Files))
			total.Add(stats)
		}
	}

	color.New(color.FgGreen).Fprintf(os.Stderr, "✨ Reconstructed %d files into %s\n", total.Files, outDir)
	if total.Placeholders > 0 {
		fmt.Fprintf(os.Stderr, "   - %d binary or unreadable files were restored empty\n", total.Placeholders)
	}
	if total.Skipped > 0 {
		color.New(color.FgYellow).Fprintf(os.Stderr, "   - %d records could not be written\n", total.Skipped)
	}
	return nil
}
