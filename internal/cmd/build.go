package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atikulmunna/logsieve/internal/engine"
	"github.com/atikulmunna/logsieve/internal/fileops"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Check corpus hashes and build or load the token dictionary",
	Long: `Build compares every corpus file against its stored hash. If any file
changed, or --force is given, the dictionary is rebuilt from the corpus and
the hashes are saved; otherwise the existing dictionary is loaded as is.

Examples:
  logsieve build
  logsieve build --force --list`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().Bool("force", false, "rebuild even when the corpus is unchanged")
	buildCmd.Flags().Bool("list", false, "print the dictionary tokens")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	list, _ := cmd.Flags().GetBool("list")

	fsys, err := fileops.NewOS(cfg.Workdir)
	if err != nil {
		return err
	}
	eng, err := engine.Prepare(cmd.Context(), fsys, cfg.engineOptions(force))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "corpus files: %d (%d lines)\n", len(eng.CorpusFiles), eng.CorpusLines)
	fmt.Fprintf(out, "delimiters:   %d\n", len(eng.Delimiters))
	fmt.Fprintf(out, "dictionary:   %d tokens (stale=%v rebuilt=%v)\n", eng.Dictionary.Len(), eng.Stale, eng.Rebuilt)
	if list {
		for _, t := range eng.Dictionary.Tokens() {
			fmt.Fprintln(out, t)
		}
	}
	return nil
}
