package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "logsieve",
	Short: "logsieve: flag log lines that resemble known attacks",
	Long: `logsieve scores web-server log lines against a dictionary built from a
corpus of known-malicious requests. Each line gets an edit-distance and
bigram-overlap score and a LOW, MEDIUM or HIGH criticality; HIGH lines are
appended to a flagged-log file.

The dictionary is rebuilt automatically whenever a corpus file changes.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.logsieve.yaml)")
	pf.StringP("workdir", "w", ".", "directory holding corpus, delimiter, dictionary and hash files")
	pf.StringP("output", "o", "text", "output format: text, json")
	pf.StringP("min-level", "l", "low", "only show verdicts at or above this criticality: low, medium, high")
	pf.StringP("format", "f", "raw", "log line format: raw, clf, json, auto")
	pf.String("url", "keep", "URL escape handling: keep, decode, remove")
	pf.IntP("workers", "j", 0, "scoring goroutines (0 = GOMAXPROCS)")
	pf.BoolP("verbose", "v", false, "print per-token diagnostics")

	bind(pf.Lookup("workdir"), "workdir")
	bind(pf.Lookup("output"), "output")
	bind(pf.Lookup("min-level"), "min_level")
	bind(pf.Lookup("format"), "tokenizer.format")
	bind(pf.Lookup("url"), "tokenizer.url")
	bind(pf.Lookup("workers"), "workers")
	bind(pf.Lookup("verbose"), "verbose")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".logsieve")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LOGSIEVE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}
