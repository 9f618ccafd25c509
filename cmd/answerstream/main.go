// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the answerstream CLI: a terminal
// client for the streaming research-assistant backend. Asking a question
// opens a server-sent-event stream and renders multi-stage progress
// (question evaluation, paper retrieval, paper analysis, answer
// synthesis) as events arrive; completed answers are archived locally.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/answerstream/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// apiKeySecret is the secrets file holding the backend bearer token.
const apiKeySecret = "answerstream-api-key"

// secretDefault returns fallback if set, otherwise the loaded secret for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the answerstream CLI.
var rootCmd = &cobra.Command{
	Use:   "answerstream",
	Short: "Terminal client for the streaming research assistant",
	Long: `answerstream asks a research question and streams back a multi-stage
answer from the research backend: the question is evaluated, relevant papers
are retrieved and analyzed, and an answer with citations is synthesized.
Progress is rendered as it streams; completed answers are archived locally.

Use ask to submit a question, history to browse past answers, export to dump
the archive, and status to check backend availability.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./answerstream.yaml or ~/.config/answerstream/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("answerstream")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "answerstream"))
		}
	}

	viper.SetEnvPrefix("ANSWERSTREAM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
