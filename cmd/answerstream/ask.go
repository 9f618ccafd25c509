// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/answerstream/internal/archive"
	"github.com/meshintel/answerstream/internal/notify"
	"github.com/meshintel/answerstream/internal/query"
	"github.com/meshintel/answerstream/internal/stream"
	"github.com/meshintel/answerstream/pkg/types"
)

const (
	defaultTimeout   = 5 * time.Minute
	defaultUserAgent = "answerstream/0.1"
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask a research question and stream the answer",
	Long: `Ask submits a question to the research backend and streams the answer back.
Stage progress, retrieved papers, and the answer text are rendered as events
arrive. Interrupt (Ctrl-C) cancels the stream. Completed answers are archived
unless --no-archive is given.`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("base-url", "", "backend base URL (or client.base_url in config)")
	askCmd.Flags().Duration("timeout", 0, "stream inactivity timeout (default 5m)")
	askCmd.Flags().String("api-key", "", "backend API key (or .secrets/answerstream-api-key)")
	askCmd.Flags().String("archive-dir", "", "archive directory (default \"archive\")")
	askCmd.Flags().Bool("no-archive", false, "do not archive the completed answer")
	askCmd.Flags().Bool("notify", false, "print a completion notice when the query finishes")
	askCmd.Flags().Bool("papers", true, "print the paper table after the answer")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("provide a research question")
	}

	cfg := clientConfigFromFlags(cmd)
	if cfg.BaseURL == "" {
		return fmt.Errorf("no backend configured: set --base-url or client.base_url in the config file")
	}

	state := query.New(os.Stderr)
	renderer := newProgressRenderer(os.Stdout, os.Stderr)
	state.OnChange(renderer.Render)

	session := stream.NewSession(cfg, state, os.Stderr)

	var notifier notify.Notifier = notify.Nop{}
	if doNotify, _ := cmd.Flags().GetBool("notify"); doNotify || viper.GetBool("notify.enabled") {
		notifier = &notify.WriterNotifier{W: os.Stderr}
	}

	start := time.Now()
	if err := session.Start(question); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	select {
	case <-session.Done():
	case <-sigCh:
		session.Cancel()
		fmt.Fprintln(os.Stderr, "\ncancelled")
		return nil
	}

	snap := state.Snapshot()
	if snap.Err != nil {
		notifier.Notify(notify.Event{Query: question, Err: snap.Err, Elapsed: time.Since(start)})
		return snap.Err
	}

	if showPapers, _ := cmd.Flags().GetBool("papers"); showPapers {
		renderer.Finish(snap)
	}

	if noArchive, _ := cmd.Flags().GetBool("no-archive"); !noArchive {
		if err := archiveSnapshot(cmd, snap); err != nil {
			fmt.Fprintf(os.Stderr, "warning: archiving failed: %v\n", err)
		}
	}

	notifier.Notify(notify.Event{Query: question, Completed: true, Elapsed: time.Since(start)})
	return nil
}

// archiveSnapshot saves a completed query snapshot to the local archive.
func archiveSnapshot(cmd *cobra.Command, snap query.Snapshot) error {
	store, err := archive.NewStore(archiveConfigFromFlags(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	rec := recordFromSnapshot(snap)
	if err := store.Save(context.Background(), rec); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Archived as %s\n", rec.ID)
	return nil
}

// recordFromSnapshot builds the archive record for a completed query.
// The terminal result's answer is authoritative when present; otherwise
// the token-accumulated text is used.
func recordFromSnapshot(snap query.Snapshot) *archive.Record {
	rec := &archive.Record{
		Query:  snap.Query,
		Answer: snap.Answer,
		Papers: snap.Papers,
	}
	if snap.Result != nil {
		if snap.Result.Answer != "" {
			rec.Answer = snap.Result.Answer
		}
		rec.QueryWord = snap.Result.QueryWord
	}

	keys := make([]string, 0, len(snap.Citations))
	for k := range snap.Citations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec.Citations = append(rec.Citations, snap.Citations[k])
	}
	return rec
}

// clientConfigFromFlags assembles the streaming client configuration
// from flags, config file, and loaded secrets.
func clientConfigFromFlags(cmd *cobra.Command) types.ClientConfig {
	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = viper.GetString("client.base_url")
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = viper.GetDuration("client.timeout")
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}
	apiKey, _ := cmd.Flags().GetString("api-key")

	return types.ClientConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		BaseURL: baseURL,
		APIKey:  secretDefault(apiKeySecret, apiKey),
	}
}

// archiveConfigFromFlags assembles the archive configuration.
func archiveConfigFromFlags(cmd *cobra.Command) types.ArchiveConfig {
	archiveDir, _ := cmd.Flags().GetString("archive-dir")
	if archiveDir == "" {
		archiveDir = viper.GetString("archive.archive_dir")
	}
	if archiveDir == "" {
		archiveDir = "archive"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.ArchiveConfig{
		ArchiveDir: archiveDir,
		MaxResults: maxResults,
	}
}
