// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meshintel/answerstream/internal/archive"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse archived answers",
	Long: `History lists completed queries from the local archive, newest first.
Use history show to print one archived answer in full.`,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print one archived answer in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.PersistentFlags().String("archive-dir", "", "archive directory (default \"archive\")")
	historyCmd.Flags().Int("max-results", 20, "maximum number of entries to list")
	historyCmd.AddCommand(historyShowCmd)

	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := archive.NewStore(archiveConfigFromFlags(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.List(context.Background())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No archived answers.")
		return nil
	}

	fmt.Printf("%-36s  %-16s  %-6s  %s\n", "ID", "Date", "Papers", "Query")
	fmt.Println(strings.Repeat("-", 100))
	for _, s := range summaries {
		fmt.Printf("%-36s  %-16s  %-6d  %s\n",
			s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Papers, truncate(s.Query, 40))
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := archive.NewStore(archiveConfigFromFlags(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Query: %s\n", rec.Query)
	if rec.QueryWord != "" {
		fmt.Printf("Search term: %s\n", rec.QueryWord)
	}
	fmt.Printf("Date: %s\n\n", rec.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Println(rec.Answer)

	if len(rec.Papers) > 0 {
		fmt.Println()
		FormatPapers(rec.Papers, os.Stdout)
	}
	if len(rec.Citations) > 0 {
		fmt.Println("\nCitations:")
		for _, c := range rec.Citations {
			fmt.Printf("  [%s] %s (%s). %s\n", c.Key, c.Title, c.Year, c.Link)
		}
	}
	return nil
}
