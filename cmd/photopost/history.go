package main

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"photopost/pkg/history"
	"photopost/pkg/ui"
)

var (
	historyLimit   int
	historyByPhoto bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent posts from the history journal",
	Long: `List recent posts recorded in the history journal.

The journal is only written when posting.history_path (or
PHOTOPOST_HISTORY_PATH) is set.`,
	Example: `  # Last 20 posts
  photopost history

  # How often each photo was posted
  photopost history --by-photo`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of posts to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyByPhoto, "by-photo", false, "show post counts per photo instead")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false, nil)
	if err != nil {
		return err
	}
	if cfg.Posting.HistoryPath == "" {
		return errors.New("history is disabled: set posting.history_path")
	}

	journal, err := history.Open(cfg.Posting.HistoryPath)
	if err != nil {
		return err
	}
	defer journal.Close()

	ctx := context.Background()

	if historyByPhoto {
		counts, err := journal.CountByPath(ctx)
		if err != nil {
			return err
		}
		paths := make([]string, 0, len(counts))
		for p := range counts {
			paths = append(paths, p)
		}
		sort.Slice(paths, func(i, j int) bool {
			if counts[paths[i]] != counts[paths[j]] {
				return counts[paths[i]] > counts[paths[j]]
			}
			return paths[i] < paths[j]
		})

		rows := make([][]string, 0, len(paths))
		for _, p := range paths {
			rows = append(rows, []string{strconv.Itoa(counts[p]), relativeTo(cfg.Photos.SourceDir, p)})
		}
		ui.PrintTable([]string{"POSTS", "PHOTO"}, rows)
		return nil
	}

	entries, err := journal.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.PrintInfo("History", "no posts yet")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		resized := ""
		if e.Resized {
			resized = "yes"
		}
		rows = append(rows, []string{
			e.PostedAt.Local().Format("2006-01-02 15:04"),
			e.ChatID,
			strconv.Itoa(e.MessageID),
			resized,
			relativeTo(cfg.Photos.SourceDir, e.Path),
		})
	}
	ui.PrintTable([]string{"POSTED", "CHAT", "MESSAGE", "RESIZED", "PHOTO"}, rows)
	return nil
}
