package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"photopost/pkg/config"
	"photopost/pkg/discovery"
	"photopost/pkg/ledger"
	"photopost/pkg/selection"
	"photopost/pkg/ui"
)

var (
	ledgerPath string
	assumeYes  bool
)

// ledgerCmd represents the ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect or reset post counts",
	Long: `The ledger is a JSON file mapping each posted photo to the number of
times it has been posted. Selection weights are derived from it.`,
}

// ledgerShowCmd represents the ledger show command
var ledgerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show post counts and the chance of each photo being picked next",
	Args:  cobra.NoArgs,
	RunE:  runLedgerShow,
}

// ledgerResetCmd represents the ledger reset command
var ledgerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget all post counts",
	Args:  cobra.NoArgs,
	RunE:  runLedgerReset,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerResetCmd)

	ledgerCmd.PersistentFlags().StringVar(&ledgerPath, "ledger", "", "ledger file")
	ledgerShowCmd.Flags().StringVarP(&sourceDir, "source", "s", "", "photo source folder")
	ledgerResetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
}

func openLedger() (*config.Config, *ledger.Ledger, func(), error) {
	cfg, err := loadConfig(false, map[string]interface{}{
		"ledger": ledgerPath,
		"source": sourceDir,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, ledger.New(cfg.Posting.LedgerPath, log), closeLog, nil
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	cfg, l, closeLog, err := openLedger()
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Posting.AfterPost == config.AfterPostArchive {
		ui.PrintWarning("after_post is archive; the ledger is not used for selection")
	}

	candidates, err := discovery.FindAll(cfg.Photos.SourceDir, cfg.Photos.Extensions, cfg.Photos.ResizedDir)
	if err != nil {
		return err
	}
	counts := l.Load()

	ui.PrintInfo("Ledger", l.Path())
	ui.PrintInfo("Source", cfg.Photos.SourceDir)
	ui.PrintInfo("Photos", strconv.Itoa(len(candidates)))
	ui.PrintInfo("Recorded", strconv.Itoa(len(counts)))
	if len(candidates) == 0 {
		return nil
	}

	weights := selection.Weights(candidates, counts)
	total := 0
	for _, w := range weights {
		total += w
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return weights[order[a]] > weights[order[b]] })

	rows := make([][]string, 0, len(candidates))
	for _, i := range order {
		rows = append(rows, []string{
			strconv.Itoa(counts[candidates[i]]),
			strconv.Itoa(weights[i]),
			fmt.Sprintf("%.1f%%", 100*float64(weights[i])/float64(total)),
			relativeTo(cfg.Photos.SourceDir, candidates[i]),
		})
	}
	ui.PrintTable([]string{"POSTED", "WEIGHT", "CHANCE", "PHOTO"}, rows)
	return nil
}

func runLedgerReset(cmd *cobra.Command, args []string) error {
	_, l, closeLog, err := openLedger()
	if err != nil {
		return err
	}
	defer closeLog()

	if !assumeYes {
		fmt.Printf("Forget all post counts in %s? (y/N): ", l.Path())
		input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	if err := l.Save(ledger.Counts{}); err != nil {
		return err
	}
	ui.PrintSuccess("Ledger reset: " + l.Path())
	return nil
}

// relativeTo shortens path for display when it lies below root
func relativeTo(root, path string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(abs, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
