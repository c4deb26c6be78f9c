package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hailam/chessmind/internal/config"
	"github.com/hailam/chessmind/internal/pattern"
	"github.com/hailam/chessmind/internal/store"
)

var (
	configPath string
	dbDir      string
	limit      int

	rootCmd = &cobra.Command{
		Use:   "chessmind",
		Short: "Inspect what a chessmind engine has learned",
		Long: `Chessmind reads the persistent store an engine writes while it plays
and prints its learned state: abstract patterns with outcome counters,
the most used cache entries, the position clustering index, discovered
evaluator weights and the game log. Nothing is ever modified.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	patternsCmd = &cobra.Command{
		Use:   "patterns",
		Short: "List learned abstract patterns with their outcome counters",
		Args:  cobra.NoArgs,
		RunE:  runPatterns,
	}
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "List the most used persisted cache entries",
		Args:  cobra.NoArgs,
		RunE:  runCache,
	}
	clustersCmd = &cobra.Command{
		Use:   "clusters",
		Short: "Summarize the position clustering index",
		Args:  cobra.NoArgs,
		RunE:  runClusters,
	}
	gamesCmd = &cobra.Command{
		Use:   "games",
		Short: "List recently recorded games",
		Args:  cobra.NoArgs,
		RunE:  runGames,
	}
	weightsCmd = &cobra.Command{
		Use:   "weights",
		Short: "List discovered evaluator weight constants",
		Args:  cobra.NoArgs,
		RunE:  runWeights,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config overlay")
	rootCmd.PersistentFlags().StringVar(&dbDir, "db", "", "store directory (overrides the config)")
	rootCmd.PersistentFlags().IntVarP(&limit, "limit", "n", 20, "maximum rows to print")

	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(clustersCmd)
	rootCmd.AddCommand(gamesCmd)
	rootCmd.AddCommand(weightsCmd)
}

// openStore loads the config overlay and opens the badger store it points
// at. The caller closes the store; badger holds the directory lock until
// then.
func openStore() (config.Config, store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	if dbDir != "" {
		cfg.Store.Dir = dbDir
	}
	st, err := store.NewBadger(cfg.Store.Dir)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, st, nil
}

func runPatterns(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.Patterns().All()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no patterns learned yet")
		return nil
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TimesSeen > rows[j].TimesSeen
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	fmt.Printf("%-28s %-44s %5s %4s %4s %4s %8s %8s\n",
		"TYPE", "DESCRIPTION", "SEEN", "W", "L", "D", "AVGLOSS", "WINRATE")
	for _, row := range rows {
		head := fmt.Sprintf("%-28s %-44s %5d %4d %4d %4d %8.2f ",
			row.Type, clip(row.Description, 44), row.TimesSeen,
			row.Wins, row.Losses, row.Draws, row.AvgLoss)
		cell := fmt.Sprintf("%8.2f", row.WinRate)

		// Rows below the configured confidence floor do not yet influence
		// search; print them dimmed and uncolored.
		a := pattern.Abstract{TimesSeen: row.TimesSeen}
		if a.Confidence() < cfg.Pattern.MinConfidence {
			fmt.Println(faint(head + cell))
			continue
		}
		if row.Wins+row.Losses+row.Draws > 0 {
			if row.WinRate >= 0.5 {
				cell = green(cell)
			} else {
				cell = red(cell)
			}
		}
		fmt.Println(head + cell)
	}
	return nil
}

func runCache(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.Cache().Top(limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no cache entries persisted yet")
		return nil
	}

	fmt.Printf("%-44s %-12s %9s %6s %9s\n",
		"POSITION", "MOVE", "BONUS", "USES", "QUERY MS")
	for _, row := range rows {
		cell := fmt.Sprintf("%9.2f", row.Bonus)
		switch {
		case row.Bonus > 0:
			cell = green(cell)
		case row.Bonus < 0:
			cell = red(cell)
		}
		fmt.Printf("%-44s %-12s %s %6d %9.2f\n",
			clip(string(row.Key.Position), 44), clip(string(row.Key.Move), 12),
			cell, row.Uses, row.QueryMS)
	}
	return nil
}

func runClusters(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	centers, err := st.Clusters().Centers()
	if err != nil {
		return err
	}
	if len(centers) == 0 {
		fmt.Println("no cluster index built yet")
		return nil
	}

	sort.SliceStable(centers, func(i, j int) bool {
		return centers[i].ID < centers[j].ID
	})
	if len(centers) > limit {
		centers = centers[:limit]
	}

	total := 0
	fmt.Printf("%4s %6s %10s %10s\n", "ID", "SIZE", "AVG DIST", "MAX DIST")
	for _, c := range centers {
		members, err := st.Clusters().Members(c.ID)
		if err != nil {
			return err
		}
		var sum, max float64
		for _, m := range members {
			sum += m.Distance
			if m.Distance > max {
				max = m.Distance
			}
		}
		avg := 0.0
		if len(members) > 0 {
			avg = sum / float64(len(members))
		}
		total += len(members)
		fmt.Printf("%4d %6d %10.3f %10.3f\n", c.ID, c.Size, avg, max)
	}
	fmt.Printf("\n%d clusters, %d member positions\n", len(centers), total)
	return nil
}

func runGames(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.Games().Recent(limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no games recorded yet")
		return nil
	}

	fmt.Printf("%-36s %-6s %-6s %6s %9s  %s\n",
		"ID", "MOVER", "RESULT", "PLIES", "MISTAKES", "WHEN")
	for _, row := range rows {
		cell := fmt.Sprintf("%-6s", row.Result)
		switch row.Result {
		case "win":
			cell = green(cell)
		case "loss":
			cell = red(cell)
		}
		fmt.Printf("%-36s %-6s %s %6d %9d  %s\n",
			row.ID, row.Mover, cell, row.Plies, row.Mistakes,
			row.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runWeights(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.Weights().All()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no weights discovered yet, builtin baselines apply")
		return nil
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Name < rows[j].Name
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	fmt.Printf("%-32s %10s  %s\n", "NAME", "VALUE", "UPDATED")
	for _, row := range rows {
		fmt.Printf("%-32s %10.4f  %s\n",
			row.Name, row.Value, row.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
