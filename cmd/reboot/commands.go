package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"reactorcore/pkg/geom"
	"reactorcore/pkg/instr"
	"reactorcore/pkg/reboot"
	"reactorcore/pkg/storage"

	"github.com/spf13/cobra"
)

var (
	radius int64
	limit  int
	runDB  string
	logDB  string
	verify bool
)

var rootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Replay reactor reboot steps and count lit cells",
}

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Apply the steps in a file and print the lit counts",
	Long: `Reads one instruction per line ("on x=a..b,y=c..d,z=e..f" or "off ...")
and prints the number of lit cells inside the init region followed by the
total number of lit cells.`,
	Args: cobra.ExactArgs(1),
	RunE: runSteps,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Append the steps in a file to a SQLite step log",
	Args:  cobra.ExactArgs(1),
	RunE:  importSteps,
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Apply every step stored in a SQLite step log",
	Args:  cobra.NoArgs,
	RunE:  replaySteps,
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&radius, "radius", 50, "half-width of the init region cube centred on the origin")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", -1, "apply only the first N steps (negative for all)")

	runCmd.Flags().StringVar(&runDB, "db", "", "also append the parsed steps to this SQLite file")
	runCmd.Flags().BoolVar(&verify, "verify", false, "check that the final partition is disjoint")

	importCmd.Flags().StringVar(&logDB, "db", "reboot.db", "SQLite file to append to")
	replayCmd.Flags().StringVar(&logDB, "db", "reboot.db", "SQLite file to replay")
	replayCmd.Flags().BoolVar(&verify, "verify", false, "check that the final partition is disjoint")

	rootCmd.AddCommand(runCmd, importCmd, replayCmd)
}

func readSteps(path string) ([]instr.Step, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return instr.ParseAll(f)
}

func runSteps(cmd *cobra.Command, args []string) error {
	steps, err := readSteps(args[0])
	if err != nil {
		return err
	}
	if runDB != "" {
		if err := appendToDB(runDB, steps); err != nil {
			return err
		}
	}
	return report(cmd, steps)
}

func importSteps(cmd *cobra.Command, args []string) error {
	steps, err := readSteps(args[0])
	if err != nil {
		return err
	}
	if err := appendToDB(logDB, steps); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d steps into %s\n", len(steps), logDB)
	return nil
}

func replaySteps(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(logDB); err != nil {
		return fmt.Errorf("step log %s: %w", logDB, err)
	}
	backend, err := storage.NewSQLiteBackend(logDB)
	if err != nil {
		return err
	}
	defer backend.Close()

	steps, err := backend.LoadSteps()
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return errors.New("step log is empty")
	}
	return report(cmd, steps)
}

func appendToDB(path string, steps []instr.Step) error {
	backend, err := storage.NewSQLiteBackend(path)
	if err != nil {
		return err
	}
	defer backend.Close()
	return backend.AppendSteps(steps)
}

func report(cmd *cobra.Command, steps []instr.Step) error {
	if radius < 0 {
		return fmt.Errorf("radius must not be negative, got %d", radius)
	}
	n := limit
	if n < 0 || n > len(steps) {
		n = len(steps)
	}

	start := time.Now()
	res := reboot.RunN(steps, n, geom.Cube(radius))
	log.Printf("[Reboot] %d steps -> %d boxes in %v", n, res.Entries, time.Since(start))

	if verify {
		if err := res.Partition.CheckDisjoint(); err != nil {
			return err
		}
		log.Printf("[Reboot] Verified %d boxes are pairwise disjoint.", res.Entries)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Region)
	fmt.Fprintln(out, res.Total)
	return nil
}
