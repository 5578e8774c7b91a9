package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	emtf "github.com/next-exp/emtf_go/pkg"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the pt models and lookup tables",
}

var inspectForestCmd = &cobra.Command{
	Use:   "forest",
	Short: "Summarize the configured decision-tree forest",
	RunE:  inspectForest,
}

var inspectLUTCmd = &cobra.Command{
	Use:   "lut [file]",
	Short: "Check a pt LUT file and print a few entries",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectLUT,
}

var inspectPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Print the active pattern table",
	RunE:  inspectPatterns,
}

var inspectLUTVersion int

func init() {
	inspectLUTCmd.Flags().IntVar(&inspectLUTVersion, "version", 4, "Expected LUT version")
	inspectCmd.AddCommand(inspectForestCmd)
	inspectCmd.AddCommand(inspectLUTCmd)
	inspectCmd.AddCommand(inspectPatternsCmd)
}

func inspectForest(cmd *cobra.Command, args []string) error {
	config, err := loadConfiguration()
	if err != nil {
		return err
	}
	forest, err := emtf.EmbeddedForest(config.PtAssignVersion, config.BDTXMLDir)
	if err != nil {
		return err
	}
	fmt.Printf("forest %s version %d\n", forest.Dir, forest.Version)
	for _, mode := range forest.Modes() {
		fmt.Printf("  mode %2d: %d trees\n", mode, forest.NumTrees(mode))
	}
	for _, r := range forest.Ranges() {
		fmt.Printf("  feature %2d in [%g, %g]\n", r.Feature, r.Min, r.Max)
	}
	fmt.Printf("  %d nodes\n", len(forest.Lines()))
	return nil
}

func inspectLUT(cmd *cobra.Command, args []string) error {
	filename := args[0]
	if info, err := os.Stat(filename); err == nil {
		fmt.Printf("%s: %s\n", filename, humanize.Bytes(uint64(info.Size())))
	}
	lut, err := emtf.LoadPtLUTFile(filename, inspectLUTVersion)
	if err != nil {
		return err
	}
	fmt.Printf("version %d\n", lut.Version())
	for address := uint32(1); address < 1<<emtf.PtAddressBits; address <<= 1 {
		gmt := lut.Lookup(address)
		fmt.Printf("  address %#08x: gmt pt %3d (%g GeV)\n", address, gmt, emtf.DecodeGMTPt(gmt))
	}
	return nil
}

func inspectPatterns(cmd *cobra.Command, args []string) error {
	config, err := loadConfiguration()
	if err != nil {
		return err
	}
	matcher, err := emtf.NewMatcher(&config)
	if err != nil {
		return err
	}
	for _, p := range matcher.Patterns() {
		fmt.Printf("pattern %d straightness %d:", p.Index, p.Straightness)
		for st, windows := range p.Windows {
			fmt.Printf(" ME%d", st+1)
			for _, w := range windows {
				fmt.Printf(" [%d,%d]", w.Lo, w.Hi)
			}
		}
		fmt.Println()
	}
	return nil
}
