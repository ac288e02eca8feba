package main

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"yashubustudio/densityfit/host"
	"yashubustudio/densityfit/plot"
	"yashubustudio/densityfit/scoring"
)

func newSCCCCmd(c *cli, defaults scoring.Fields) *cobra.Command {
	var modelPath, mapPath string
	cmd := &cobra.Command{
		Use:   "sccc",
		Short: "Score rigid bodies of a model with the segment cross-correlation coefficient.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.session(modelPath, mapPath)
			if err != nil {
				return err
			}
			eng, err := c.engine(s)
			if err != nil {
				return err
			}
			svc, err := scoring.NewService(s, eng, nil, c.logger)
			if err != nil {
				return err
			}
			res, err := svc.RunSCCC(cmd.Context(), c.fields())
			if err != nil {
				return err
			}
			return writeSegments(cmd.OutOrStdout(), res.Model, res.SCCCResult)
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "PDB model file")
	cmd.Flags().StringVar(&mapPath, "map", "", "MRC/CCP4 map file")
	cmd.Flags().String("rigid", "", "Rigid-body file")
	cmd.Flags().String("resolution", defaults.Resolution, "Map resolution in Angstrom")
	cmd.Flags().String("sigma", defaults.Sigma, "Sigma coefficient of the simulated map")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("map")
	return cmd
}

func newSMOCCmd(c *cli, defaults scoring.Fields) *cobra.Command {
	var (
		modelPaths                   []string
		mapPath                      string
		csvPath, parquetPath, pngOut string
		pick                         string
	)
	cmd := &cobra.Command{
		Use:   "smoc",
		Short: "Score every residue of one or more models with the segment Manders' overlap coefficient.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var px, py float64
			if pick != "" {
				var err error
				if px, py, err = parsePick(pick); err != nil {
					return err
				}
			}
			s, err := c.session(append(append([]string(nil), modelPaths...), mapPath)...)
			if err != nil {
				return err
			}
			eng, err := c.engine(s)
			if err != nil {
				return err
			}
			surface := plot.NewPNGSurface(pngOut)
			manager := plot.NewManager(func() (plot.Surface, error) { return surface, nil }, s, c.logger)
			svc, err := scoring.NewService(s, eng, manager, c.logger)
			if err != nil {
				return err
			}
			snap, err := svc.RunSMOC(cmd.Context(), c.fields())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := writeSMOCSummary(out, snap); err != nil {
				return err
			}
			if csvPath != "" {
				if err := writeCSVFile(csvPath, snap); err != nil {
					return err
				}
				fmt.Fprintf(out, "Scores written to %s\n", csvPath)
			}
			if parquetPath != "" {
				if err := plot.WriteParquet(snap, parquetPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "Scores written to %s\n", parquetPath)
			}
			if pngOut != "" {
				fmt.Fprintf(out, "Plot saved to %s\n", pngOut)
			}
			if pick != "" {
				surface.Click(px, py)
				writePick(out, s, snap, px, py)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&modelPaths, "model", nil, "PDB model file (repeatable)")
	cmd.Flags().StringVar(&mapPath, "map", "", "MRC/CCP4 map file")
	cmd.Flags().String("rigid", "", "Optional rigid-body file")
	cmd.Flags().String("resolution", defaults.Resolution, "Map resolution in Angstrom")
	cmd.Flags().String("sigma", defaults.Sigma, "Sigma coefficient of the simulated map")
	cmd.Flags().String("window", defaults.Window, "Residue window size")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write per-residue scores as CSV")
	cmd.Flags().StringVar(&parquetPath, "parquet", "", "Write per-residue scores as Parquet")
	cmd.Flags().StringVar(&pngOut, "png", "", "Save the score plot")
	cmd.Flags().StringVar(&pick, "pick", "", "Select the residue nearest to plot point x,y")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("map")
	return cmd
}

func newNMICmd(c *cli, defaults scoring.Fields) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nmi ENTITY ENTITY",
		Short: "Score a model against a map, or two maps, with normalised mutual information.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.session(args...)
			if err != nil {
				return err
			}
			eng, err := c.engine(s)
			if err != nil {
				return err
			}
			svc, err := scoring.NewService(s, eng, nil, c.logger)
			if err != nil {
				return err
			}
			score, err := svc.RunNMI(cmd.Context(), c.fields())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %.4f\n", labelColor.Sprint("NMI score:"), score)
			return err
		},
	}
	cmd.Flags().String("resolution", defaults.Resolution, "Resolution of the first entity")
	cmd.Flags().String("resolution2", defaults.Resolution2, "Resolution of the second entity")
	cmd.Flags().String("contour1", defaults.Contour1, "Contour level of the first entity")
	cmd.Flags().String("contour2", defaults.Contour2, "Contour level of the second entity")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of densityfit.",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("densityfit CLI\n")
			cmd.Printf("  Version: %s\n", version)
			cmd.Printf("  Commit:  %s\n", commit)
			cmd.Printf("  Runtime: %s\n", runtime.Version())
		},
	}
}

func parsePick(text string) (float64, float64, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return 0, 0, errors.New("--pick expects x,y")
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errX != nil || errY != nil {
		return 0, 0, fmt.Errorf("--pick expects two numbers, got %q", text)
	}
	return x, y, nil
}

// pickedResidue finds the residue the last pick selected, if any.
func pickedResidue(s *host.Session, snap *plot.Snapshot) (string, bool) {
	for _, m := range snap.Models {
		if idx := s.SelectedResidues(m); len(idx) > 0 {
			res, _ := m.ResidueAt(idx[0])
			return fmt.Sprintf("%s in %s", res.Label(), m), true
		}
	}
	return "", false
}
