package main

import (
	"context"
	"fmt"
	"os"

	"github.com/scandicu/iftcohort/pkg/cohort"
	"github.com/scandicu/iftcohort/pkg/common/config"
	"github.com/scandicu/iftcohort/pkg/common/logger"
	"github.com/scandicu/iftcohort/pkg/diagnosis"
	"github.com/scandicu/iftcohort/pkg/reference"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	logger.Init()

	var configPath string

	rootCmd := &cobra.Command{
		Use:           "cohort-pipeline",
		Short:         "Build the interfacility-transfer ICU cohort from registry extracts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config")

	rootCmd.AddCommand(runCmd(&configPath))
	rootCmd.AddCommand(validateCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("pipeline failed")
		os.Exit(1)
	}
}

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute the full pipeline and write the cohort table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			result, err := cohort.Run(context.Background(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d cohort rows, stage counts %v\n",
				result.Flow.RunID, len(result.Transfers), result.Flow.Counts())
			return nil
		},
	}
}

// validateCmd cross-checks the reference data before a run: every site in
// the distance matrix must resolve in the hospital catalog, and the
// diagnosis code sets must be complete.
func validateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check reference data consistency without running the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			hospitals, err := reference.LoadHospitals(cfg.Reference.HospitalCatalog)
			if err != nil {
				return err
			}
			matrix, err := cohort.LoadDistances(cfg)
			if err != nil {
				return err
			}
			catalog, err := diagnosis.LoadCatalog(cfg.Reference.DiagnosisCodes)
			if err != nil {
				return err
			}
			if _, err := diagnosis.NewClassifier(catalog); err != nil {
				return err
			}

			var unknown []string
			for _, site := range matrix.Sites() {
				if _, ok := hospitals.Lookup(site); !ok {
					unknown = append(unknown, site)
				}
			}
			if len(unknown) > 0 {
				return fmt.Errorf("distance matrix references %d sites missing from the hospital catalog: %v", len(unknown), unknown)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "reference data ok: %d hospitals, %d distance pairs\n",
				len(hospitals.Hospitals), matrix.Pairs())
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pipeline version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
