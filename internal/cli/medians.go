package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/krithika183/spotify-popularity-predicton/internal/features"
)

type mediansReport struct {
	Data           string                    `json:"data"`
	Rows           int                       `json:"rows"`
	Medians        map[string]features.Entry `json:"medians"`
	MissingColumns []string                  `json:"missing_columns"`
	ExplicitRate   *float64                  `json:"explicit_rate,omitempty"`
}

var mediansCmd = &cobra.Command{
	Use:   "medians",
	Short: "Print the imputation medians computed from the reference dataset",
	Long: `Load the reference dataset the way serve does and print the median table as JSON.

Features listed under missing_columns have no usable column in the dataset and are
imputed with 0. Column names are case sensitive.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeMediansReport(cmd.OutOrStdout(), viper.GetString(keyData))
	},
}

func init() {
	rootCmd.AddCommand(mediansCmd)
}

func writeMediansReport(out io.Writer, path string) error {
	table, err := features.LoadReferenceTable(path)
	if err != nil {
		return err
	}
	medians := features.BuildMedians(table)

	report := mediansReport{
		Data:           path,
		Rows:           table.Rows(),
		Medians:        medians.Entries(),
		MissingColumns: []string{},
	}
	for _, name := range features.Names() {
		if _, ok := medians.Get(name); !ok {
			report.MissingColumns = append(report.MissingColumns, name)
		}
	}
	if rate, ok := features.ExplicitRate(table); ok {
		report.ExplicitRate = &rate
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
