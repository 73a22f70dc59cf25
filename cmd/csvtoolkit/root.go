package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gabisonia/CsvToolkit/pkg/csv"
)

var (
	flagDelimiter string
	flagCulture   string
	flagLenient   bool
	flagNoHeader  bool
	flagVerbose   bool
)

// rootCmd is the csvtoolkit entry point.
var rootCmd = &cobra.Command{
	Use:   "csvtoolkit",
	Short: "Streaming CSV toolkit",
	Long: `csvtoolkit reads, converts, and inspects CSV files using a
streaming, low-allocation codec with configurable dialects and
culture-aware value conversion.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDelimiter, "delimiter", "d", ",", "field delimiter")
	rootCmd.PersistentFlags().StringVar(&flagCulture, "culture", "", "culture for value conversion, e.g. fr-FR")
	rootCmd.PersistentFlags().BoolVar(&flagLenient, "lenient", false, "continue on bad data instead of failing")
	rootCmd.PersistentFlags().BoolVar(&flagNoHeader, "no-header", false, "treat the first row as data")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// readOptions builds reader options from the global flags.
func readOptions() (csv.Options, error) {
	opts := csv.DefaultOptions()
	if flagDelimiter != "" {
		opts.Delimiter = []rune(flagDelimiter)[0]
	}
	opts.HasHeader = !flagNoHeader
	opts.IgnoreBlankLines = true
	if flagLenient {
		opts.Mode = csv.ModeLenient
		opts.BadDataFound = func(bd csv.BadDataContext) {
			logrus.WithFields(logrus.Fields{
				"row":   bd.RowIndex,
				"line":  bd.LineNumber,
				"field": bd.FieldIndex,
			}).Warn(bd.Message)
		}
	}
	if flagCulture != "" {
		culture, err := csv.NewCulture(flagCulture)
		if err != nil {
			return opts, err
		}
		opts.Culture = culture
	}
	return opts, nil
}
