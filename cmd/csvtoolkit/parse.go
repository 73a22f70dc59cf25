package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gabisonia/CsvToolkit/pkg/csv"
)

// parseCmd reads a CSV file and prints each record as tab-joined fields.
var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a CSV file and print its records",
	Long: `Parse a CSV file and print each record to stdout with fields
joined by tabs.

Example:
  csvtoolkit parse data.csv
  csvtoolkit parse -d ';' --lenient data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer file.Close()

		opts, err := readOptions()
		if err != nil {
			return err
		}
		reader, err := csv.NewReader(file, opts)
		if err != nil {
			return err
		}
		defer reader.Close()

		first := true
		for reader.Read() {
			if first && reader.Header() != nil {
				fmt.Println(strings.Join(reader.Header(), "\t"))
			}
			first = false
			fmt.Println(strings.Join(reader.Record(), "\t"))
		}
		return reader.Err()
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
