package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gabisonia/CsvToolkit/pkg/csv"
)

// infoCmd summarizes a CSV file.
var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display information about a CSV file",
	Long: `Display basic information about a CSV file:
- column headers
- number of records
- detected line terminator

Example:
  csvtoolkit info data.csv`,
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
		opts.DetectColumnCount = true
		reader, err := csv.NewReader(file, opts)
		if err != nil {
			return err
		}
		defer reader.Close()

		var rows, columns int
		for reader.Read() {
			rows++
			if columns == 0 {
				columns = reader.FieldCount()
			}
		}
		if err := reader.Err(); err != nil {
			return err
		}

		fmt.Printf("File: %s\n", args[0])
		fmt.Printf("Records: %d\n", rows)
		fmt.Printf("Columns: %d\n", columns)
		fmt.Printf("Newline: %q\n", reader.DetectedNewline())
		if header := reader.Header(); header != nil {
			fmt.Println("\nColumn Headers:")
			for i, name := range header {
				fmt.Printf("%d. %s\n", i+1, name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
