//go:build ignore

// This program generates the sample fuel log used for manual testing:
//
//	go run testdata/generate_fixtures.go
//	fuelkit publish --dry-run --file testdata/Gasolina.xlsx
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klytics/fuelkit/internal/formats/xlsx"
)

func main() {
	if err := generateXlsx(); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating Gasolina.xlsx: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Test fixtures generated successfully.")
}

// generateXlsx writes one row per month with the litres used in column F.
func generateXlsx() error {
	amounts := []float64{80, 95, 120, 110, 135.5, 150, 175, 160, 98, 105, 90, 140}

	rows := make([][]string, len(amounts))
	for i, a := range amounts {
		rows[i] = []string{
			time.Month(i + 1).String(),
			"", "", "", "",
			strconv.FormatFloat(a, 'f', -1, 64),
		}
	}

	wb := &xlsx.Workbook{
		Sheets: []xlsx.Sheet{{Name: "Sheet1", Rows: rows}},
	}
	return xlsx.WriteFile(wb, filepath.Join("testdata", "Gasolina.xlsx"))
}
