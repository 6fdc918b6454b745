package bench

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

var header = []string{
	"algo", "instance", "dimension", "runs",
	"time_best_ms", "time_mean_ms", "time_std_ms",
	"cost_best", "cost_worst", "cost_mean", "cost_std",
	"evaluations_mean",
}

func WriteCSV(path string, records []Record) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.Algo,
			r.Instance,
			itoa(r.Dimension),
			itoa(r.Runs),

			ftoa(r.TimeBestMs),
			ftoa(r.TimeMeanMs),
			ftoa(r.TimeStdMs),

			ftoa(r.CostBest),
			ftoa(r.CostWorst),
			ftoa(r.CostMean),
			ftoa(r.CostStd),

			ftoa(r.EvaluationsMean),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

const summarySheet = "Summary"

func WriteXLSX(path string, records []Record) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}

	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(summarySheet, "A1", &head); err != nil {
		return err
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.Algo, r.Instance, r.Dimension, r.Runs,
			r.TimeBestMs, r.TimeMeanMs, r.TimeStdMs,
			r.CostBest, r.CostWorst, r.CostMean, r.CostStd,
			r.EvaluationsMean,
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	return f.SaveAs(path)
}
