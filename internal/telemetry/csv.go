package telemetry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"cvrp/internal/genome"
)

var csvHeader = []string{
	"run_id", "algorithm", "configuration", "phase", "iteration", "temperature",
	"best", "worst", "average", "current",
	"mutations", "crossovers", "population", "tabu_size",
}

// CSV пишет строки через табуляцию при Flush; в колонках приспособленности длина маршрута.
type CSV struct {
	mu      sync.Mutex
	w       *csv.Writer
	pending []Record
	header  bool
}

func NewCSV(w io.Writer) *CSV {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return &CSV{w: cw}
}

func (c *CSV) Log(rec Record) {
	c.mu.Lock()
	c.pending = append(c.pending, rec)
	c.mu.Unlock()
}

func (c *CSV) Flush() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.header {
		if err := c.w.Write(csvHeader); err != nil {
			return 0, fmt.Errorf("telemetry: write header: %w", err)
		}
		c.header = true
	}
	n := 0
	for _, rec := range c.pending {
		if err := c.w.Write(csvRow(rec)); err != nil {
			c.pending = c.pending[n:]
			return n, fmt.Errorf("telemetry: write row %d: %w", n, err)
		}
		n++
	}
	c.pending = c.pending[:0]
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return n, fmt.Errorf("telemetry: flush: %w", err)
	}
	return n, nil
}

func csvRow(rec Record) []string {
	return []string{
		rec.RunID.String(),
		rec.Algorithm,
		rec.Configuration,
		rec.Phase,
		strconv.Itoa(rec.Iteration),
		strconv.FormatFloat(rec.Temperature, 'g', -1, 64),
		costCell(rec.BestFitness),
		costCell(rec.WorstFitness),
		costCell(rec.AverageFitness),
		costCell(rec.CurrentFitness),
		strconv.Itoa(rec.Mutations),
		strconv.Itoa(rec.Crossovers),
		strconv.Itoa(rec.PopulationSize),
		strconv.Itoa(rec.TabuSize),
	}
}

func costCell(f genome.Fitness) string {
	if f <= 0 {
		return ""
	}
	return strconv.FormatFloat(f.Cost(), 'f', 4, 64)
}
