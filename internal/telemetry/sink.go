package telemetry

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"cvrp/internal/genome"
)

// Record — одна строка телеметрии; нулевые поля алгоритм не заполнял.
type Record struct {
	RunID         uuid.UUID
	Algorithm     string
	Configuration string
	Phase         string
	Iteration     int
	Temperature   float64

	BestFitness    genome.Fitness
	WorstFitness   genome.Fitness
	AverageFitness genome.Fitness
	CurrentFitness genome.Fitness

	Mutations      int
	Crossovers     int
	PopulationSize int
	TabuSize       int
}

// Sink — Log на каждой итерации, Flush один раз в конце запуска.
type Sink interface {
	Log(rec Record)
	Flush() (int, error)
}

type Discard struct{}

func (Discard) Log(Record)          {}
func (Discard) Flush() (int, error) { return 0, nil }

// Stop сбрасывает s при прерванном запуске.
func Stop(s Sink, cause error) error {
	if _, err := s.Flush(); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// Run проставляет id запуска и метку конфигурации.
type Run struct {
	ID            uuid.UUID
	Configuration string
	next          Sink
}

func NewRun(next Sink, configuration string) *Run {
	return &Run{ID: uuid.New(), Configuration: configuration, next: next}
}

func (r *Run) Log(rec Record) {
	rec.RunID = r.ID
	if rec.Configuration == "" {
		rec.Configuration = r.Configuration
	}
	r.next.Log(rec)
}

func (r *Run) Flush() (int, error) { return r.next.Flush() }

type Multi []Sink

func (m Multi) Log(rec Record) {
	for _, s := range m {
		s.Log(rec)
	}
}

func (m Multi) Flush() (int, error) {
	var (
		n    int
		errs []error
	)
	for _, s := range m {
		k, err := s.Flush()
		if err != nil {
			errs = append(errs, err)
		}
		n = max(n, k)
	}
	return n, errors.Join(errs...)
}

// Memory безопасен для конкурентного использования.
type Memory struct {
	mu      sync.Mutex
	records []Record
	flushes int
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Log(rec Record) {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
}

func (m *Memory) Flush() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return len(m.records), nil
}

func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

func (m *Memory) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}
