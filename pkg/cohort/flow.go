package cohort

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// StageCount is one box-and-arrow step of the cohort flow diagram. The
// ordered counts are the audit trail the downstream flow figures are built
// from, so every stage records what it removed.
type StageCount struct {
	Stage   string
	In      int
	Dropped int
	Out     int
}

type FlowReport struct {
	RunID     string
	StartedAt time.Time
	Stages    []StageCount
}

func NewFlowReport() *FlowReport {
	return &FlowReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
}

func (r *FlowReport) Record(stage string, in, out int) {
	r.Stages = append(r.Stages, StageCount{Stage: stage, In: in, Dropped: in - out, Out: out})
}

// Counts returns the box counts in order: the first stage's input followed by
// each stage's output.
func (r *FlowReport) Counts() []int {
	if len(r.Stages) == 0 {
		return nil
	}
	counts := []int{r.Stages[0].In}
	for _, s := range r.Stages {
		counts = append(counts, s.Out)
	}
	return counts
}

// WriteCSV persists the flow report next to the cohort output.
func (r *FlowReport) WriteCSV(path string) error {
	fid, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write flow report: %w", err)
	}
	defer fid.Close()

	w := csv.NewWriter(fid)
	if err := w.Write([]string{"run_id", "stage", "in", "dropped", "out"}); err != nil {
		return err
	}
	for _, s := range r.Stages {
		row := []string{r.RunID, s.Stage, strconv.Itoa(s.In), strconv.Itoa(s.Dropped), strconv.Itoa(s.Out)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
