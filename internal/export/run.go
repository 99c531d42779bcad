package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/solverlog"
)

// Formats accepted by Run.
var Formats = []string{"json", "yaml", "csv"}

// RunDocument is the serialized form of a LogRun.
type RunDocument struct {
	Source                 string                         `json:"source,omitempty" yaml:"source,omitempty"`
	DeformationGradientAim []damask.Tensor3               `json:"deformation_gradient_aim" yaml:"deformation_gradient_aim"`
	PiolaKirchhoffStress   []damask.Tensor3               `json:"piola_kirchhoff_stress" yaml:"piola_kirchhoff_stress"`
	IncrementIdx           []int                          `json:"increment_idx" yaml:"increment_idx"`
	MetricKeys             []string                       `json:"metric_keys" yaml:"metric_keys"`
	Errors                 map[string]damask.MetricSeries `json:"errors" yaml:"errors"`
	IncNumber              []int                          `json:"inc_number" yaml:"inc_number"`
	IncTime                []float64                      `json:"inc_time" yaml:"inc_time"`
	IncCutBack             []float64                      `json:"inc_cut_back" yaml:"inc_cut_back"`
	IncLoadCase            []int                          `json:"inc_load_case" yaml:"inc_load_case"`
	IncNumIters            []int                          `json:"inc_num_iters" yaml:"inc_num_iters"`
	Warnings               []damask.Message               `json:"warnings" yaml:"warnings"`
	NumIncrements          int                            `json:"num_increments" yaml:"num_increments"`
}

// NewRunDocument copies run into its serialized form.
func NewRunDocument(source string, run *solverlog.LogRun) *RunDocument {
	return &RunDocument{
		Source:                 source,
		DeformationGradientAim: run.DeformationGradientAim,
		PiolaKirchhoffStress:   run.PiolaKirchhoffStress,
		IncrementIdx:           run.IncrementIdx,
		MetricKeys:             run.Errors.Keys(),
		Errors:                 run.Errors.Map(),
		IncNumber:              run.IncNumber,
		IncTime:                run.IncTime,
		IncCutBack:             run.IncCutBack,
		IncLoadCase:            run.IncLoadCase,
		IncNumIters:            run.IncNumIters,
		Warnings:               run.Warnings,
		NumIncrements:          run.NumIncrements,
	}
}

func JSON(w io.Writer, source string, run *solverlog.LogRun) error {
	return WriteJSON(w, NewRunDocument(source, run))
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func YAML(w io.Writer, source string, run *solverlog.LogRun) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewRunDocument(source, run)); err != nil {
		return err
	}
	return enc.Close()
}

// Run writes run in the named format. precision only applies to csv.
func Run(w io.Writer, format, source string, run *solverlog.LogRun, precision int) error {
	switch strings.ToLower(format) {
	case "json":
		return JSON(w, source, run)
	case "yaml", "yml":
		return YAML(w, source, run)
	case "csv":
		return IterationsCSV(w, run, precision)
	default:
		return fmt.Errorf("unknown export format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}
