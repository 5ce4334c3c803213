// Package report renders a pipeline verdict for human and machine
// consumption. The report is the system's externally observable result:
// every lane's stage-by-stage outcome plus one overall boolean.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/vk/gridci/internal/pipeline"
	"github.com/vk/gridci/internal/stage"
)

// timeResolution keeps durations readable in the text report.
const timeResolution = 10 * time.Millisecond

// Render writes a human-readable report for the verdict.
func Render(w io.Writer, v *pipeline.Verdict) error {
	if _, err := fmt.Fprintf(w, "Pipeline run %s\n", v.RunID); err != nil {
		return err
	}
	for _, lane := range v.Lanes {
		badge := "PASS"
		if !lane.Success() {
			badge = "FAIL"
		}
		suffix := ""
		if lane.CacheHit {
			suffix = " (cache hit)"
		}
		fmt.Fprintf(w, "\nlane %s: %s%s\n", lane.Environment.ID(), badge, suffix)
		if lane.Err != nil {
			fmt.Fprintf(w, "  error: %v\n", lane.Err)
		}
		for _, r := range lane.Results {
			fmt.Fprintf(w, "  %-12s %-10s", r.Stage, r.Status)
			if r.Status == stage.StatusSucceeded || r.Status == stage.StatusFailed {
				fmt.Fprintf(w, " %s", r.Duration.Round(timeResolution))
			}
			if r.Reason != "" {
				fmt.Fprintf(w, "  (%s)", r.Reason)
			}
			fmt.Fprintln(w)
		}
	}

	overall := "PASS"
	if !v.Success {
		overall = "FAIL"
	}
	_, err := fmt.Fprintf(w, "\nOverall: %s\n", overall)
	return err
}

// laneReport is the JSON shape of one lane.
type laneReport struct {
	Platform string         `json:"platform"`
	Version  string         `json:"version"`
	State    pipeline.State `json:"state"`
	CacheKey string         `json:"cache_key"`
	CacheHit bool           `json:"cache_hit"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Stages   []stage.Result `json:"stages"`
}

type runReport struct {
	RunID   string       `json:"run_id"`
	Success bool         `json:"success"`
	Lanes   []laneReport `json:"lanes"`
}

// RenderJSON writes the verdict as an indented JSON document.
func RenderJSON(w io.Writer, v *pipeline.Verdict) error {
	out := runReport{RunID: v.RunID, Success: v.Success}
	for _, lane := range v.Lanes {
		lr := laneReport{
			Platform: lane.Environment.Platform,
			Version:  lane.Environment.Version,
			State:    lane.State,
			CacheKey: string(lane.Key),
			CacheHit: lane.CacheHit,
			Success:  lane.Success(),
			Stages:   lane.Results,
		}
		if lane.Err != nil {
			lr.Error = lane.Err.Error()
		}
		out.Lanes = append(out.Lanes, lr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
