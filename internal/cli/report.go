package cli

import (
	"fmt"

	"github.com/lherron/schoolmig/internal/render"
	"github.com/lherron/schoolmig/internal/runner"
	"github.com/lherron/schoolmig/internal/validate"
)

// renderReport writes the table view of a run report.
func renderReport(r *render.Renderer, rep *runner.Report) {
	w := r.Writer()
	r.KeyValues([][2]string{
		{"Session", rep.SessionID},
		{"Status", rep.Status},
		{"Dry run", yesNo(rep.DryRun)},
		{"Phase", rep.Summary.Phase.String()},
		{"Elapsed", fmt.Sprintf("%.2fs", rep.Summary.ElapsedSeconds)},
	})

	if len(rep.Phases) > 0 {
		fmt.Fprintln(w)
		rows := make([][]string, 0, len(rep.Phases))
		for _, p := range rep.Phases {
			rows = append(rows, []string{
				p.Phase.String(), string(p.Kind), itoa(p.Total), itoa(p.Migrated), itoa(p.Failed),
				fmt.Sprintf("%.2fs", p.Duration.Seconds()),
			})
		}
		r.RenderTable([]string{"PHASE", "KIND", "TOTAL", "MIGRATED", "FAILED", "DURATION"}, rows)
	}

	if rep.Links.Pending > 0 {
		fmt.Fprintf(w, "\nStudent-parent links: %d linked, %d unresolved, %d failed (of %d)\n",
			rep.Links.Linked, rep.Links.Unresolved, rep.Links.Failed, rep.Links.Pending)
	}

	if len(rep.Planned) > 0 {
		fmt.Fprintln(w, "\nPlanned inserts:")
		rows := make([][]string, 0, len(rep.Planned))
		for _, c := range rep.Planned {
			rows = append(rows, []string{c.Table, fmt.Sprintf("%d", c.Rows)})
		}
		r.RenderTable([]string{"TABLE", "ROWS"}, rows)
	}

	if rep.Consistency != nil && len(rep.Consistency.Schools) > 0 {
		fmt.Fprintf(w, "\nSchools: %d total, %d with curriculum\n", rep.Consistency.TotalSchools, rep.Consistency.WithCurriculum)
		renderConsistency(r, *rep.Consistency)
	}

	if rep.Preflight != nil && !rep.Preflight.IsValid {
		r.Section("Pre-flight errors", rep.Preflight.Errors)
	}
	r.Section("Errors", rep.Errors)
	r.Section("Warnings", rep.Warnings)
}

func renderConsistency(r *render.Renderer, c validate.Consistency) {
	rows := make([][]string, 0, len(c.Schools))
	for _, s := range c.Schools {
		rows = append(rows, []string{
			s.OldID, s.Name, s.Curriculum, itoa(s.Teachers), itoa(s.Parents), itoa(s.Students),
		})
	}
	r.RenderTable([]string{"OLD ID", "NAME", "CURRICULUM", "TEACHERS", "PARENTS", "STUDENTS"}, rows)
	r.Section("Consistency warnings", c.Warnings)
}

// renderResult writes the table view of a validation result.
func renderResult(r *render.Renderer, title string, res validate.Result) {
	status := "valid"
	if !res.IsValid {
		status = "invalid"
	}
	fmt.Fprintf(r.Writer(), "%s: %s (%d error(s), %d warning(s))\n", title, status, len(res.Errors), len(res.Warnings))
	r.Section("Errors", res.Errors)
	r.Section("Warnings", res.Warnings)
}
