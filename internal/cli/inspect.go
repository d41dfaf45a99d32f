package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/lherron/schoolmig/internal/cli/appctx"
	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/render"
	"github.com/lherron/schoolmig/internal/source"
	"github.com/lherron/schoolmig/internal/store"
	"github.com/lherron/schoolmig/internal/validate"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <schools|teachers|parents|students>",
	Short: "Preview field normalization for source records",
	Long: `Shows, for each source record of the given kind, a unified diff of the
record before and after field validation, followed by the warnings and
errors the validators raised. Nothing is written.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"schools", "teachers", "parents", "students"},
	RunE:      appctx.WithApp(appctx.SourceOnly(), runInspect),
}

var (
	inspectLimit   int
	inspectChanged bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 0, "Maximum number of records to show (0 = all)")
	inspectCmd.Flags().BoolVar(&inspectChanged, "changed", false, "Only show records that change or raise issues")
}

// preview is one record before and after normalization.
type preview struct {
	Kind     domain.EntityKind `json:"kind" yaml:"kind"`
	OldID    string            `json:"old_id" yaml:"old_id"`
	Diff     string            `json:"diff,omitempty" yaml:"diff,omitempty"`
	Valid    bool              `json:"valid" yaml:"valid"`
	Errors   []string          `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// fieldList renders as "key: value" lines in a fixed order.
type fieldList [][2]string

func (f fieldList) String() string {
	var b strings.Builder
	for _, kv := range f {
		fmt.Fprintf(&b, "%s: %s\n", kv[0], kv[1])
	}
	return b.String()
}

func runInspect(app *appctx.App, cmd *cobra.Command, args []string) error {
	r, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	src := source.New(store.For(app.Source), app.Config.BatchSize, app.Logger)
	fields := validate.NewFields(fieldOptions(app))
	previews, err := buildPreviews(cmd.Context(), src, fields, args[0])
	if err != nil {
		return err
	}

	if inspectChanged {
		kept := previews[:0]
		for _, p := range previews {
			if p.Diff != "" || len(p.Errors) > 0 || len(p.Warnings) > 0 {
				kept = append(kept, p)
			}
		}
		previews = kept
	}
	if inspectLimit > 0 && len(previews) > inspectLimit {
		previews = previews[:inspectLimit]
	}

	return r.Render(previews, func(r *render.Renderer) error {
		w := r.Writer()
		for _, p := range previews {
			fmt.Fprintf(w, "== %s %s (%s)\n", p.Kind.Title(), p.OldID, validity(p.Valid))
			if p.Diff == "" {
				fmt.Fprintln(w, "   no field changes")
			} else {
				fmt.Fprint(w, p.Diff)
			}
			for _, e := range p.Errors {
				fmt.Fprintf(w, "   error: %s\n", e)
			}
			for _, wn := range p.Warnings {
				fmt.Fprintf(w, "   warning: %s\n", wn)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%d record(s)\n", len(previews))
		return nil
	})
}

func buildPreviews(ctx context.Context, src *source.Reader, fields *validate.Fields, name string) ([]preview, error) {
	kind, err := domain.ParseEntityKind(name)
	if err != nil {
		return nil, err
	}
	var out []preview
	add := func(k domain.EntityKind, oldID string, before, after fieldList, res validate.FieldResult) error {
		d, err := render.Diff("v1/"+oldID, before.String(), "v2/"+oldID, after.String())
		if err != nil {
			return err
		}
		out = append(out, preview{Kind: k, OldID: oldID, Diff: d, Valid: res.IsValid, Errors: res.Errors, Warnings: res.Warnings})
		return nil
	}

	switch kind {
	case domain.KindSchool:
		rows, err := src.Schools(ctx)
		if err != nil {
			return nil, err
		}
		for _, in := range rows {
			v := fields.School(in)
			before := fieldList{{"name", in.Name}, {"email", in.Email}, {"phone", in.Phone}, {"code", in.Code}, {"level", in.Level}, {"type", in.Type}}
			after := fieldList{{"name", v.Record.Name}, {"email", v.Record.Email}, {"phone", v.Record.Phone}, {"code", v.Record.Code}, {"level", v.ClassLevel}, {"type", string(v.Type)}}
			if err := add(domain.KindSchool, in.ID, before, after, v.FieldResult); err != nil {
				return nil, err
			}
		}
	case domain.KindTeacher:
		rows, err := src.Teachers(ctx)
		if err != nil {
			return nil, err
		}
		for _, in := range rows {
			v := fields.Teacher(in)
			before := append(personFields(in.V1Person), [2]string{"qualification", in.Qualification}, [2]string{"employment_date", formatDate(in.CreatedAt)})
			after := append(personFields(v.Record.V1Person), [2]string{"qualification", v.Record.Qualification}, [2]string{"employment_date", formatDate(v.EmploymentDate)})
			if err := add(domain.KindTeacher, in.ID, before, after, v.FieldResult); err != nil {
				return nil, err
			}
		}
	case domain.KindParent:
		rows, err := src.Parents(ctx)
		if err != nil {
			return nil, err
		}
		for _, in := range rows {
			v := fields.Parent(in)
			before := append(personFields(in.V1Person), [2]string{"relationship", in.Relationship})
			after := append(personFields(v.Record.V1Person), [2]string{"relationship", string(v.Type)})
			if err := add(domain.KindParent, in.ID, before, after, v.FieldResult); err != nil {
				return nil, err
			}
		}
	case domain.KindStudent:
		rows, err := src.Students(ctx)
		if err != nil {
			return nil, err
		}
		for _, in := range rows {
			v := fields.Student(in)
			before := append(personFields(in.V1Person), [2]string{"gender", in.Gender}, [2]string{"date_of_birth", formatDate(in.DateOfBirth)})
			after := append(personFields(v.Record.V1Person), [2]string{"gender", string(v.Gender)}, [2]string{"date_of_birth", formatDate(v.DateOfBirth)})
			if err := add(domain.KindStudent, in.ID, before, after, v.FieldResult); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func validity(ok bool) string {
	if ok {
		return "valid"
	}
	return "invalid"
}

func personFields(p domain.V1Person) fieldList {
	return fieldList{
		{"first_name", p.FirstName},
		{"last_name", p.LastName},
		{"email", p.Email},
		{"phone", p.Phone},
		{"school_id", p.SchoolID},
	}
}
