package curriculum

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/session"
)

var (
	kenya     = domain.Curriculum{ID: 1, Name: "kenya_8_4_4_system", Alias: "Kenya 8-4-4 System", GradeSystemID: 1}
	cambridge = domain.Curriculum{ID: 2, Name: "Cambridge IGCSE", GradeSystemID: 2}
	generic   = domain.Curriculum{ID: 3, Name: "General", GradeSystemID: 3}
	generic2  = domain.Curriculum{ID: 4, Name: "Standard", GradeSystemID: 4}
)

func TestScore(t *testing.T) {
	r := New()
	tests := []struct {
		name   string
		school School
		c      domain.Curriculum
		want   int
	}{
		{name: "curriculum keyword", school: School{Name: "Acme"}, c: cambridge, want: 180},
		{name: "school name keyword", school: School{Name: "Acme IGCSE Academy"}, c: generic, want: 90},
		{name: "level at half weight", school: School{Name: "Acme", Level: "Primary"}, c: generic, want: 35},
		{name: "short keyword needs whole word", school: School{Name: "Business Campus"}, c: generic, want: 0},
		{name: "short keyword whole word", school: School{Name: "US Embassy School"}, c: generic, want: 80},
		{name: "level keyword is a substring", school: School{Name: "Acme", Level: "Preschool"}, c: generic, want: 30},
		{name: "short level keyword inside a word", school: School{Name: "Acme", Level: "KG1"}, c: generic, want: 30},
		{name: "alias is matched", school: School{Name: "Acme"}, c: kenya, want: 100},
		{name: "nothing", school: School{Name: "Acme"}, c: generic, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Score(tt.school, tt.c); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	r := New()

	t.Run("highest score wins", func(t *testing.T) {
		res, err := r.Resolve(School{Name: "Acme Academy", Level: "secondary"}, []domain.Curriculum{generic, cambridge, kenya})
		if err != nil {
			t.Fatal(err)
		}
		if res.Curriculum.ID != cambridge.ID || res.Defaulted {
			t.Errorf("Resolve() = %+v, want cambridge", res)
		}
	})

	t.Run("ties favor first", func(t *testing.T) {
		school := School{Name: "Acme", Level: "primary"}
		for i := 0; i < 5; i++ {
			res, err := r.Resolve(school, []domain.Curriculum{generic2, generic})
			if err != nil {
				t.Fatal(err)
			}
			if res.Curriculum.ID != generic2.ID {
				t.Fatalf("tie resolved to %d, want %d", res.Curriculum.ID, generic2.ID)
			}
		}
	})

	t.Run("all zero falls back to first", func(t *testing.T) {
		res, err := r.Resolve(School{Name: "Acme"}, []domain.Curriculum{generic2, generic})
		if err != nil {
			t.Fatal(err)
		}
		want := Result{Curriculum: generic2, Defaulted: true}
		if diff := cmp.Diff(want, res); diff != "" {
			t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := r.Resolve(School{Name: "Acme"}, nil)
		if !errors.Is(err, domain.ErrNoCurriculumAvailable) {
			t.Errorf("Resolve(nil) error = %v, want ErrNoCurriculumAvailable", err)
		}
	})
}

func TestAssign(t *testing.T) {
	r := New()
	sess := session.New()
	if _, err := sess.AddMapping(domain.KindSchool, "1", 100, 0, nil); err != nil {
		t.Fatal(err)
	}

	a, err := r.Assign(sess, 100, School{Name: "Acme"}, []domain.Curriculum{generic})
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	want := session.CurriculumAssignment{SchoolID: 100, CurriculumID: 3, CurriculumName: "General", GradeSystemID: 3, Validated: true}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("Assign() mismatch (-want +got):\n%s", diff)
	}
	if len(sess.Warnings()) != 1 {
		t.Errorf("expected default-curriculum warning, got %v", sess.Warnings())
	}

	var violation *domain.PrerequisiteViolationError
	if _, err := r.Assign(sess, 999, School{Name: "Ghost"}, []domain.Curriculum{generic}); !errors.As(err, &violation) {
		t.Errorf("Assign() to unknown school error = %v, want PrerequisiteViolationError", err)
	}
}
