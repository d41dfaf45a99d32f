package runner

import (
	"strings"
	"testing"

	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/session"
)

func TestPostflightRecordsSessionErrors(t *testing.T) {
	sess := session.New()
	snap := session.Snapshot{
		Mappings: map[domain.EntityKind][]session.Mapping{
			domain.KindSchool:  {{Kind: domain.KindSchool, OldID: "1", NewID: 100}},
			domain.KindTeacher: {{Kind: domain.KindTeacher, OldID: "5", NewID: 501, SchoolID: 777}},
		},
	}

	integrity, _ := postflight(sess, snap)
	if integrity.IsValid {
		t.Fatal("IsValid = true for orphaned teacher")
	}
	errs := sess.Errors()
	if len(errs) != len(integrity.Errors) {
		t.Fatalf("session errors = %v, want %d", errs, len(integrity.Errors))
	}
	if !strings.HasPrefix(errs[0], "Post-flight: ") || !strings.Contains(errs[0], "501") {
		t.Errorf("session error = %q", errs[0])
	}
}

func TestPostflightCleanSessionAddsNothing(t *testing.T) {
	sess := session.New()
	if _, err := sess.AddMapping(domain.KindSchool, "1", 100, 0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.AddMapping(domain.KindTeacher, "5", 501, 100, nil); err != nil {
		t.Fatal(err)
	}

	integrity, _ := postflight(sess, sess.Snapshot())
	if !integrity.IsValid {
		t.Fatalf("integrity = %+v", integrity)
	}
	if errs := sess.Errors(); len(errs) != 0 {
		t.Errorf("session errors = %v", errs)
	}
}
