// Package source reads the legacy V1 tables into typed records. Column casing
// is normalized once here; nothing downstream sees raw rows.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/store"
	"go.uber.org/zap"
)

// DefaultBatchSize is used when the configured batch size is not positive.
const DefaultBatchSize = 1000

const (
	schoolColumns = `"id", "schoolName", "email", "phone", "schoolCode", "schoolLevel", "motto", "vision",
		"country", "county", "logo", "address", "type", "password", "isActive", "isVerified", "isDeleted",
		"createdAt", "updatedAt"`
	personColumns = `"id", "firstName", "middleName", "lastName", "email", "phoneNumber", "password",
		"gender", "schoolId", "isDeleted", "createdAt"`
	teacherColumns = personColumns + `, "qualification", "subjects", "isLoginBarred", "experienceYears"`
	parentColumns  = personColumns + `, "relationship", "occupation", "address"`
	studentColumns = personColumns + `, "studentAdmissionNumber", "classId", "streamId", "parentId", "dateOfBirth"`
)

// Reader loads non-deleted V1 rows in keyset-paged batches.
type Reader struct {
	store     store.Store
	batchSize int
	log       *zap.Logger
}

// New returns a Reader over the V1 store.
func New(s store.Store, batchSize int, logger *zap.Logger) *Reader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{store: s, batchSize: batchSize, log: logger}
}

// scan pages through table by id and returns every non-deleted row.
func (r *Reader) scan(ctx context.Context, table, cols string) ([]store.Row, error) {
	base := fmt.Sprintf(`SELECT %s FROM "%s" WHERE "isDeleted" = false`, cols, table)

	var all []store.Row
	var last any
	for page := 1; ; page++ {
		var (
			rows []store.Row
			err  error
		)
		if last == nil {
			rows, err = r.store.Query(ctx, base+` ORDER BY "id" LIMIT ?`, r.batchSize)
		} else {
			rows, err = r.store.Query(ctx, base+` AND "id" > ? ORDER BY "id" LIMIT ?`, last, r.batchSize)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s page %d: %w", table, page, err)
		}
		all = append(all, rows...)
		r.log.Debug("read source batch", zap.String("table", table), zap.Int("page", page), zap.Int("rows", len(rows)))
		if len(rows) < r.batchSize {
			break
		}
		last = rows[len(rows)-1]["id"]
	}
	return all, nil
}

// Schools returns schools ordered by creation time, then id.
func (r *Reader) Schools(ctx context.Context) ([]domain.V1School, error) {
	rows, err := r.scan(ctx, "School", schoolColumns)
	if err != nil {
		return nil, err
	}
	out := make([]domain.V1School, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.V1School{
			ID:         row.String("id"),
			Name:       row.String("schoolname"),
			Email:      row.String("email"),
			Phone:      row.String("phone"),
			Code:       row.String("schoolcode"),
			Level:      row.String("schoollevel"),
			Motto:      row.String("motto"),
			Vision:     row.String("vision"),
			Country:    row.String("country"),
			County:     row.String("county"),
			Logo:       row.String("logo"),
			Address:    row.String("address"),
			Type:       row.String("type"),
			Password:   row.String("password"),
			IsActive:   row.Bool("isactive"),
			IsVerified: row.Bool("isverified"),
			IsDeleted:  row.Bool("isdeleted"),
			CreatedAt:  row.Time("createdat"),
			UpdatedAt:  row.Time("updatedat"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, nil
}

// Teachers returns teachers ordered by school, first name, then id.
func (r *Reader) Teachers(ctx context.Context) ([]domain.V1Teacher, error) {
	rows, err := r.scan(ctx, "Teacher", teacherColumns)
	if err != nil {
		return nil, err
	}
	out := make([]domain.V1Teacher, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.V1Teacher{
			V1Person:        person(row),
			Qualification:   row.String("qualification"),
			Subjects:        subjects(row.String("subjects")),
			IsLoginBarred:   row.Bool("isloginbarred"),
			ExperienceYears: int(row.Int64("experienceyears")),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return lessPerson(out[i].V1Person, out[j].V1Person) })
	return out, nil
}

// Parents returns parents ordered by school, first name, then id.
func (r *Reader) Parents(ctx context.Context) ([]domain.V1Parent, error) {
	rows, err := r.scan(ctx, "Parent", parentColumns)
	if err != nil {
		return nil, err
	}
	out := make([]domain.V1Parent, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.V1Parent{
			V1Person:     person(row),
			Relationship: row.String("relationship"),
			Occupation:   row.String("occupation"),
			Address:      row.String("address"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return lessPerson(out[i].V1Person, out[j].V1Person) })
	return out, nil
}

// Students returns students ordered by school, first name, then id.
func (r *Reader) Students(ctx context.Context) ([]domain.V1Student, error) {
	rows, err := r.scan(ctx, "Student", studentColumns)
	if err != nil {
		return nil, err
	}
	out := make([]domain.V1Student, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.V1Student{
			V1Person:        person(row),
			AdmissionNumber: row.String("studentadmissionnumber"),
			ClassID:         row.String("classid"),
			StreamID:        row.String("streamid"),
			ParentID:        row.String("parentid"),
			DateOfBirth:     row.Time("dateofbirth"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return lessPerson(out[i].V1Person, out[j].V1Person) })
	return out, nil
}

func person(row store.Row) domain.V1Person {
	return domain.V1Person{
		ID:         row.String("id"),
		FirstName:  row.String("firstname"),
		MiddleName: row.String("middlename"),
		LastName:   row.String("lastname"),
		Email:      row.String("email"),
		Phone:      row.String("phonenumber"),
		Password:   row.String("password"),
		Gender:     row.String("gender"),
		SchoolID:   row.String("schoolid"),
		IsDeleted:  row.Bool("isdeleted"),
		CreatedAt:  row.Time("createdat"),
	}
}

// subjects flattens a JSON array of subject names into a comma list.
func subjects(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") {
		return raw
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return raw
	}
	return strings.Join(list, ", ")
}

func lessPerson(a, b domain.V1Person) bool {
	if a.SchoolID != b.SchoolID {
		return lessID(a.SchoolID, b.SchoolID)
	}
	if a.FirstName != b.FirstName {
		return a.FirstName < b.FirstName
	}
	return lessID(a.ID, b.ID)
}

// lessID orders numeric ids numerically and anything else lexically.
func lessID(a, b string) bool {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		return len(a) < len(b)
	}
	return a < b
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
