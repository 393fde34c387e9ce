package registry

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Admissions loads all primary-ICU admissions from the extract with parsed
// timestamps attached. The source rows are never written back.
func (r *Repository) Admissions(ctx context.Context) ([]Admission, error) {
	var rows []Admission
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load icu admissions: %w", err)
	}
	for i := range rows {
		rows[i].AdmittedAt = parseExtractTime(rows[i].AdmittedAtRaw)
		rows[i].DischargedAt = parseExtractTime(rows[i].DischargedAtRaw)
	}
	return rows, nil
}

// TertiaryAdmissions loads tertiary-center admissions with their ordered
// discharge diagnosis codes attached.
func (r *Repository) TertiaryAdmissions(ctx context.Context) ([]TertiaryAdmission, error) {
	var rows []TertiaryAdmission
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load tertiary admissions: %w", err)
	}

	var codes []DiagnosisCode
	if err := r.db.WithContext(ctx).Order("admission_id, position").Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("load tertiary diagnoses: %w", err)
	}
	byAdmission := make(map[int64][]DiagnosisCode)
	for _, c := range codes {
		byAdmission[c.AdmissionID] = append(byAdmission[c.AdmissionID], c)
	}

	for i := range rows {
		rows[i].AdmittedAt = parseExtractTime(rows[i].AdmittedAtRaw)
		attached := byAdmission[rows[i].ID]
		sort.SliceStable(attached, func(a, b int) bool {
			return attached[a].Position < attached[b].Position
		})
		rows[i].Codes = attached
	}
	return rows, nil
}
