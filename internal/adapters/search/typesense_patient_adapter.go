package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	tsclient "github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/clients/typesense"
)

const patientQueryBy = "full_name,medical_record_number,email,phone"

// TypesensePatientAdapter implements patient lookup using Typesense
type TypesensePatientAdapter struct {
	client *tsclient.Client
}

var _ repositories.PatientSearchRepository = (*TypesensePatientAdapter)(nil)

// NewTypesensePatientAdapter creates a new Typesense patient adapter
func NewTypesensePatientAdapter(client *tsclient.Client) *TypesensePatientAdapter {
	return &TypesensePatientAdapter{client: client}
}

// InitSchema ensures the patients collection exists
func (a *TypesensePatientAdapter) InitSchema(ctx context.Context) error {
	return a.client.InitSchema(ctx)
}

func patientDocument(p *entities.Patient) map[string]interface{} {
	return map[string]interface{}{
		"id":                       p.ID,
		"full_name":                p.FullName(),
		"email":                    p.Email,
		"phone":                    p.Phone,
		"medical_record_number":    p.MedicalRecordNumber,
		"preferred_contact_method": string(p.PreferredContactMethod),
		"missed_appointments":      p.MissedAppointments,
		"updated_at":               p.UpdatedAt.Unix(),
	}
}

// Index upserts a patient document
func (a *TypesensePatientAdapter) Index(ctx context.Context, patient *entities.Patient) error {
	_, err := a.client.Client().Collection(tsclient.PatientsCollection).Documents().Upsert(ctx, patientDocument(patient))
	if err != nil {
		return fmt.Errorf("failed to index patient %s: %w", patient.ID, err)
	}
	return nil
}

// Remove deletes a patient document
func (a *TypesensePatientAdapter) Remove(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(tsclient.PatientsCollection).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove patient %s from index: %w", id, err)
	}
	return nil
}

// Search returns the IDs of patients matching query, best match first
func (a *TypesensePatientAdapter) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	q := strings.TrimSpace(query)
	if q == "" {
		q = "*"
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String(patientQueryBy),
		Page:    pointer.Int(1),
		PerPage: pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.PatientsCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return hitIDs(result), nil
}

func hitIDs(result *api.SearchResult) []string {
	ids := []string{}
	if result == nil || result.Hits == nil {
		return ids
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
