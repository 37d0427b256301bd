package typesense

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientSchema(t *testing.T) {
	schema := PatientSchema()

	assert.Equal(t, PatientsCollection, schema.Name)
	require.NotNil(t, schema.DefaultSortingField)
	assert.Equal(t, "updated_at", *schema.DefaultSortingField)

	fields := map[string]string{}
	for _, f := range schema.Fields {
		fields[f.Name] = f.Type
	}
	assert.Equal(t, "string", fields["full_name"])
	assert.Equal(t, "int64", fields["updated_at"])
	assert.Contains(t, fields, "medical_record_number")
}
