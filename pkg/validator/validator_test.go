package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string  `validate:"required,notblank,max=10"`
	Email *string `validate:"omitempty,email"`
	Items []item  `validate:"required,min=1,dive"`
}

type item struct {
	MaterialID uint `validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	good := sample{Name: "PET", Items: []item{{MaterialID: 1}}}
	assert.Empty(t, ValidateStruct(good))

	errs := ValidateStruct(sample{Name: "   ", Items: []item{{MaterialID: 1}}})
	require.Len(t, errs, 1)
	assert.Equal(t, "sample.Name", errs[0].FailedField)
	assert.Equal(t, "notblank", errs[0].Tag)

	bad := "nope"
	errs = ValidateStruct(sample{Name: "PET", Email: &bad, Items: []item{{}}})
	require.Len(t, errs, 2)
	assert.Equal(t, "email", errs[0].Tag)
	assert.Equal(t, "sample.Items[0].MaterialID", errs[1].FailedField)
}

func TestValidateStructRejectsNonStruct(t *testing.T) {
	errs := ValidateStruct(42)
	require.Len(t, errs, 1)
	assert.Equal(t, "invalid", errs[0].Tag)
}
