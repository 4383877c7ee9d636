package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateTaskParams_Validate(t *testing.T) {
	subject := "Refine backlog"
	negative := -2.0

	tests := []struct {
		name    string
		params  UpdateTaskParams
		wantErr error
	}{
		{"empty mask", UpdateTaskParams{}, ErrEmptyUpdateMask},
		{"unknown field", UpdateTaskParams{UpdateMask: []string{"title"}}, ErrUnknownField},
		{"subject cleared", UpdateTaskParams{UpdateMask: []string{FieldSubject}}, ErrSubjectRequired},
		{"status cleared", UpdateTaskParams{UpdateMask: []string{FieldStatus}}, ErrInvalidTaskStatus},
		{"negative weight", UpdateTaskParams{UpdateMask: []string{FieldWeight}, Weight: &negative}, ErrInvalidWeight},
		{"clearing cycle is allowed", UpdateTaskParams{UpdateMask: []string{FieldCycle}}, nil},
		{"subject set", UpdateTaskParams{UpdateMask: []string{FieldSubject}, Subject: &subject}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateProjectParams_Validate(t *testing.T) {
	empty := ""
	assert.ErrorIs(t, UpdateProjectParams{UpdateMask: []string{FieldName}, Name: &empty}.Validate(), ErrProjectNameRequired)
	assert.ErrorIs(t, UpdateProjectParams{UpdateMask: []string{FieldExecutionMode}}.Validate(), ErrInvalidExecutionMode)

	mode := ExecutionModeScrum
	p := UpdateProjectParams{UpdateMask: []string{FieldExecutionMode}, ExecutionMode: &mode}
	assert.NoError(t, p.Validate())
	assert.True(t, p.Has(FieldExecutionMode))
	assert.False(t, p.Has(FieldName))
}

func TestUpdateCycleParams_Validate(t *testing.T) {
	assert.ErrorIs(t, UpdateCycleParams{UpdateMask: []string{"status"}}.Validate(), ErrUnknownField)
	assert.ErrorIs(t, UpdateCycleParams{UpdateMask: []string{FieldName}}.Validate(), ErrCycleNameRequired)
	assert.NoError(t, UpdateCycleParams{UpdateMask: []string{FieldEndDate}}.Validate())
}
