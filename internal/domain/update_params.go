package domain

import "fmt"

// Valid fields for UpdateTaskParams.
var updateTaskValidFields = map[string]struct{}{
	FieldSubject:    {},
	FieldStatus:     {},
	FieldPriority:   {},
	FieldWeight:     {},
	FieldParentTask: {},
	FieldType:       {},
	FieldCycle:      {},
}

// Validate checks that UpdateMask contains only known fields and that
// required fields have non-nil values when included in the mask.
func (p UpdateTaskParams) Validate() error {
	maskSet, err := checkMask(p.UpdateMask, updateTaskValidFields)
	if err != nil {
		return err
	}

	// Required field checks (cannot be nil when in mask)
	if maskSet[FieldSubject] && p.Subject == nil {
		return ErrSubjectRequired
	}
	if maskSet[FieldStatus] && p.Status == nil {
		return fmt.Errorf("%w: status cannot be cleared", ErrInvalidTaskStatus)
	}
	if maskSet[FieldPriority] && p.Priority == nil {
		return fmt.Errorf("%w: priority cannot be cleared", ErrInvalidTaskPriority)
	}
	if maskSet[FieldWeight] && p.Weight != nil && *p.Weight < 0 {
		return ErrInvalidWeight
	}

	return nil
}

// Has reports whether field is part of the update mask.
func (p UpdateTaskParams) Has(field string) bool {
	return containsField(p.UpdateMask, field)
}

// Valid fields for UpdateProjectParams.
var updateProjectValidFields = map[string]struct{}{
	FieldName:          {},
	FieldExecutionMode: {},
}

// Validate checks that UpdateMask contains only known fields and that
// required fields have non-nil values when included in the mask.
func (p UpdateProjectParams) Validate() error {
	maskSet, err := checkMask(p.UpdateMask, updateProjectValidFields)
	if err != nil {
		return err
	}

	if maskSet[FieldName] && (p.Name == nil || *p.Name == "") {
		return ErrProjectNameRequired
	}
	if maskSet[FieldExecutionMode] && p.ExecutionMode == nil {
		return ErrInvalidExecutionMode
	}

	return nil
}

// Has reports whether field is part of the update mask.
func (p UpdateProjectParams) Has(field string) bool {
	return containsField(p.UpdateMask, field)
}

// Valid fields for UpdateCycleParams.
var updateCycleValidFields = map[string]struct{}{
	FieldName:      {},
	FieldStartDate: {},
	FieldEndDate:   {},
}

// Validate checks that UpdateMask contains only known fields.
func (p UpdateCycleParams) Validate() error {
	maskSet, err := checkMask(p.UpdateMask, updateCycleValidFields)
	if err != nil {
		return err
	}
	if maskSet[FieldName] && (p.Name == nil || *p.Name == "") {
		return ErrCycleNameRequired
	}
	return nil
}

// Has reports whether field is part of the update mask.
func (p UpdateCycleParams) Has(field string) bool {
	return containsField(p.UpdateMask, field)
}

func checkMask(mask []string, valid map[string]struct{}) (map[string]bool, error) {
	if len(mask) == 0 {
		return nil, ErrEmptyUpdateMask
	}

	maskSet := make(map[string]bool, len(mask))
	for _, field := range mask {
		if _, ok := valid[field]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		maskSet[field] = true
	}
	return maskSet, nil
}

func containsField(mask []string, field string) bool {
	for _, f := range mask {
		if f == field {
			return true
		}
	}
	return false
}
