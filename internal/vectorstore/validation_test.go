package vectorstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCollectionName(t *testing.T) {
	valid := []string{"memories", "observations", "domain_objects", "a", "snake_case_123"}
	for _, name := range valid {
		assert.NoError(t, ValidateCollectionName(name), name)
	}

	invalid := []string{
		"",
		"Memories",
		"with-dash",
		"with space",
		"dots.not.allowed",
		strings.Repeat("a", 65),
	}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateCollectionName(name), ErrInvalidCollectionName, name)
	}
}
