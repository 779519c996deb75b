package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunVersionExitsZero(t *testing.T) {
	assert.Equal(t, 0, run([]string{"-V"}))
}

func TestRunHelpExitsZero(t *testing.T) {
	assert.Equal(t, 0, run([]string{"--help"}))
}

func TestRunNoOperationIsInvalidInvocation(t *testing.T) {
	assert.Equal(t, 2, run([]string{"foo"}))
}

func TestRunUnconfiguredBackendFailsCleanly(t *testing.T) {
	// No real back-end is wired (spec.md §1 treats it as an external
	// collaborator), so a mutating operation must fail, not panic or
	// hang waiting on a prompt.
	assert.Equal(t, 1, run([]string{"-S", "--noconfirm", "somepkg"}), "no back-end configured")
}
