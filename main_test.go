package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cupsoauth/cmd"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "dev", version)

	original := cmd.GetVersion()
	defer cmd.SetVersion(original)

	cmd.SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", cmd.GetVersion())
}
