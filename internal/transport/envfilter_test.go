package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvFilterDeniesExactAndPattern(t *testing.T) {
	f := &EnvFilter{Deny: []string{"AWS_SECRET_ACCESS_KEY", `^GITHUB_.*_TOKEN$`}}

	assert.True(t, f.denied("AWS_SECRET_ACCESS_KEY"))
	assert.True(t, f.denied("GITHUB_API_TOKEN"))
	assert.False(t, f.denied("GITHUB_REPOSITORY"))
	assert.False(t, f.denied("PATH"))
}

func TestEnvFilterAllowOverridesDeny(t *testing.T) {
	f := &EnvFilter{
		Deny:  []string{"API_KEY"},
		Allow: map[string]string{"API_KEY": "injected-value"},
	}

	assert.False(t, f.denied("API_KEY"))
}

func TestEnvFilterBuildAppliesOverridesOnce(t *testing.T) {
	f := &EnvFilter{Allow: map[string]string{"BELLWETHER_TEST_VAR": "1"}}

	env := f.Build()

	count := 0
	for _, kv := range env {
		if kv == "BELLWETHER_TEST_VAR=1" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
