package llmcore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleConstants(t *testing.T) {
	assert.Equal(t, Role("user"), RoleUser)
	assert.Equal(t, Role("assistant"), RoleAssistant)
	assert.Equal(t, Role("system"), RoleSystem)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleSystem.Valid())
	assert.False(t, Role("tool").Valid())
	assert.False(t, Role("").Valid())
}

func TestToolIsBuiltIn(t *testing.T) {
	assert.True(t, Tool{BuiltIn: "web_search"}.IsBuiltIn())
	assert.False(t, Tool{Name: "get_weather"}.IsBuiltIn())
}

func TestGenerateCallID(t *testing.T) {
	a := GenerateCallID()
	b := GenerateCallID()
	assert.True(t, strings.HasPrefix(a, "call-"))
	assert.NotEqual(t, a, b)
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobQueued.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.True(t, JobSucceeded.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.True(t, JobCancelled.Terminal())
}

func TestThoughtsEmpty(t *testing.T) {
	var nilThoughts *Thoughts
	assert.True(t, nilThoughts.Empty())
	assert.True(t, (&Thoughts{}).Empty())
	assert.False(t, (&Thoughts{ReasoningText: "hmm"}).Empty())
	assert.False(t, (&Thoughts{ToolCalls: []ToolCall{{Name: "search"}}}).Empty())
}
