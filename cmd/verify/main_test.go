package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
)

func TestEmbeddedDataPasses(t *testing.T) {
	store, err := knowledge.Default()
	require.NoError(t, err)

	for _, r := range verifyStore(store, true) {
		assert.True(t, r.passed, "%s: %s", r.name, r.message)
	}
}

func TestVerifyMessagesFlagsBrokenTemplate(t *testing.T) {
	m := knowledge.MustDefault().Messages()
	m.SiteTemplate = "no verb here"
	m.Welcome = " "

	failed := map[string]bool{}
	for _, r := range verifyMessages(m) {
		if !r.passed {
			failed[r.name] = true
		}
	}
	assert.Equal(t, map[string]bool{"Site template": true, "Welcome message": true}, failed)
}

func TestListMessage(t *testing.T) {
	assert.Equal(t, "ok", listMessage(nil))
	assert.Equal(t, "offending: a, b", listMessage([]string{"a", "b"}))
}
