package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit-labs/merchantsync/internal/config"
)

func TestSetVersion(t *testing.T) {
	// Given
	originalVersion := version
	defer func() { version = originalVersion }()

	// When
	SetVersion("1.2.3")

	// Then
	assert.Equal(t, "1.2.3", version)
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "merchantsync", rootCmd.Use)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	commands := rootCmd.Commands()

	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "auth", "should have auth command")
	assert.Contains(t, commandNames, "products", "should have products command")
}

func TestAuthCmd_HasSubcommands(t *testing.T) {
	commandNames := make([]string, 0)
	for _, cmd := range authCmd.Commands() {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "login")
	assert.Contains(t, commandNames, "status")
	assert.Contains(t, commandNames, "revoke")
}

func TestProductsCmd_HasSubcommands(t *testing.T) {
	commandNames := make([]string, 0)
	for _, cmd := range productsCmd.Commands() {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "list")
	assert.Contains(t, commandNames, "push")
	assert.Contains(t, commandNames, "watch")
}

func TestExecute_ReturnsNoErrorWithHelp(t *testing.T) {
	// Save and restore stdout
	oldOut := rootCmd.OutOrStdout()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--help"})
	defer func() {
		rootCmd.SetOut(oldOut)
		rootCmd.SetArgs(nil)
	}()

	// When
	err := Execute()

	// Then
	assert.NoError(t, err)
}

func TestSetServices(t *testing.T) {
	oldCfg := cfg
	oldStore := tokenStore
	defer func() {
		cfg = oldCfg
		tokenStore = oldStore
	}()

	// Nil services leave state untouched
	SetServices(nil)
	assert.Equal(t, oldCfg, cfg)

	want := config.Default()
	SetServices(&Services{Config: want})
	assert.Equal(t, want, cfg)
}

func TestNewAuthClient_NoCredentialsConfigured(t *testing.T) {
	oldCfg := cfg
	defer func() { cfg = oldCfg }()

	cfg = config.Default()

	_, err := newAuthClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials_file")
}

func TestNewContentService_NoMerchantConfigured(t *testing.T) {
	oldCfg := cfg
	defer func() { cfg = oldCfg }()

	cfg = config.Default()

	_, err := newContentService(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merchant_id")
}
