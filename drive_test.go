package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriveRegisterAndList(t *testing.T) {
	cc, ctx := testCLIContext(t)

	cmd := newDriveRegisterCmd()
	cmd.SetContext(ctx)
	require.NoError(t, cmd.Flags().Set("label", "archive"))
	require.NoError(t, cmd.Flags().Set("mount", "/mnt/archive"))
	require.NoError(t, cmd.RunE(cmd, nil))

	drives, err := cc.Store.ListDrives(ctx)
	require.NoError(t, err)
	require.Len(t, drives, 1)
	assert.Equal(t, "archive", drives[0].Label)
	assert.Equal(t, "source", drives[0].Role)
}

func TestDriveRegisterRequiresLabel(t *testing.T) {
	_, ctx := testCLIContext(t)

	cmd := newDriveRegisterCmd()
	cmd.SetContext(ctx)
	assert.Error(t, cmd.RunE(cmd, nil))
}

func TestDriveOnlineOffline(t *testing.T) {
	cc, ctx := testCLIContext(t)

	registerCmd := newDriveRegisterCmd()
	registerCmd.SetContext(ctx)
	require.NoError(t, registerCmd.Flags().Set("label", "archive"))
	require.NoError(t, registerCmd.RunE(registerCmd, nil))

	offlineCmd := newDriveOfflineCmd()
	offlineCmd.SetContext(ctx)
	require.NoError(t, offlineCmd.Flags().Set("label", "archive"))
	require.NoError(t, offlineCmd.RunE(offlineCmd, nil))

	d, err := cc.Store.GetDriveByLabel(ctx, "archive")
	require.NoError(t, err)
	assert.False(t, d.IsOnline)

	onlineCmd := newDriveOnlineCmd()
	onlineCmd.SetContext(ctx)
	require.NoError(t, onlineCmd.Flags().Set("label", "archive"))
	require.NoError(t, onlineCmd.RunE(onlineCmd, nil))

	d, err = cc.Store.GetDriveByLabel(ctx, "archive")
	require.NoError(t, err)
	assert.True(t, d.IsOnline)
}
