package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/migrate"
)

func TestPrintUsageListsCommandsSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	require.Contains(t, out, "Usage: acp-admin")
	require.Less(t, bytes.Index(buf.Bytes(), []byte("agent ")), bytes.Index(buf.Bytes(), []byte("tx-show")))
	for name := range commands() {
		require.Contains(t, out, name)
	}
}

func TestPrintMigrationStatusMarksPending(t *testing.T) {
	var buf bytes.Buffer
	applied := []migrate.Applied{{Version: "0001_acp_tx_attempts", AppliedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}}
	require.NoError(t, printMigrationStatus(&buf, []string{"0001_acp_tx_attempts.sql", "0002_next.sql"}, applied))

	out := buf.String()
	require.Contains(t, out, "0001_acp_tx_attempts  2026-01-02T03:04:05Z")
	require.Contains(t, out, "0002_next             pending")
}

func TestPrintJobIncludesMemos(t *testing.T) {
	job := &model.Job{ID: 12, Phase: model.PhaseNegotiation, Price: 1.5, ClientAddress: "0xClient",
		Memos: []*model.Memo{model.NewMemo(3, model.MemoTypeMessage, `{"name":"meme"}`, model.PhaseTransaction, model.MemoStatusPending)}}

	var buf bytes.Buffer
	require.NoError(t, printJob(&buf, job))
	out := buf.String()
	require.Contains(t, out, "NEGOTIATION")
	require.Contains(t, out, "1.5")
	require.Contains(t, out, "meme")
	require.Contains(t, out, "PENDING")
}

func TestPrintAttemptsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printAttempts(&buf, nil))
	require.Equal(t, "no attempts recorded\n", buf.String())
}

func TestCommandsValidateArgs(t *testing.T) {
	cmdCtx := &commandContext{Ctx: context.Background(), Out: &bytes.Buffer{}}

	require.True(t, errors.Is(runTxShow(cmdCtx, nil), errUsage))
	require.True(t, errors.Is(runJob(cmdCtx, nil), errUsage))
	require.True(t, errors.Is(runAgent(cmdCtx, []string{"not-an-address"}), errUsage))
	require.ErrorIs(t, runTxRecent(cmdCtx, nil), errDBNotConfigured)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abc…", truncate("abcdef", 4))
}
