package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemorySubmit(t *testing.T) {
	m := NewMemory()

	tx, err := m.Submit(context.Background(), []byte(`{"verdict":"IMMEDIATE_ACTION_REQUIRED"}`))
	require.NoError(t, err)
	require.NotEmpty(t, tx)

	entries := m.Entries()
	require.Len(t, entries, 1)
	require.JSONEq(t, `{"verdict":"IMMEDIATE_ACTION_REQUIRED"}`, string(entries[0]))
}

func TestMemorySubmitUniqueIDs(t *testing.T) {
	m := NewMemory()
	a, err := m.Submit(context.Background(), []byte("a"))
	require.NoError(t, err)
	b, err := m.Submit(context.Background(), []byte("b"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestMemorySubmitFailure(t *testing.T) {
	m := NewMemory()
	m.FailWith = errors.New("orderer unreachable")

	_, err := m.Submit(context.Background(), []byte("x"))
	require.Error(t, err)
	require.Empty(t, m.Entries())
}

func TestParseTxID(t *testing.T) {
	out := "2026-01-02 INFO [chaincodeCmd] chaincodeInvokeOrQuery -> Chaincode invoke successful. result: status:200 txid [ab12cd34]"
	require.Equal(t, "ab12cd34", parseTxID(out))

	require.Equal(t, "unknown", parseTxID("no transaction marker here"))
}
