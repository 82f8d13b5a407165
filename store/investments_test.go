package store

import (
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlabonte15/investment-emailer/models"
)

func newTestStore(t *testing.T) *InvestmentStore {
	t.Helper()
	s, err := NewInvestmentStore(t.TempDir(), log.New(os.Stdout, "STORE: ", log.LstdFlags))
	require.NoError(t, err)
	return s
}

func TestInvestmentStore_EmptySnapshot(t *testing.T) {
	s := newTestStore(t)

	snapshot, err := s.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestInvestmentStore_SaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	rows := []models.InvestmentRecord{
		{"investment_id": "INV-001", "amount": 1000.0},
		{"investment_id": "INV-002", "amount": 2500.0},
	}
	saved, err := s.Save(rows, []string{"Investment ID", "Amount"})
	require.NoError(t, err)
	assert.False(t, saved.ParsedAt.IsZero())

	loaded, err := s.Snapshot()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Rows, 2)
	assert.Equal(t, "INV-001", loaded.Rows[0].Field("investment_id"))
	assert.Equal(t, []string{"Investment ID", "Amount"}, loaded.RawColumns)
}

func TestInvestmentStore_SaveReplaces(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save([]models.InvestmentRecord{{"investment_id": "OLD"}}, nil)
	require.NoError(t, err)
	_, err = s.Save([]models.InvestmentRecord{{"investment_id": "NEW-1"}, {"investment_id": "NEW-2"}}, nil)
	require.NoError(t, err)

	loaded, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, loaded.Rows, 2)
	assert.Equal(t, "NEW-1", loaded.Rows[0].Field("investment_id"))
}

func TestInvestmentStore_Clear(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save([]models.InvestmentRecord{{"investment_id": "INV-001"}}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Clear())

	snapshot, err := s.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	// Clearing an already-empty store is fine.
	require.NoError(t, s.Clear())
}
