package dashboard

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/guidectl/internal/ledger"
	"github.com/fyrsmithlabs/guidectl/internal/model"
)

func TestNew(t *testing.T) {
	l := ledger.New()
	m := New(l, 5*time.Second)
	assert.Equal(t, 5*time.Second, m.interval)
	assert.False(t, m.quitting)
}

func TestModel_Init(t *testing.T) {
	m := New(ledger.New(), 5*time.Second)
	assert.NotNil(t, m.Init())
}

func TestModel_Update_QuitKey(t *testing.T) {
	m := New(ledger.New(), 5*time.Second)
	keyMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
	updated, cmd := m.Update(keyMsg)
	got := updated.(Model)
	assert.True(t, got.quitting)
	assert.NotNil(t, cmd)
}

func TestModel_Update_RefreshKey(t *testing.T) {
	m := New(ledger.New(), 5*time.Second)
	keyMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}
	updated, cmd := m.Update(keyMsg)
	got := updated.(Model)
	assert.False(t, got.quitting)
	assert.NotNil(t, cmd)
}

func TestModel_Update_RefreshMsgPopulatesSnapshotAndHistory(t *testing.T) {
	m := New(ledger.New(), 5*time.Second)
	snap := snapshot{
		metrics:  model.LedgerMetrics{ViolationRatePer10Tasks: 2.5, PassRate: 0.8, TaskCount: 4},
		rankings: []model.ViolationRanking{{RuleID: "R001", Frequency: 3, Cost: 10, Score: 30}},
	}
	updated, _ := m.Update(refreshMsg(snap))
	got := updated.(Model)
	assert.Equal(t, 2.5, got.snapshot.metrics.ViolationRatePer10Tasks)
	assert.Equal(t, []float64{2.5}, got.snapshot.violationRates)
	assert.Len(t, got.snapshot.rankings, 1)
}

func TestModel_View_QuittingIsEmpty(t *testing.T) {
	m := New(ledger.New(), 5*time.Second)
	m.quitting = true
	assert.Equal(t, "", m.View())
}

func TestModel_View_RendersRankingsAndMetrics(t *testing.T) {
	m := New(ledger.New(), 5*time.Second)
	m.snapshot = snapshot{
		metrics:  model.LedgerMetrics{ViolationRatePer10Tasks: 1.0, PassRate: 0.5, TaskCount: 2},
		rankings: []model.ViolationRanking{{RuleID: "R042", Frequency: 2, Cost: 5, Score: 10}},
	}
	view := m.View()
	assert.Contains(t, view, "R042")
	assert.Contains(t, view, "guidectl dashboard")
}

func TestAppendToHistory_TruncatesAtHistorySize(t *testing.T) {
	var history []float64
	for i := 0; i < historySize+5; i++ {
		history = appendToHistory(history, float64(i))
	}
	assert.Len(t, history, historySize)
	assert.Equal(t, float64(historySize+4), history[len(history)-1])
}
