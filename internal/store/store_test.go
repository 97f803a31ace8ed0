package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aziz13-coder/newcodexhorary/internal/domain"
)

func testRepo(t *testing.T, ttl time.Duration) *Repository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db, ttl, zerolog.Nop())
}

func testChart() *domain.Chart {
	return &domain.Chart{
		AskedAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		JulianDay: 2461113.896,
		Ascendant: 15.0,
		Planets: map[domain.Planet]domain.PlanetPosition{
			domain.Moon: {
				Planet:    domain.Moon,
				Longitude: 155.0,
				Sign:      domain.SignOf(155.0),
				Speed:     13.2,
			},
		},
	}
}

func TestRepository_SaveAndGetRoundTrip(t *testing.T) {
	repo := testRepo(t, time.Hour)

	contract := domain.Contract{
		Querent:     domain.Moon,
		Quesited:    domain.Mercury,
		Description: "Will the contract be signed?",
	}
	result := domain.JudgmentResult{
		Verdict:    domain.VerdictYes,
		Confidence: 80,
		Reasoning: []domain.ReasoningEntry{
			{Stage: "perfection", Rule: "Direct perfection by trine", Weight: 80},
		},
	}

	id, err := repo.Save(testChart(), contract, result)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := repo.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictYes, rec.Verdict)
	assert.Equal(t, 80, rec.Confidence)
	assert.Equal(t, "Will the contract be signed?", rec.Question)
	assert.Equal(t, domain.Moon, rec.Querent)
	require.NotNil(t, rec.Chart)
	assert.InDelta(t, 155.0, rec.Chart.Planets[domain.Moon].Longitude, 1e-9)
	require.Len(t, rec.Result.Reasoning, 1)
	assert.Equal(t, "perfection", rec.Result.Reasoning[0].Stage)
}

func TestRepository_GetUnknownID(t *testing.T) {
	repo := testRepo(t, time.Hour)

	_, err := repo.Get("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ExpiredRowIsInvisibleAndPruned(t *testing.T) {
	repo := testRepo(t, time.Nanosecond)

	id, err := repo.Save(testChart(), domain.Contract{
		Querent: domain.Moon, Quesited: domain.Mercury,
	}, domain.JudgmentResult{Verdict: domain.VerdictNo, Confidence: 60})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = repo.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := repo.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestRepository_ListNewestFirst(t *testing.T) {
	repo := testRepo(t, time.Hour)

	contract := domain.Contract{Querent: domain.Moon, Quesited: domain.Mercury}
	for i := 0; i < 3; i++ {
		_, err := repo.Save(testChart(), contract, domain.JudgmentResult{
			Verdict: domain.VerdictYes, Confidence: 70 + i,
		})
		require.NoError(t, err)
	}

	summaries, err := repo.List(2)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.Equal(t, domain.VerdictYes, s.Verdict)
		assert.NotEmpty(t, s.ID)
	}
}

func TestCleanupJob_RunDeletesExpired(t *testing.T) {
	repo := testRepo(t, time.Nanosecond)

	_, err := repo.Save(testChart(), domain.Contract{
		Querent: domain.Moon, Quesited: domain.Mercury,
	}, domain.JudgmentResult{Verdict: domain.VerdictInconclusive, Confidence: 20})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	job := NewCleanupJob(repo, zerolog.Nop())
	job.Run()

	summaries, err := repo.List(10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
