package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aziz13-coder/newcodexhorary/internal/config"
	"github.com/aziz13-coder/newcodexhorary/internal/domain"
	"github.com/aziz13-coder/newcodexhorary/internal/judgment"
	"github.com/aziz13-coder/newcodexhorary/internal/rules"
	"github.com/aziz13-coder/newcodexhorary/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		DataDir:       t.TempDir(),
		Port:          0,
		RetentionDays: 30,
		Engine:        config.DefaultEngine(),
	}

	db, err := store.Open(filepath.Join(cfg.DataDir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := store.NewRepository(db, 30*24*time.Hour, zerolog.Nop())

	pack, err := rules.Default()
	require.NoError(t, err)
	engine, err := judgment.New(cfg.Engine, pack, nil, zerolog.Nop())
	require.NoError(t, err)

	return New(Config{
		Log:     zerolog.Nop(),
		Engine:  engine,
		History: repo,
		Cfg:     cfg,
	})
}

func judgeBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(judgeRequest{
		Chart: domain.Chart{
			AskedAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
			Ascendant: 15.0,
			Planets: map[domain.Planet]domain.PlanetPosition{
				domain.Moon:    {Planet: domain.Moon, Longitude: 155.0, Speed: 13.2},
				domain.Mercury: {Planet: domain.Mercury, Longitude: 37.0, Speed: 1.2},
			},
		},
		Contract: domain.Contract{
			Querent:     domain.Moon,
			Quesited:    domain.Mercury,
			Description: "Will the letter arrive?",
		},
	})
	require.NoError(t, err)
	return body
}

func TestHandleJudge_DerivesChartAndPersists(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/judge", bytes.NewReader(judgeBody(t)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp judgeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, domain.VerdictYes, resp.Result.Verdict)

	// The persisted record is retrievable by the returned id.
	getReq := httptest.NewRequest(http.MethodGet, "/api/judgments/"+resp.ID, nil)
	getRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(getRec, getReq)

	require.Equal(t, http.StatusOK, getRec.Code)
	var record store.Record
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &record))
	assert.Equal(t, domain.VerdictYes, record.Verdict)
	assert.Equal(t, "Will the letter arrive?", record.Question)
	require.NotNil(t, record.Chart)
	assert.NotEmpty(t, record.Chart.Aspects, "derived aspects travel with the snapshot")
}

func TestHandleJudge_RejectsEmptyChart(t *testing.T) {
	srv := testServer(t)

	body, err := json.Marshal(judgeRequest{Contract: domain.Contract{
		Querent: domain.Moon, Quesited: domain.Mercury,
	}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/judge", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetJudgment_UnknownID(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/judgments/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListJudgments(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/judge", bytes.NewReader(judgeBody(t)))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/judgments?limit=10", nil)
	listRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(listRec, listReq)

	require.Equal(t, http.StatusOK, listRec.Code)
	var resp struct {
		Judgments []store.Summary `json:"judgments"`
		Count     int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Judgments, 1)
	assert.Equal(t, "Will the letter arrive?", resp.Judgments[0].Question)
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestPrepareChart_FillsDerivedFields(t *testing.T) {
	chart := &domain.Chart{
		Planets: map[domain.Planet]domain.PlanetPosition{
			domain.Moon:    {Longitude: 155.0, Speed: 13.2},
			domain.Mercury: {Longitude: 37.0, Speed: 1.2},
		},
	}

	require.NoError(t, prepareChart(chart, config.DefaultEngine()))

	moonPos := chart.Planets[domain.Moon]
	assert.Equal(t, domain.Moon, moonPos.Planet)
	assert.Equal(t, domain.Virgo, moonPos.Sign)
	assert.False(t, moonPos.Retrograde)
	assert.False(t, chart.AskedAt.IsZero())

	require.Len(t, chart.Aspects, 1)
	aspect := chart.Aspects[0]
	assert.Equal(t, domain.Trine, aspect.Aspect)
	assert.True(t, aspect.Applying)
	assert.InDelta(t, 2.0, aspect.Orb, 1e-9)
	assert.InDelta(t, 2.0/12.0, aspect.PerfectionDays, 1e-9)

	require.NotNil(t, chart.MoonNextAsp)
	assert.Equal(t, domain.Mercury, chart.MoonNextAsp.Planet)
}
