package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchClient_Run(t *testing.T) {
	t.Parallel()

	var gotBody SearchRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/search/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(SearchOutcome{
			Result: &SearchResult{
				JobID:    "job-9",
				Molecule: "semaglutide",
				Patents: []PatentEntry{{
					PatentNumber:   "US1234567",
					Country:        "US",
					ExpirationDate: time.Date(2031, 3, 15, 0, 0, 0, 0, time.UTC),
				}},
			},
			FromCache: true,
		})
	})
	c := newTestClient(t, mux)

	outcome, err := c.Search().Run(context.Background(), SearchRequest{
		Molecule:  "semaglutide",
		Countries: []string{"US", "EP"},
	})
	require.NoError(t, err)
	assert.Equal(t, "semaglutide", gotBody.Molecule)
	assert.Equal(t, []string{"US", "EP"}, gotBody.Countries)
	assert.True(t, outcome.FromCache)
	require.Len(t, outcome.Result.Patents, 1)
	assert.Equal(t, "US1234567", outcome.Result.Patents[0].PatentNumber)
}

func TestSearchClient_RunRequiresMolecule(t *testing.T) {
	t.Parallel()

	c, err := NewClient("https://api.example.com", "token")
	require.NoError(t, err)

	_, err = c.Search().Run(context.Background(), SearchRequest{Countries: []string{"US"}})
	require.Error(t, err)
}

func TestSearchClient_JobStatus(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/search/jobs/job-9", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(JobStatus{JobID: "job-9", Status: "processing", Progress: 40})
	})
	c := newTestClient(t, mux)

	status, err := c.Search().JobStatus(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, "processing", status.Status)
	assert.Equal(t, 40, status.Progress)
}

func TestSearchClient_History(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/search/history", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode([]HistoryEntry{
			{JobID: "job-9", Molecule: "semaglutide", FromCache: true},
		})
	})
	c := newTestClient(t, mux)

	entries, err := c.Search().History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "job-9", entries[0].JobID)
}
