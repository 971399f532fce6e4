package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()
	a.LinesProcessedTotal.Add(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(a.LinesProcessedTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.LinesProcessedTotal))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.FilesAggregated.WithLabelValues("ok").Inc()
	m.VocabularySize.Set(42)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `vocab_files_aggregated_total{status="ok"} 1`)
	assert.Contains(t, string(body), "vocab_index_size 42")
}

func TestPush(t *testing.T) {
	var gotPath string
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	m := New()
	m.DistinctWords.Set(7)
	require.NoError(t, m.Push(gw.URL, "vocab"))
	assert.Equal(t, "/metrics/job/vocab", gotPath)
}
