package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/specialistvlad/gridkit/internal/di"
	"github.com/specialistvlad/gridkit/internal/testutil"
	"github.com/specialistvlad/gridkit/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %q not gathered", name)
	return nil
}

func TestObserver(t *testing.T) {
	m, err := New("test")
	require.NoError(t, err)

	id := di.Named[*web.Application]("api")
	m.ServiceStarted(id, 20*time.Millisecond)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.running))

	m.ServiceStopped(id, 5*time.Millisecond, errors.New("boom"))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.running))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.serviceFailures.WithLabelValues(id.String())))

	starts := family(t, m, "test_service_start_seconds")
	require.Len(t, starts.GetMetric(), 1)
	assert.Equal(t, uint64(1), starts.GetMetric()[0].GetHistogram().GetSampleCount())
	assert.Equal(t, "service", starts.GetMetric()[0].GetLabel()[0].GetName())
	assert.Equal(t, id.String(), starts.GetMetric()[0].GetLabel()[0].GetValue())
}

func TestMiddleware(t *testing.T) {
	m, err := New("test")
	require.NoError(t, err)

	app, err := web.NewApplication(web.DefaultSettings())
	require.NoError(t, err)
	app.Router().Use(m.Middleware())
	app.Router().HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, 2.0, promtest.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/items/{id}", "418")))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.inFlight))
}

func TestFeature(t *testing.T) {
	res := testutil.StartApp(t, map[string]string{
		"app.hcl": `
metrics {
  path = "/prom"
}
`,
	}, web.Feature{}, Feature{})
	require.NoError(t, res.Err)

	resp, err := http.Get(res.URL(t, "/prom"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "gridkit_services_running")
	assert.Contains(t, text, `gridkit_service_start_seconds_count{service="*web.Application"} 1`)
}
