package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisense/field-survey-etl/internal/observability"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	return New(5*time.Second,
		observability.NewChannelLogger("data_ingestion", "silent", "text"),
		observability.NewMetricsForTesting())
}

// tempDB creates a SQLite database file with a small crop table and returns
// its locator.
func tempDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "survey.db")
	locator := "sqlite:" + path

	a := newTestAdapter(t)
	db, err := a.Connect(context.Background(), locator)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE crops (Field_ID INTEGER, Crop_type TEXT, Elevation REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO crops VALUES (1, 'wheat', -300.5), (2, 'tea', 210.0)`)
	require.NoError(t, err)
	return locator
}

func TestConnect(t *testing.T) {
	t.Run("sqlite locator connects and pings", func(t *testing.T) {
		a := newTestAdapter(t)
		db, err := a.Connect(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "x.db"))
		require.NoError(t, err)
		assert.NoError(t, db.Close())
	})

	t.Run("unreachable target fails with connection kind", func(t *testing.T) {
		a := newTestAdapter(t)
		_, err := a.Connect(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "no", "such", "dir", "x.db"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConnection)
	})
}

func TestResolveLocator(t *testing.T) {
	tests := []struct {
		locator string
		driver  string
		dsn     string
	}{
		{"postgres://user@host/db", "postgres", "postgres://user@host/db"},
		{"postgresql://user@host/db", "postgres", "postgresql://user@host/db"},
		{"sqlite:farm-survey.db", "sqlite", "farm-survey.db"},
		{"sqlite://farm-survey.db", "sqlite", "farm-survey.db"},
		{"sqlite:///farm-survey.db", "sqlite", "farm-survey.db"},
		{"farm-survey.db", "sqlite", "farm-survey.db"},
	}
	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			driver, dsn := resolveLocator(tt.locator)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestQuery(t *testing.T) {
	locator := tempDB(t)
	a := newTestAdapter(t)
	db, err := a.Connect(context.Background(), locator)
	require.NoError(t, err)
	defer db.Close()

	t.Run("materializes rows with typed cells", func(t *testing.T) {
		table, err := a.Query(context.Background(), db, `SELECT * FROM crops ORDER BY Field_ID`)
		require.NoError(t, err)

		assert.Equal(t, []string{"Field_ID", "Crop_type", "Elevation"}, table.Columns())
		require.Equal(t, 2, table.NumRows())

		id, _ := table.Cell(0, "Field_ID")
		assert.Equal(t, 1.0, id, "integers widen to float64")
		crop, _ := table.Cell(0, "Crop_type")
		assert.Equal(t, "wheat", crop)
		elev, _ := table.Cell(0, "Elevation")
		assert.Equal(t, -300.5, elev)
	})

	t.Run("empty result is a hard failure", func(t *testing.T) {
		_, err := a.Query(context.Background(), db, `SELECT * FROM crops WHERE Field_ID = 999`)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyResult)
	})

	t.Run("malformed statement fails with query kind", func(t *testing.T) {
		_, err := a.Query(context.Background(), db, `SELEC nonsense`)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrQuery)
	})
}

func TestFetchCSV(t *testing.T) {
	t.Run("parses header and typed cells", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("Field_ID,Weather_station\n1,0\n2,\n"))
		}))
		defer srv.Close()

		a := newTestAdapter(t)
		table, err := a.FetchCSV(context.Background(), srv.URL, "station_mapping")
		require.NoError(t, err)

		assert.Equal(t, []string{"Field_ID", "Weather_station"}, table.Columns())
		require.Equal(t, 2, table.NumRows())

		station, _ := table.Cell(0, "Weather_station")
		assert.Equal(t, 0.0, station)
		station, _ = table.Cell(1, "Weather_station")
		assert.Nil(t, station, "empty cell becomes null")
	})

	t.Run("non-OK status fails with transport kind", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		a := newTestAdapter(t)
		_, err := a.FetchCSV(context.Background(), srv.URL, "station_mapping")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
	})

	t.Run("unreachable host fails with transport kind", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		a := newTestAdapter(t)
		_, err := a.FetchCSV(context.Background(), srv.URL, "station_mapping")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
	})

	t.Run("unparseable payload fails with malformed kind", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("a,b\n\"unterminated,1\n"))
		}))
		defer srv.Close()

		a := newTestAdapter(t)
		_, err := a.FetchCSV(context.Background(), srv.URL, "weather_messages")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedSource)
	})

	t.Run("empty payload fails with malformed kind", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		a := newTestAdapter(t)
		_, err := a.FetchCSV(context.Background(), srv.URL, "weather_messages")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedSource)
	})
}
