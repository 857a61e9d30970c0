package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-etl/config"
	"ride-etl/models"
	"ride-etl/search"
	"ride-etl/storage"
	"ride-etl/utils"
)

const sourceHeader = "Date,Time,Booking ID,Booking Status,Customer ID,Vehicle Type,Pickup Location,Drop Location," +
	"Avg VTAT,Avg CTAT,Cancelled Rides by Customer,Reason for cancelling by Customer,Cancelled Rides by Driver," +
	"Driver Cancellation Reason,Incomplete Rides,Incomplete Rides Reason,Booking Value,Ride Distance," +
	"Driver Ratings,Customer Rating,Payment Method\n"

// Two identical rows and one with a missing ride distance.
const scenarioRows = "" +
	"2024-03-23,12:29:38,CNR1,Completed,CID1,eBike,Palam Vihar,Jhilmil,5.5,30.1,0,null,0,null,0,null,237,10,4.5,4.9,UPI\n" +
	"2024-03-23,12:29:38,CNR1,Completed,CID1,eBike,Palam Vihar,Jhilmil,5.5,30.1,0,null,0,null,0,null,237,10,4.5,4.9,UPI\n" +
	"2024-11-29,18:01:39,CNR2,Completed,CID2,Go Sedan,Shastri Nagar,Gurgaon Sector 56,4.9,14,0,null,0,null,0,null,627,null,4.1,4.3,Cash\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DBDriver:           config.DriverSQLite,
		SQLitePath:         filepath.Join(dir, "trips.db"),
		DBConnectAttempts:  1,
		TableName:          "table_m3",
		SourceCSVPath:      "/data/uber_data_raw.csv",
		CleanCSVPath:       "/data/out/uber_data_clean.csv",
		SearchBackend:      config.BackendBleve,
		BleveDir:           filepath.Join(dir, "index"),
		IndexName:          "uber_ride_analytics_clean",
		EmptyNumericPolicy: config.EmptyNumericZero,
	}
}

func writeSource(t *testing.T, fs afero.Fs, cfg *config.Config, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, cfg.SourceCSVPath, []byte(content), 0o644))
}

func rowCount(t *testing.T, cfg *config.Config) int64 {
	t.Helper()
	table, err := storage.OpenTripTable(context.Background(), cfg, utils.NewNullLogger())
	require.NoError(t, err)
	defer table.Close()
	n, err := table.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestRunnerEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	fs := afero.NewMemMapFs()
	writeSource(t, fs, cfg, sourceHeader+scenarioRows)

	result, err := NewRunner(cfg, fs, utils.NewNullLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, 3, result.Load.Inserted)
	assert.Equal(t, 2, result.Transform.Clean.RowsOut)
	assert.Equal(t, 2, result.Publish.Indexed)
	assert.Equal(t, uint64(2), result.Publish.Count)

	header, rows, err := storage.ReadAll(fs, cfg.CleanCSVPath)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "date", header[0])

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %s not in %v", name, header)
		return -1
	}
	var cnr2 []string
	for _, r := range rows {
		if r[col("booking_id")] == "CNR2" {
			cnr2 = r
		}
	}
	require.NotNil(t, cnr2)
	assert.Equal(t, "10", cnr2[col("ride_distance")], "missing distance takes the mean of the others")
	assert.Equal(t, "2024-11-29", cnr2[col("date")])
	assert.Equal(t, "18:01:39", cnr2[col("time")])
	assert.Equal(t, models.UnknownValue, cnr2[col("driver_cancellation_reason")])
}

func TestRunnerRerunDoesNotDuplicate(t *testing.T) {
	cfg := testConfig(t)
	fs := afero.NewMemMapFs()
	writeSource(t, fs, cfg, sourceHeader+scenarioRows)
	runner := NewRunner(cfg, fs, utils.NewNullLogger())

	for i := 0; i < 2; i++ {
		result, err := runner.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(2), result.Publish.Count, "run %d", i)
	}
}

func TestRunnerStopsAtFailingStage(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = config.DriverPostgres
	cfg.PostgresHost = "127.0.0.1"
	cfg.PostgresPort = "1"
	cfg.PostgresUser = "airflow"
	cfg.PostgresPassword = "airflow"
	cfg.PostgresDB = "airflow"
	cfg.PostgresSSLMode = "disable"

	result, err := NewRunner(cfg, afero.NewMemMapFs(), utils.NewNullLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), StageInitSchema)
	assert.Nil(t, result.Load)
	assert.Nil(t, result.Publish)
}

func TestRunnerHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(testConfig(t), afero.NewMemMapFs(), utils.NewNullLogger()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchemaInitializerIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	fs := afero.NewMemMapFs()
	writeSource(t, fs, cfg, sourceHeader+scenarioRows)
	ctx := context.Background()
	logger := utils.NewNullLogger()

	require.NoError(t, NewSchemaInitializer(cfg, logger).Run(ctx))
	_, err := NewLoader(cfg, fs, logger).Run(ctx)
	require.NoError(t, err)

	require.NoError(t, NewSchemaInitializer(cfg, logger).Run(ctx))
	require.NoError(t, NewSchemaInitializer(cfg, logger).Run(ctx))
	assert.Equal(t, int64(0), rowCount(t, cfg))

	payload, err := NewExtractor(cfg, logger).Extract(ctx)
	require.NoError(t, err)
	ds, err := models.DecodePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, models.TripColumnNames(), ds.Columns)
}

func TestLoaderSkipsPopulatedTable(t *testing.T) {
	cfg := testConfig(t)
	fs := afero.NewMemMapFs()
	writeSource(t, fs, cfg, sourceHeader+scenarioRows)
	ctx := context.Background()
	logger := utils.NewNullLogger()

	require.NoError(t, NewSchemaInitializer(cfg, logger).Run(ctx))
	loader := NewLoader(cfg, fs, logger)

	first, err := loader.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, &LoadResult{Inserted: 3}, first)

	second, err := loader.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, &LoadResult{Skipped: true}, second)
	assert.Equal(t, int64(3), rowCount(t, cfg))
}

func TestLoaderFailuresLeaveTableEmpty(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"wrong header", "Date,Time\n2024-03-23,12:29:38\n", storage.ErrHeaderMismatch},
		{"short row", sourceHeader + scenarioRows + "2024-03-23,12:29:38,CNR9\n", nil},
		{"empty file", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			fs := afero.NewMemMapFs()
			writeSource(t, fs, cfg, tt.content)
			ctx := context.Background()

			require.NoError(t, NewSchemaInitializer(cfg, utils.NewNullLogger()).Run(ctx))
			_, err := NewLoader(cfg, fs, utils.NewNullLogger()).Run(ctx)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, int64(0), rowCount(t, cfg))
		})
	}
}

func TestHeaderOnlySourceFlowsThrough(t *testing.T) {
	cfg := testConfig(t)
	fs := afero.NewMemMapFs()
	writeSource(t, fs, cfg, sourceHeader)

	result, err := NewRunner(cfg, fs, utils.NewNullLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Load.Inserted)
	assert.Equal(t, 0, result.Transform.Clean.RowsOut)
	assert.Equal(t, uint64(0), result.Publish.Count)

	header, rows, err := storage.ReadAll(fs, cfg.CleanCSVPath)
	require.NoError(t, err)
	assert.Len(t, header, len(models.TripColumns))
	assert.Empty(t, rows)
}

func TestTransformerRejectsBadPayload(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewTransformer(cfg, afero.NewMemMapFs(), utils.NewNullLogger()).
		Transform(context.Background(), models.Payload("{"))
	assert.Error(t, err)
}

// recordingIndexer keeps documents in memory.
type recordingIndexer struct {
	pingErr error
	docs    []search.Document
	closed  bool
}

func (r *recordingIndexer) Name() string { return "recording" }

func (r *recordingIndexer) Ping(ctx context.Context) error { return r.pingErr }

func (r *recordingIndexer) Recreate(ctx context.Context, index string) error {
	r.docs = nil
	return nil
}

func (r *recordingIndexer) Index(ctx context.Context, index string, doc search.Document) (string, error) {
	r.docs = append(r.docs, doc)
	return "id", nil
}

func (r *recordingIndexer) Refresh(ctx context.Context, index string) error { return nil }

func (r *recordingIndexer) Count(ctx context.Context, index string) (uint64, error) {
	return uint64(len(r.docs)), nil
}

func (r *recordingIndexer) Close() error {
	r.closed = true
	return nil
}

func publisherWith(cfg *config.Config, fs afero.Fs, idx *recordingIndexer) *Publisher {
	p := NewPublisher(cfg, fs, utils.NewNullLogger())
	p.newIndexer = func(*config.Config, *utils.Logger) (search.Indexer, error) { return idx, nil }
	return p
}

func TestPublisherInfersTypes(t *testing.T) {
	cfg := testConfig(t)
	fs := afero.NewMemMapFs()
	clean := "booking_id,booking_value,date,note\n" +
		"CNR1,237,2024-03-23,\n" +
		"CNR2,627.5,,x\n"
	require.NoError(t, afero.WriteFile(fs, cfg.CleanCSVPath, []byte(clean), 0o644))

	idx := &recordingIndexer{}
	result, err := publisherWith(cfg, fs, idx).Publish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Indexed)
	assert.True(t, idx.closed)

	require.Len(t, idx.docs, 2)
	assert.Equal(t, search.Document{"booking_id": "CNR1", "booking_value": 237.0, "date": "2024-03-23", "note": nil}, idx.docs[0])
	assert.Equal(t, search.Document{"booking_id": "CNR2", "booking_value": 627.5, "date": nil, "note": "x"}, idx.docs[1])
}

func TestPublisherPingFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	idx := &recordingIndexer{pingErr: &search.Error{Op: "Ping", Err: search.ErrBackendUnavailable}}

	_, err := publisherWith(cfg, afero.NewMemMapFs(), idx).Publish(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, search.ErrBackendUnavailable))
	assert.True(t, idx.closed, "indexer must be closed on failure")
}

func TestPublisherMissingCleanFile(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewPublisher(cfg, afero.NewMemMapFs(), utils.NewNullLogger()).Publish(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "uber_data_clean.csv"), err.Error())
}
