package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kinda/internal/ir"
	"github.com/roach88/kinda/internal/queryir"
)

func TestWriteTrace_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	run := createTestRun(t, s, "run-1")

	records := []ir.TraceRecord{
		{Seq: 1, Kind: ir.TraceBegin},
		emitRecord(2, "movie", "change", "title", int64(7), true, nil),
		{Seq: 3, Kind: ir.TraceListener, Object: "movie", Event: "change", Listener: "log", Args: ir.IRArray{ir.IRString("title")}},
		{Seq: 4, Kind: ir.TraceEnd},
	}
	// out of order on purpose
	for _, i := range []int{2, 0, 3, 1} {
		require.NoError(t, s.WriteTrace(ctx, run, records[i]))
	}

	got, err := s.ReadTrace(ctx, run)
	require.NoError(t, err)
	require.Len(t, got, 4)

	for i, rec := range got {
		want := records[i]
		wantID, err := ir.TraceID(want)
		require.NoError(t, err)
		want.ID = wantID
		assert.Equal(t, want, rec)
	}
	assert.Equal(t, ir.IRArray{ir.IRString("title"), ir.IRInt(7), ir.IRBool(true), ir.IRNull{}}, got[1].Args)
	assert.Nil(t, got[0].Args)
}

func TestWriteTrace_KeepsExplicitID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	run := createTestRun(t, s, "run-1")

	require.NoError(t, s.WriteTrace(ctx, run, ir.TraceRecord{ID: "custom", Seq: 1, Kind: ir.TraceEnd}))

	got, err := s.ReadTrace(ctx, run)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "custom", got[0].ID)
}

func TestWriteTrace_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	run := createTestRun(t, s, "run-1")

	rec := emitRecord(1, "a", "x")
	require.NoError(t, s.WriteTrace(ctx, run, rec))
	require.NoError(t, s.WriteTrace(ctx, run, rec))
	require.NoError(t, s.WriteTrace(ctx, run, emitRecord(1, "b", "other")))

	got, err := s.ReadTrace(ctx, run)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Object)
}

func TestWriteTrace_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteTrace(context.Background(), "missing", emitRecord(1, "a", "x"))
	assert.Error(t, err)
}

func TestWriteTraces_Batch(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestRun(t, s, "a")
	createTestRun(t, s, "b")

	require.NoError(t, s.WriteTraces(ctx, "a", []ir.TraceRecord{
		emitRecord(1, "o", "x"),
		{Seq: 2, Kind: ir.TraceDefer, Object: "o", Event: "y"},
		emitRecord(3, "o", "y"),
	}))
	require.NoError(t, s.WriteTraces(ctx, "b", []ir.TraceRecord{emitRecord(1, "o", "x")}))

	got, err := s.ReadTrace(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	deferred, err := s.ReadTraceKind(ctx, "a", ir.TraceDefer)
	require.NoError(t, err)
	require.Len(t, deferred, 1)
	assert.Equal(t, int64(2), deferred[0].Seq)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Run{
		{ID: "a", Name: "a-scenario", Records: 3},
		{ID: "b", Name: "b-scenario", Records: 1},
	}, runs)
}

func TestWriteTraces_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	err := s.WriteTraces(ctx, "missing", []ir.TraceRecord{emitRecord(1, "o", "x")})
	require.Error(t, err)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM traces").Scan(&count))
	assert.Zero(t, count)
}

func TestReadTrace_Empty(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadTrace(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestWriteRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.WriteRun(ctx, Run{ID: "r", Name: "first"}))
	require.NoError(t, s.WriteRun(ctx, Run{ID: "r", Name: "second"}))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "first", runs[0].Name)
}

func TestQueryTrace_Filters(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	run := createTestRun(t, s, "run-1")

	require.NoError(t, s.WriteTraces(ctx, run, []ir.TraceRecord{
		emitRecord(1, "film", "rated", int64(4)),
		{Seq: 2, Kind: ir.TraceListener, Object: "film", Event: "rated", Listener: "audit"},
		{Seq: 3, Kind: ir.TraceListener, Object: "film", Event: "rated", Listener: "log"},
		emitRecord(4, "book", "rated"),
		{Seq: 5, Kind: ir.TraceListener, Object: "book", Event: "rated", Listener: "audit"},
	}))

	seqs := func(q queryir.Select) []int64 {
		t.Helper()
		got, err := s.QueryTrace(ctx, q)
		require.NoError(t, err)
		out := []int64{}
		for _, rec := range got {
			out = append(out, rec.Seq)
		}
		return out
	}

	audit := queryir.Equals{Field: queryir.FieldListener, Value: ir.IRString("audit")}
	film := queryir.Equals{Field: queryir.FieldObject, Value: ir.IRString("film")}

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, seqs(queryir.Where(run)))
	assert.Equal(t, []int64{2, 5}, seqs(queryir.Where(run, audit)))
	assert.Equal(t, []int64{2}, seqs(queryir.Where(run, audit, film)))
	assert.Equal(t, []int64{3, 4}, seqs(queryir.Where(run, queryir.SeqRange{Min: 3, Max: 4})))
	assert.Equal(t, []int64{4, 5}, seqs(queryir.Where(run, queryir.SeqRange{Min: 4})))
	assert.Empty(t, seqs(queryir.Where("other", audit)))
}

func TestQueryTrace_InvalidQuery(t *testing.T) {
	s := createTestStore(t)

	_, err := s.QueryTrace(context.Background(), queryir.Where("run-1",
		queryir.Equals{Field: "args", Value: ir.IRString("[]")}))
	assert.ErrorContains(t, err, `unknown field "args"`)
}
