package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spycheck/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.InitDiscard()
	os.Exit(m.Run())
}

func TestReadRecords_RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 3, 17} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			records := make([]Record, 0, n)
			for i := 0; i < n; i++ {
				records = append(records, Record{
					"id":     float64(i),
					"method": "tools/call",
					"nested": map[string]any{"seq": float64(i)},
				})
			}

			path := filepath.Join(t.TempDir(), "records.jsonl")
			require.NoError(t, WriteRecords(path, records))

			got, err := ReadRecords(path)
			require.NoError(t, err)
			require.Len(t, got, n)
			for i := range records {
				assert.Equal(t, records[i], got[i], "order must survive the round trip")
			}
		})
	}
}

func TestReadRecords_MissingFile(t *testing.T) {
	_, err := ReadRecords(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestReadRecords_SkipsBlankAndBrokenLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torn.jsonl")
	content := `{"id": 1}

not json at all
{"id": 2}
{"id": 3, "truncat
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	got, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, float64(1), got[0]["id"])
	assert.Equal(t, float64(2), got[1]["id"])
}

func TestWriteRecords_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "base.jsonl")
	require.NoError(t, WriteRecords(path, []Record{{"a": float64(1)}}))

	got, err := ReadRecords(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWriteRecords_OneCompactLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.jsonl")
	require.NoError(t, WriteRecords(path, []Record{
		{"b": float64(2), "a": float64(1)},
		{"c": float64(3)},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Keys come out sorted, so the file is stable across runs.
	assert.Equal(t, "{\"a\":1,\"b\":2}\n{\"c\":3}\n", string(data))
}
