package checkpoint

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openDB(t *testing.T) *bolt.DB {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "checkpoint.db"), 0600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveLoad(t *testing.T) {
	db := openDB(t)
	cp := NewCheckpointIO(db, []byte("H1"), 60)

	data, err := cp.GetParameters()
	require.NoError(t, err)
	assert.Nil(t, data, "empty database")

	saved := &CheckpointData{
		Parameters: map[string]float64{"log_lengthscale": -1.25, "log_noise": 0.5},
		Likelihood: -12.5,
		LogPrior:   -0.75,
		Iter:       420,
	}
	require.NoError(t, cp.Save(saved))

	loaded, err := cp.GetParameters()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	// other keys are independent
	other, err := NewCheckpointIO(db, []byte("H0"), 60).GetParameters()
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestSaveLoadInfinite(t *testing.T) {
	db := openDB(t)
	cp := NewCheckpointIO(db, []byte("H1"), 60)

	// a horseshoe parameter at zero has an infinite log prior
	saved := &CheckpointData{
		Parameters: map[string]float64{"log_amplitude": 0},
		Likelihood: Float(math.Inf(-1)),
		LogPrior:   Float(math.Inf(1)),
		Iter:       10,
		Final:      true,
	}
	require.NoError(t, cp.Save(saved))

	loaded, err := cp.GetParameters()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved, loaded)
}

func TestFloatJSON(t *testing.T) {
	for _, v := range []float64{0, -12.5, 1e-300, math.Inf(1), math.Inf(-1), math.NaN()} {
		b, err := json.Marshal(Float(v))
		require.NoError(t, err, v)
		var f Float
		require.NoError(t, json.Unmarshal(b, &f), string(b))
		if math.IsNaN(v) {
			assert.True(t, math.IsNaN(float64(f)), string(b))
		} else {
			assert.Equal(t, v, float64(f), string(b))
		}
	}
	b, _ := json.Marshal(Float(math.Inf(-1)))
	assert.Equal(t, `"-Inf"`, string(b))
	b, _ = json.Marshal(Float(-0.75))
	assert.Equal(t, `-0.75`, string(b))
}

func TestEmptyParameters(t *testing.T) {
	db := openDB(t)
	cp := NewCheckpointIO(db, []byte("k"), 60)
	require.NoError(t, cp.Save(&CheckpointData{Iter: 3}))
	data, err := cp.GetParameters()
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestLoadDataCopy(t *testing.T) {
	db := openDB(t)
	require.NoError(t, SaveData(db, []byte("a"), []byte("value")))
	b, err := LoadData(db, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), b)

	b, err = LoadData(db, []byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestNilDB(t *testing.T) {
	assert.NoError(t, SaveData(nil, []byte("a"), []byte("b")))
	b, err := LoadData(nil, []byte("a"))
	assert.NoError(t, err)
	assert.Nil(t, b)
}

func TestOld(t *testing.T) {
	cp := NewCheckpointIO(nil, []byte("k"), 3600)
	assert.False(t, cp.Old())
	cp.last = time.Now().Add(-2 * time.Hour)
	assert.True(t, cp.Old())
	cp.SetNow()
	assert.False(t, cp.Old())
}
