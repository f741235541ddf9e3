// Package checkpoint stores sampler and optimizer state in a bolt
// database, so interrupted runs can be resumed.
package checkpoint

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// MAIN is the bucket name for all checkpoints.
var MAIN = []byte("main")

// Float is a float64 which keeps infinities and NaN in JSON as the
// strings "+Inf", "-Inf" and "NaN". Log priors are +Inf at singular
// points and -Inf outside of the support.
type Float float64

// MarshalJSON encodes f as a number, or as a string if it is not
// finite.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return []byte(strconv.Quote(strconv.FormatFloat(v, 'g', -1, 64))), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

// UnmarshalJSON decodes both forms written by MarshalJSON.
func (f *Float) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) > 0 && s[0] == '"' {
		var err error
		if s, err = strconv.Unquote(s); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// CheckpointData stores checkpoint data.
type CheckpointData struct {
	// Parameters are log-space hyperparameter values by name.
	Parameters map[string]float64
	// Likelihood is the log likelihood at Parameters.
	Likelihood Float
	// LogPrior is the sum of the log priors at Parameters.
	LogPrior Float
	// Iter is the iteration the checkpoint was saved at.
	Iter int
	// Final is true if the run has finished.
	Final bool
}

// CheckpointIO saves and loads checkpoints under a single key.
type CheckpointIO struct {
	db      *bolt.DB
	key     []byte
	last    time.Time
	seconds float64
}

// NewCheckpointIO creates a new CheckpointIO. A checkpoint is
// considered old after the given number of seconds.
func NewCheckpointIO(db *bolt.DB, key []byte, seconds float64) (s *CheckpointIO) {
	s = &CheckpointIO{
		db:      db,
		key:     key,
		seconds: seconds,
	}
	s.SetNow()
	return
}

// Save saves checkpoint to the database.
func (s *CheckpointIO) Save(data *CheckpointData) error {
	// Even if saving fails, we do not want to run this code too often.
	s.SetNow()
	dataB, err := json.Marshal(data)
	if err != nil {
		log.Error("Error serializing checkpoint:", err)
		return err
	}
	err = SaveData(s.db, s.key, dataB)
	if err != nil {
		log.Error("Error saving checkpoint:", err)
	}
	return err
}

// GetParameters returns the stored checkpoint, or nil if there is
// none.
func (s *CheckpointIO) GetParameters() (*CheckpointData, error) {
	var data *CheckpointData

	b, err := LoadData(s.db, s.key)
	if err != nil || b == nil {
		return nil, err
	}

	err = json.Unmarshal(b, &data)
	if err != nil {
		return nil, err
	}

	if data == nil || len(data.Parameters) == 0 {
		return nil, nil
	}

	if data.Final {
		log.Noticef("Found finished checkpoint (iter=%v, lnL=%v, lnPrior=%v)", data.Iter, data.Likelihood, data.LogPrior)
	} else {
		log.Noticef("Found unfinished checkpoint (iter=%v, lnL=%v, lnPrior=%v)", data.Iter, data.Likelihood, data.LogPrior)
	}

	return data, nil
}

// Old returns true if the last checkpoint was saved too long ago.
func (s *CheckpointIO) Old() bool {
	return time.Since(s.last).Seconds() > s.seconds
}

// SetNow sets last checkpoint time to now.
func (s *CheckpointIO) SetNow() {
	s.last = time.Now()
}

// SaveData saves values in bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(MAIN)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// LoadData loads data from bolt database. The returned slice is a
// copy and is valid after the transaction.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(MAIN)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
