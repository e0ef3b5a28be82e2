package bagel

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"project/graph"
)

// CheckpointStore persists the state of a partition at the end of an epoch
// in a per-partition sqlite file.
type CheckpointStore struct {
	db          *sql.DB
	partitionId int
}

// OpenCheckpoints opens (creating if needed) checkpoints<partitionId>.db in
// dir.
func OpenCheckpoints(dir string, partitionId int) (*CheckpointStore, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(
		"sqlite3", filepath.Join(dir, fmt.Sprintf("checkpoints%v.db", partitionId)),
	)
	if err != nil {
		log.Printf("OpenCheckpoints: database error: %v\n", err)
		return nil, err
	}

	//goland:noinspection SqlDialectInspection
	const createCheckpoints string = `
	  CREATE TABLE IF NOT EXISTS checkpoints (
	  epoch INTEGER NOT NULL,
	  algorithm TEXT NOT NULL,
	  state BLOB NOT NULL,
	  PRIMARY KEY (algorithm, epoch)
	  );`

	if _, err := db.Exec(createCheckpoints); err != nil {
		log.Printf("OpenCheckpoints: failed to execute command: %v\n", err)
		db.Close()
		return nil, err
	}
	return &CheckpointStore{db: db, partitionId: partitionId}, nil
}

// Store saves state for epoch, discarding any checkpoint at or after it.
func (c *CheckpointStore) Store(algorithm string, epoch uint64, state []byte) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		"DELETE FROM checkpoints WHERE algorithm=? AND epoch>=?", algorithm, epoch,
	); err != nil {
		tx.Rollback()
		log.Printf("storeCheckpoint: failed to execute command: %v\n", err)
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO checkpoints VALUES(?,?,?)", epoch, algorithm, state,
	); err != nil {
		tx.Rollback()
		log.Printf("storeCheckpoint: error inserting into db: %v\n", err)
		return err
	}
	return tx.Commit()
}

// Latest is the newest stored epoch of algorithm, or -1 when there is none.
func (c *CheckpointStore) Latest(algorithm string) (int64, error) {
	var epoch sql.NullInt64
	err := c.db.QueryRow(
		"SELECT MAX(epoch) FROM checkpoints WHERE algorithm=?", algorithm,
	).Scan(&epoch)
	if err != nil {
		return -1, err
	}
	if !epoch.Valid {
		return -1, nil
	}
	return epoch.Int64, nil
}

func (c *CheckpointStore) Load(algorithm string, epoch uint64) ([]byte, error) {
	var state []byte
	err := c.db.QueryRow(
		"SELECT state FROM checkpoints WHERE algorithm=? AND epoch=?", algorithm, epoch,
	).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no %s checkpoint for epoch %d on partition %d", algorithm, epoch, c.partitionId)
	}
	return state, err
}

// Reset drops every checkpoint of algorithm.
func (c *CheckpointStore) Reset(algorithm string) error {
	_, err := c.db.Exec("DELETE FROM checkpoints WHERE algorithm=?", algorithm)
	return err
}

func (c *CheckpointStore) Close() error {
	return c.db.Close()
}

type ssspState[V graph.ID] struct {
	Distances []float64
	Frontier  []FrontierEntry[V]
}

type apspState[V graph.ID] struct {
	Pairs  map[V]map[V]float64
	Active []uint64
}

func encodeState(state interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeState(data []byte, state interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(state); err != nil {
		return fmt.Errorf("decode checkpoint: %w", err)
	}
	return nil
}

// checkpoint stores state when epoch falls on the configured interval.
func (ec *ExecContext) checkpoint(algorithm string, epoch uint64, state interface{}) error {
	if ec.Checkpoints == nil || ec.StepsBetweenCheckpoints == 0 || epoch%ec.StepsBetweenCheckpoints != 0 {
		return nil
	}
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	if err := ec.Checkpoints.Store(algorithm, epoch, data); err != nil {
		return err
	}
	ec.logf("checkpoint: stored %s epoch %d (%d bytes)", algorithm, epoch, len(data))
	return nil
}

// restore agrees with every partition on the newest epoch they all hold and
// loads it into state. It returns 0 when there is nothing to resume from.
// Every partition must call it, resuming or not, since it is a superstep.
func (ec *ExecContext) restore(ctx context.Context, algorithm string, state interface{}) (uint64, error) {
	latest := int64(-1)
	if ec.Resume && ec.Checkpoints != nil {
		var err error
		if latest, err = ec.Checkpoints.Latest(algorithm); err != nil {
			return 0, err
		}
	}
	agreed, err := AllReduceMin(ctx, ec.Transport, latest)
	if err != nil {
		return 0, err
	}
	if agreed < 0 {
		return 0, nil
	}
	data, err := ec.Checkpoints.Load(algorithm, uint64(agreed))
	if err != nil {
		return 0, err
	}
	if err := decodeState(data, state); err != nil {
		return 0, err
	}
	ec.logf("restore: resuming %s from epoch %d", algorithm, agreed)
	return uint64(agreed), nil
}
