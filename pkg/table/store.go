package table

import (
	"bytes"
	"encoding/gob"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/sweep"
)

// Persisted layout: one bbolt bucket per model name holding a gob-encoded
// metadata record, one gob-encoded []float64 per raw quantity, and the
// validity mask. A stored table reloads without re-running the oracle.

const validKey = "valid"
const metaKey = "meta"

type tableMeta struct {
	Description string
	Polarity    sweep.Polarity
	Width       float64
	Length      sweep.Axis
	Vbs         sweep.Axis
	Vgs         sweep.Axis
	Vds         sweep.Axis
}

// Save writes the given tables into a bbolt database file, replacing any
// previous table stored under the same model name.
func Save(path string, tables ...*Table) error {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return fmt.Errorf("opening table store %s: %w", path, err)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		for _, t := range tables {
			if err := tx.DeleteBucket([]byte(t.Model)); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
			b, err := tx.CreateBucket([]byte(t.Model))
			if err != nil {
				return fmt.Errorf("bucket %s: %w", t.Model, err)
			}

			meta := tableMeta{
				Description: t.Description,
				Polarity:    t.Polarity,
				Width:       t.Width,
				Length:      t.Length,
				Vbs:         t.Vbs,
				Vgs:         t.Vgs,
				Vds:         t.Vds,
			}
			if err := putGob(b, metaKey, meta); err != nil {
				return err
			}
			for _, q := range Quantities {
				if err := putGob(b, q, t.Data[q]); err != nil {
					return err
				}
			}
			if err := putGob(b, validKey, t.Valid); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load reads one model's table back from a bbolt database file.
func Load(path, model string) (*Table, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("opening table store %s: %w", path, err)
	}
	defer db.Close()

	t := &Table{Model: model, Data: make(map[string][]float64, len(Quantities))}
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(model))
		if b == nil {
			return fmt.Errorf("model %q not found in %s", model, path)
		}

		var meta tableMeta
		if err := getGob(b, metaKey, &meta); err != nil {
			return err
		}
		t.Description = meta.Description
		t.Polarity = meta.Polarity
		t.Width = meta.Width
		t.Length = meta.Length
		t.Vbs = meta.Vbs
		t.Vgs = meta.Vgs
		t.Vds = meta.Vds

		for _, q := range Quantities {
			var arr []float64
			if err := getGob(b, q, &arr); err != nil {
				return err
			}
			if len(arr) != t.NumPoints() {
				return fmt.Errorf("model %q: quantity %s has %d samples, grid has %d",
					model, q, len(arr), t.NumPoints())
			}
			t.Data[q] = arr
		}
		return getGob(b, validKey, &t.Valid)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Models lists the model names stored in a table database.
func Models(path string) ([]string, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("opening table store %s: %w", path, err)
	}
	defer db.Close()

	var names []string
	err = db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func putGob(b *bolt.Bucket, key string, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return b.Put([]byte(key), buf.Bytes())
}

func getGob(b *bolt.Bucket, key string, v any) error {
	raw := b.Get([]byte(key))
	if raw == nil {
		return fmt.Errorf("missing key %s", key)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}
