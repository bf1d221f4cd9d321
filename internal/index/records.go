package index

import (
	"context"

	"github.com/jdefrancesco/imgDitto/internal/dfs"
)

// addBatch keeps write transactions short on large trees.
const addBatch = 500

// FromDfile converts a hashed file into an index record.
func FromDfile(d *dfs.Dfile) Record {
	return Record{
		Path: d.FileName(),
		Hash: d.HashString(),
		Size: d.FileSize(),
	}
}

// AddFiles indexes files in batches.
func (s *Store) AddFiles(ctx context.Context, files []*dfs.Dfile) error {
	batch := make([]Record, 0, min(len(files), addBatch))
	for _, f := range files {
		batch = append(batch, FromDfile(f))
		if len(batch) == addBatch {
			if err := s.Add(ctx, batch...); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	return s.Add(ctx, batch...)
}
