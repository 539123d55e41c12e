package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/relatio/core"
	"github.com/poiesic/relatio/storage"
)

// EdgeRepository implements storage.EdgeRepository for BadgerDB.
type EdgeRepository struct {
	backend *Backend
}

var _ storage.EdgeRepository = (*EdgeRepository)(nil)

// NewEdgeRepository creates a new EdgeRepository.
func NewEdgeRepository(backend *Backend) *EdgeRepository {
	return &EdgeRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *EdgeRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EdgeRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutEdges stores or replaces edges. The key covers endpoints and kind, so
// recomputing the same pair overwrites in place.
func (r *EdgeRepository) PutEdges(ctx context.Context, edges ...core.RelationshipEdge) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for i := range edges {
			edge := &edges[i]
			if err := core.ValidateEdge(edge); err != nil {
				return err
			}

			value := storage.MarshalEdge(edge)
			if err := tx.Set(makeEdgeKey(edge), value); err != nil {
				return err
			}

			// Incidence index under both endpoints, directed or not, so
			// graph loads and reverse reference walks stay cheap.
			if err := tx.Set(makeEdgeIncidentKey(edge.From, edge), value); err != nil {
				return err
			}
			if err := tx.Set(makeEdgeIncidentKey(edge.To, edge), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEdgesFor retrieves all edges incident to an id.
func (r *EdgeRepository) GetEdgesFor(ctx context.Context, id core.ID) ([]core.RelationshipEdge, error) {
	var results []core.RelationshipEdge
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialEdgeIncidentKey(id)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var edge *core.RelationshipEdge
			err := iter.Item().Value(func(val []byte) error {
				var err error
				edge, err = storage.UnmarshalEdge(val)
				return err
			})
			if err != nil {
				return err
			}
			if edge != nil {
				results = append(results, *edge)
			}
		}
		return nil
	}, false)
	return results, err
}

// AllEdges retrieves every stored edge.
func (r *EdgeRepository) AllEdges(ctx context.Context) ([]core.RelationshipEdge, error) {
	var results []core.RelationshipEdge
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(edgePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var edge *core.RelationshipEdge
			err := iter.Item().Value(func(val []byte) error {
				var err error
				edge, err = storage.UnmarshalEdge(val)
				return err
			})
			if err != nil {
				return err
			}
			if edge != nil {
				results = append(results, *edge)
			}
		}
		return nil
	}, false)
	return results, err
}

// DeleteEdgesFor removes all edges incident to an id, including their
// entries under the opposite endpoint.
func (r *EdgeRepository) DeleteEdgesFor(ctx context.Context, id core.ID) error {
	edges, err := r.GetEdgesFor(ctx, id)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for i := range edges {
			edge := &edges[i]
			if err := tx.Delete(makeEdgeKey(edge)); err != nil {
				return err
			}
			if err := tx.Delete(makeEdgeIncidentKey(edge.From, edge)); err != nil {
				return err
			}
			if err := tx.Delete(makeEdgeIncidentKey(edge.To, edge)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
