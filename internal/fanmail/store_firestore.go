package fanmail

import (
	"context"

	pfirestore "finitefield.org/fansite/internal/platform/firestore"
)

// FirestoreStore writes one document per message, keyed by message id.
type FirestoreStore struct {
	coll *pfirestore.Collection[FanMessage]
}

// NewFirestoreStore binds the named collection.
func NewFirestoreStore(provider *pfirestore.Provider, collection string) *FirestoreStore {
	return &FirestoreStore{coll: pfirestore.NewCollection[FanMessage](provider, collection, nil)}
}

func (s *FirestoreStore) Add(ctx context.Context, msg FanMessage) error {
	_, err := s.coll.Create(ctx, msg.ID, msg)
	return err
}
