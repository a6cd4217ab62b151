// Package service provides the business logic layer for the Shelfmark
// catalog: validation, normalization, persistence, and queueing local writes
// for propagation to the remote.
package service

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"time"

	"github.com/shelfmark/shelfmark/internal/domain"
	"github.com/shelfmark/shelfmark/internal/id"
	"github.com/shelfmark/shelfmark/internal/store"
)

// SyncTrigger requests a background sync cycle. Satisfied by the sync
// manager; nil-safe via noopTrigger for local-only setups and tests.
type SyncTrigger interface {
	Trigger(reason string)
}

type noopTrigger struct{}

func (noopTrigger) Trigger(string) {}

// enqueueMutation records a local write in the durable queue and nudges the
// sync manager. Called after the entity write succeeds - the queue must never
// reference state the store does not hold.
func enqueueMutation(ctx context.Context, s *store.Store, trigger SyncTrigger, kind domain.Kind, entityID string, typ domain.MutationType, record any) error {
	var payload jsontext.Value
	if record != nil {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal mutation payload: %w", err)
		}
		payload = jsontext.Value(data)
	}

	err := s.Enqueue(ctx, &domain.Mutation{
		Timestamp: time.Now(),
		ID:        id.MustGenerate(id.PrefixMutation),
		Entity:    kind,
		EntityID:  entityID,
		Type:      typ,
		Payload:   payload,
	})
	if err != nil {
		return err
	}

	trigger.Trigger("local write")
	return nil
}
