package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/llopes04/fieldsync/internal/offline"
	"github.com/llopes04/fieldsync/internal/records"
	"github.com/llopes04/fieldsync/internal/remote"
	"go.uber.org/zap"
)

// ReplayOffline drains the offline action log against the remote store.
// Replay shares the in-flight guard with the reconciliation passes: the
// two must never run concurrently against the same collections. The
// queue is cleared only after every action replayed; a mid-queue
// failure keeps the full queue for the next attempt, so replay relies
// on remote creates being deduplicated by the next upload pass rather
// than on partial queue consumption.
func (e *Engine) ReplayOffline(ctx context.Context) Result {
	if e.offline == nil {
		return Result{Success: false, Message: "offline action log is not configured"}
	}
	if !e.begin(opReplay) {
		return Result{Success: false, Message: errPassInFlight.Error()}
	}
	defer e.end()

	actions, err := e.offline.Drain(ctx)
	if err != nil {
		return e.fail(opReplay, "drain_queue", err)
	}
	if len(actions) == 0 {
		return Result{Success: true, Message: "No offline actions to replay."}
	}

	replayed := 0
	for _, action := range actions {
		if err := e.replayAction(ctx, action); err != nil {
			e.logger.Error("offline replay stopped",
				zap.String("operation", opReplay),
				zap.Uint("sequence", action.Sequence),
				zap.String("type", string(action.Type)),
				zap.Error(err))
			return Result{
				Success: false,
				Message: fmt.Sprintf("Replayed %d of %d offline actions before failing: %v", replayed, len(actions), err),
			}
		}
		replayed++
	}

	if err := e.offline.Clear(ctx); err != nil {
		return e.fail(opReplay, "clear_queue", err)
	}
	e.logger.Info("offline replay finished",
		zap.String("operation", opReplay),
		zap.Int("actions", replayed))
	return Result{Success: true, Message: fmt.Sprintf("Replayed %d offline actions.", replayed)}
}

func (e *Engine) replayAction(ctx context.Context, action offline.Action) error {
	collection, err := e.remoteFor(action.EntityKind)
	if err != nil {
		return err
	}

	switch action.Type {
	case offline.ActionCreate:
		fields, err := decodeActionPayload(action)
		if err != nil {
			return err
		}
		_, err = collection.Create(ctx, fields)
		return err
	case offline.ActionUpdate:
		remoteID, tagged := records.RemoteID(action.TargetID)
		if !tagged {
			// Never linked: an update to a local-only record is
			// equivalent to creating it remotely.
			fields, err := decodeActionPayload(action)
			if err != nil {
				return err
			}
			_, err = collection.Create(ctx, fields)
			return err
		}
		fields, err := decodeActionPayload(action)
		if err != nil {
			return err
		}
		return collection.Update(ctx, remoteID, fields)
	case offline.ActionDelete:
		remoteID, tagged := records.RemoteID(action.TargetID)
		if !tagged {
			return nil
		}
		err := collection.Delete(ctx, remoteID)
		if errors.Is(err, remote.ErrNotFound) {
			// Already gone remotely; the intent is satisfied.
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown offline action type %q", action.Type)
	}
}

func (e *Engine) remoteFor(kind records.Kind) (RemoteCollection, error) {
	switch kind {
	case records.KindClient:
		return e.remoteClients, nil
	case records.KindServiceOrder:
		return e.remoteOrders, nil
	case records.KindUser:
		return e.remoteUsers, nil
	case records.KindRTI:
		if e.remoteRTIs == nil {
			return nil, fmt.Errorf("rti collection not configured")
		}
		return e.remoteRTIs, nil
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
}

func decodeActionPayload(action offline.Action) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(action.PayloadJSON), &fields); err != nil {
		return nil, fmt.Errorf("decode action %d payload: %w", action.Sequence, err)
	}
	delete(fields, "id")
	return fields, nil
}
