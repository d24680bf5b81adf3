package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/llopes04/fieldsync/internal/records"
	"go.uber.org/zap"
)

// ErrRecordNotFound is returned when the target identifier is absent
// from the local collection.
var ErrRecordNotFound = errors.New("record not found in the local store")

// The deletion protocol: tagged records are deleted remotely first, and
// the local copy is removed only when the remote delete succeeded (or
// the record was never linked). On remote failure the local record is
// kept and the error surfaced, so the two stores never silently
// diverge. The policy is applied uniformly across entity types.

// DeleteClient removes a client by local or tagged identifier.
func (e *Engine) DeleteClient(ctx context.Context, id string) error {
	return deleteRecord(ctx, e, e.clients, e.remoteClients, id,
		func(c records.Client) string { return c.ID })
}

// DeleteOrder removes a service order by local or tagged identifier.
func (e *Engine) DeleteOrder(ctx context.Context, id string) error {
	return deleteRecord(ctx, e, e.orders, e.remoteOrders, id,
		func(o records.ServiceOrder) string { return o.ID })
}

// DeleteRTI removes an internal technical report by local or tagged
// identifier.
func (e *Engine) DeleteRTI(ctx context.Context, id string) error {
	if e.rtis == nil || e.remoteRTIs == nil {
		return fmt.Errorf("%s: rti collections not configured", opDelete)
	}
	return deleteRecord(ctx, e, e.rtis, e.remoteRTIs, id,
		func(r records.RTI) string { return r.ID })
}

func deleteRecord[T any](
	ctx context.Context,
	e *Engine,
	local LocalCollection[T],
	remoteCollection RemoteCollection,
	id string,
	recordID func(T) string,
) error {
	if remoteID, tagged := records.RemoteID(id); tagged {
		if err := remoteCollection.Delete(ctx, remoteID); err != nil {
			e.logger.Error("remote delete failed, keeping local record",
				zap.String("operation", opDelete),
				zap.String("record_id", id),
				zap.Error(err))
			return err
		}
	}

	list, err := local.Load(ctx)
	if err != nil {
		return err
	}

	kept := make([]T, 0, len(list))
	removed := false
	for _, record := range list {
		if recordID(record) == id {
			removed = true
			continue
		}
		kept = append(kept, record)
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	if err := local.Save(ctx, kept); err != nil {
		return err
	}
	e.logger.Info("record deleted",
		zap.String("operation", opDelete),
		zap.String("record_id", id),
		zap.Bool("was_tagged", records.IsTagged(id)))
	return nil
}
