package autoevents

import (
	"github.com/pulsehq/pulse-go/internal/types"
)

// setupFirstVisit records the one-time first visit of a client
// identity. The persisted record remembers which client it was last
// associated with: a changed client uuid (cookie cleared and
// regenerated) re-fires the event, while re-initializations of the
// same client stay silent. Records written before the client_uuid
// field existed are migrated in place without firing.
func setupFirstVisit(ctx *Context) (Teardown, error) {
	client := ctx.Analytics.ClientUUID()
	if client == "" || !ctx.Caps.Storage {
		return nil, nil
	}

	rec, exists := ctx.Identity.FirstVisit()

	switch {
	case !exists:
		// Absent record only counts as a first visit when the client
		// identity itself was created just now. An older client
		// without a record predates this storage key; fabricating a
		// first visit for it would be wrong.
		if !ctx.ClientCreated {
			return nil, nil
		}
		recordedAt := types.ISOTime(ctx.Clock.Now())
		return nil, trackFirstVisit(ctx, recordedAt, client)

	case rec.ClientUUID == nil:
		// Legacy record: the visit was already recorded, owner
		// unknown. Attach the current client without firing.
		rec.ClientUUID = &client
		if err := ctx.Identity.WriteFirstVisit(rec); err != nil {
			ctx.Log.Debug("first-visit migration failed", "error", err)
		}
		return nil, nil

	case *rec.ClientUUID == client:
		return nil, nil

	default:
		// Record belongs to a different client identity: a genuinely
		// new first visit for the current one.
		recordedAt := types.ISOTime(ctx.Clock.Now())
		return nil, trackFirstVisit(ctx, recordedAt, client)
	}
}

func trackFirstVisit(ctx *Context, recordedAt, client string) error {
	if err := ctx.Identity.WriteFirstVisit(types.FirstVisitRecord{
		FirstVisitAt: recordedAt,
		ClientUUID:   &client,
	}); err != nil {
		// Storage write failed: degrade to a no-op rather than
		// emitting an event the next load would emit again.
		ctx.Log.Debug("first-visit record write failed", "error", err)
		return nil
	}

	payload := map[string]any{"first_visit_at": recordedAt}
	if device := ctx.Analytics.Device(); device != nil {
		payload["device"] = device
	}
	ctx.Analytics.Track(types.EventTypeAuto, types.EventFirstVisit, payload)
	return nil
}
