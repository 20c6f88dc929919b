package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/orbit-cloud/orbit-backend/internal/safego"
)

// Audited actions. Names are "resource.event" so a SIEM can group by prefix.
const (
	ActionLogin         = "auth.login"
	ActionLoginFailed   = "auth.login_failed"
	ActionUserCreated   = "user.created"
	ActionUserDeleted   = "user.deleted"
	ActionOrgDeleted    = "organization.deleted"
	ActionMemberAdded   = "organization.member_added"
	ActionMemberRemoved = "organization.member_removed"
)

// Recorder is the handler-facing entry point for audit emission. It stamps
// records and ships them in the background so request latency never depends on
// audit destinations. A nil Recorder is valid and drops all records, which is
// how the API runs when auditing is disabled.
type Recorder struct {
	shipper Shipper
}

// NewRecorder wraps a shipper in a Recorder
func NewRecorder(shipper Shipper) *Recorder {
	return &Recorder{shipper: shipper}
}

// Record stamps the entry and ships it asynchronously. Delivery failures are
// logged by the shippers; they never surface to the request path.
func (r *Recorder) Record(entry *LogEntry) {
	if r == nil || r.shipper == nil {
		return
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	safego.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := r.shipper.Ship(ctx, entry); err != nil {
			slog.Warn("audit record not delivered", "action", entry.Action, "error", err)
		}
	})
}

// Close flushes and closes the underlying shipper
func (r *Recorder) Close() error {
	if r == nil || r.shipper == nil {
		return nil
	}
	return r.shipper.Close()
}
