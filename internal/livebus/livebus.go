// Package livebus optionally publishes per-step and final signal records to
// NATS subjects so downstream dashboards can subscribe in real time
// (spec.md §4.12). The dashboard itself is out of scope (spec.md §1); only
// the publish side lives here, adapted from the teacher's
// pkg/natsutil.Publish generic helper.
package livebus

import (
	"context"
	"fmt"

	"github.com/AcidicSwords/AxiomicAgent/pkg/natsutil"
	"github.com/nats-io/nats.go"
)

// Bus publishes step and finish records for one course to NATS. A nil
// *nats.Conn makes every Bus method a no-op, so callers can wire an
// unconfigured Bus unconditionally.
type Bus struct {
	conn *nats.Conn
}

// New wraps an already-connected *nats.Conn. Passing nil yields a Bus whose
// methods are all no-ops.
func New(conn *nats.Conn) *Bus {
	return &Bus{conn: conn}
}

// PublishStep publishes one step's record to axiom.course.<courseID>.step.
func (b *Bus) PublishStep(ctx context.Context, courseID string, record any) error {
	if b == nil || b.conn == nil {
		return nil
	}
	subject := fmt.Sprintf("axiom.course.%s.step", courseID)
	if err := natsutil.Publish(ctx, b.conn, subject, record); err != nil {
		return fmt.Errorf("livebus: publish step for %s: %w", courseID, err)
	}
	return nil
}

// PublishFinish publishes a course's final report summary to
// axiom.course.<courseID>.finish.
func (b *Bus) PublishFinish(ctx context.Context, courseID string, summary any) error {
	if b == nil || b.conn == nil {
		return nil
	}
	subject := fmt.Sprintf("axiom.course.%s.finish", courseID)
	if err := natsutil.Publish(ctx, b.conn, subject, summary); err != nil {
		return fmt.Errorf("livebus: publish finish for %s: %w", courseID, err)
	}
	return nil
}
