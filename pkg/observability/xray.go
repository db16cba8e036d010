package observability

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// SegmentTracer wraps X-Ray for the Lambda entrypoints
type SegmentTracer struct {
	serviceName string
}

// NewSegmentTracer creates a new X-Ray tracer
func NewSegmentTracer(serviceName string) *SegmentTracer {
	return &SegmentTracer{serviceName: serviceName}
}

// StartSubsegment starts a subsegment named <service>.<name> within the
// segment Lambda created for the invocation
func (t *SegmentTracer) StartSubsegment(ctx context.Context, name string) (context.Context, *xray.Segment) {
	return xray.BeginSubsegment(ctx, fmt.Sprintf("%s.%s", t.serviceName, name))
}

// Trace runs fn inside a subsegment and records its error. Outside Lambda,
// where there is no parent segment, fn runs untraced.
func (t *SegmentTracer) Trace(ctx context.Context, name string, fn func(context.Context) error) error {
	if xray.GetSegment(ctx) == nil {
		return fn(ctx)
	}
	ctx, seg := t.StartSubsegment(ctx, name)
	err := fn(ctx)
	seg.Close(err)
	return err
}

// Annotate adds an indexed annotation to the current segment
func (t *SegmentTracer) Annotate(ctx context.Context, key, value string) {
	if seg := xray.GetSegment(ctx); seg != nil {
		_ = seg.AddAnnotation(key, value)
	}
}
