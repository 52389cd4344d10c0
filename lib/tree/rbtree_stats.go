package tree

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	RBTreeStatsName = "xrbtree/rbtree"
)

var (
	rotateLeftAttrs   = metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.rotate.dir", "left")))
	rotateRightAttrs  = metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.rotate.dir", "right")))
	upsertInsertAttrs = metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.upsert.op", "insert")))
	upsertUpdateAttrs = metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.upsert.op", "update")))
)

// rbTreeStats methods are nil receiver safe, a nil stats records nothing.
type rbTreeStats struct {
	nodeCount     metric.Int64UpDownCounter
	upsertCount   metric.Int64Counter
	removeCount   metric.Int64Counter
	rotationCount metric.Int64Counter
}

func (stats *rbTreeStats) RecordNodeCount(delta int64) {
	if stats == nil || delta == 0 {
		return
	}
	stats.nodeCount.Add(context.Background(), delta)
}

func (stats *rbTreeStats) IncreaseUpsertCount(inserted bool) {
	if stats == nil {
		return
	}
	if inserted {
		stats.upsertCount.Add(context.Background(), 1, upsertInsertAttrs)
		return
	}
	stats.upsertCount.Add(context.Background(), 1, upsertUpdateAttrs)
}

func (stats *rbTreeStats) IncreaseRemoveCount() {
	if stats == nil {
		return
	}
	stats.removeCount.Add(context.Background(), 1)
}

func (stats *rbTreeStats) IncreaseRotationCount(dir RBDirection) {
	if stats == nil {
		return
	}
	if dir == Left {
		stats.rotationCount.Add(context.Background(), 1, rotateLeftAttrs)
		return
	}
	stats.rotationCount.Add(context.Background(), 1, rotateRightAttrs)
}

// WithRBTreeStats records the tree operations by the otel meter named
// RBTreeStatsName/name. The global meter provider is used if provider
// is absent.
func WithRBTreeStats[K any, V any](name string, provider ...metric.MeterProvider) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		var mp metric.MeterProvider
		if len(provider) > 0 && provider[0] != nil {
			mp = provider[0]
		} else {
			mp = otel.GetMeterProvider()
		}
		tree.stats = newRBTreeStats(mp, name)
	}
}

func newRBTreeStats(mp metric.MeterProvider, name string) *rbTreeStats {
	builder := &strings.Builder{}
	builder.WriteString(RBTreeStatsName)
	builder.WriteString("/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	meter := mp.Meter(builder.String())
	return &rbTreeStats{
		nodeCount: lo.Must[metric.Int64UpDownCounter](meter.
			Int64UpDownCounter(
				"rbtree.node.count",
				metric.WithDescription("The number of live nodes in the rbtree."),
			),
		),
		upsertCount: lo.Must[metric.Int64Counter](meter.
			Int64Counter(
				"rbtree.upsert.count",
				metric.WithDescription("The number of upserts, split by insert and update."),
			),
		),
		removeCount: lo.Must[metric.Int64Counter](meter.
			Int64Counter(
				"rbtree.remove.count",
				metric.WithDescription("The number of removed nodes."),
			),
		),
		rotationCount: lo.Must[metric.Int64Counter](meter.
			Int64Counter(
				"rbtree.rotation.count",
				metric.WithDescription("The number of rotations, split by direction."),
			),
		),
	}
}
