package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	randv2 "math/rand/v2"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/lib/tree"
	"github.com/benz9527/xrbtree/observability"
	"github.com/benz9527/xrbtree/xlog"
)

type fuzzConfig struct {
	Ops         int
	Seed        uint64
	KeyRange    int
	Succ        bool
	Stats       string
	MetricsAddr string
}

func newFuzzCmd(rootCfg *rootConfig) *cobra.Command {
	cfg := &fuzzConfig{}
	cmd := &cobra.Command{
		Use:   "fuzz",
		Short: "runs random upserts and removes validated against a shadow map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Ops < 0 || cfg.KeyRange <= 0 {
				return infra.NewErrorStack(fmt.Sprintf("[fuzz] invalid ops %d or key range %d", cfg.Ops, cfg.KeyRange))
			}
			if _, err := observability.ParseExporterType(cfg.Stats); err != nil {
				return err
			}
			if cfg.Seed == 0 {
				cfg.Seed = uint64(time.Now().UnixNano())
			}
			return runApp(cmd, rootCfg,
				fx.Supply(cfg),
				fx.Provide(
					newFuzzExporter,
					newFuzzTree,
				),
				fx.Invoke(
					registerMetricsServer,
					registerFuzz,
				),
			)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&cfg.Ops, "ops", 10000, "number of random operations")
	flags.Uint64Var(&cfg.Seed, "seed", 0, "random seed, 0 picks one from the clock")
	flags.IntVar(&cfg.KeyRange, "key-range", 1024, "keys are drawn from [0, key-range)")
	flags.BoolVar(&cfg.Succ, "succ", false, "borrow the succ instead of the pred on removal")
	flags.StringVar(&cfg.Stats, "stats", string(observability.NoneExporter), "stats exporter, stdout|prometheus|none")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "serve the prometheus /metrics on the address while fuzzing")
	return cmd
}

func newFuzzExporter(lc fx.Lifecycle, cfg *fuzzConfig, out io.Writer) (*observability.MetricsExporter, error) {
	typ, err := observability.ParseExporterType(cfg.Stats)
	if err != nil {
		return nil, err
	}
	exp, err := observability.NewMetricsExporter(typ, observability.WithExporterWriter(out))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	if typ != observability.NoneExporter {
		if err = observability.InitAppStats(ctx, "fuzz", exp.Provider); err != nil {
			cancel()
			return nil, err
		}
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Flushes before the app stats stop observing.
			defer cancel()
			return exp.Shutdown(ctx)
		},
	})
	return exp, nil
}

func newFuzzTree(cfg *fuzzConfig, exp *observability.MetricsExporter) tree.RBTree[int, int] {
	opts := []tree.RBTreeOpt[int, int]{
		tree.WithRBTreeStats[int, int]("fuzz", exp.Provider),
	}
	if cfg.Succ {
		opts = append(opts, tree.WithRBTreeRemoveBorrowSucc[int, int]())
	}
	return tree.NewRBTree[int, int](opts...)
}

func registerMetricsServer(lc fx.Lifecycle, cfg *fuzzConfig, exp *observability.MetricsExporter, logger xlog.XLogger) {
	if len(cfg.MetricsAddr) == 0 || exp.Handler == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", exp.Handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.MetricsAddr)
			if err != nil {
				return infra.WrapErrorStack(err, "[fuzz] listen metrics address")
			}
			logger.Info("[fuzz] serving metrics", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error(err, "[fuzz] metrics server stopped")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func registerFuzz(lc fx.Lifecycle, cfg *fuzzConfig, t tree.RBTree[int, int], out io.Writer, logger xlog.XLogger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return runFuzz(ctx, cfg, t, out, logger)
		},
		OnStop: func(ctx context.Context) error {
			t.Release()
			return nil
		},
	})
}

type fuzzReport struct {
	upserts, inserts, removes, removeMins int
}

func runFuzz(ctx context.Context, cfg *fuzzConfig, t tree.RBTree[int, int], out io.Writer, logger xlog.XLogger) error {
	logger.Info("[fuzz] start",
		zap.Int("ops", cfg.Ops),
		zap.Uint64("seed", cfg.Seed),
		zap.Int("keyRange", cfg.KeyRange),
		zap.Bool("succ", cfg.Succ),
	)
	rng := randv2.New(randv2.NewPCG(cfg.Seed, cfg.Seed>>1|1))
	shadow := make(map[int]int, cfg.KeyRange)
	report := fuzzReport{}

	for i := 0; i < cfg.Ops; i++ {
		if i&0x3ff == 0 {
			if err := ctx.Err(); err != nil {
				return infra.WrapErrorStack(err, "[fuzz] interrupted")
			}
		}

		key, val := rng.IntN(cfg.KeyRange), rng.Int()
		var err error
		switch op := rng.IntN(8); {
		case op < 4:
			report.upserts++
			t.Upsert(key, val)
			shadow[key] = val
		case op < 5:
			report.inserts++
			_, present := shadow[key]
			err = t.Insert(key, val, true)
			if present != errors.Is(err, tree.ErrRBTreeKeyExists) {
				err = infra.NewErrorStack(fmt.Sprintf("[fuzz] insert key %d, present %v, got %v", key, present, err))
			} else {
				err = nil
				if !present {
					shadow[key] = val
				}
			}
		case op < 7:
			report.removes++
			expected, present := shadow[key]
			got, ok := t.Remove(key)
			if ok != present || got != expected {
				err = infra.NewErrorStack(fmt.Sprintf(
					"[fuzz] remove key %d, expected (%d, %v), got (%d, %v)", key, expected, present, got, ok,
				))
			}
			delete(shadow, key)
		default:
			report.removeMins++
			_key, _val, ok := t.RemoveMin()
			if ok != (len(shadow) > 0) {
				err = infra.NewErrorStack(fmt.Sprintf("[fuzz] remove min on %d keys, got %v", len(shadow), ok))
			} else if ok {
				minKey := lo.Min(lo.Keys(shadow))
				if _key != minKey || _val != shadow[minKey] {
					err = infra.NewErrorStack(fmt.Sprintf("[fuzz] remove min, expected %d, got %d", minKey, _key))
				}
				delete(shadow, minKey)
			}
		}
		if err == nil {
			err = tree.ValidateAll[int, int](t)
		}
		if err == nil && t.Len() != int64(len(shadow)) {
			err = infra.NewErrorStack(fmt.Sprintf("[fuzz] len %d, expected %d", t.Len(), len(shadow)))
		}
		if err != nil {
			err = infra.WrapErrorStack(err, fmt.Sprintf("[fuzz] op %d, seed %d", i, cfg.Seed))
			logger.ErrorStack(err, "[fuzz] violation")
			return err
		}
	}

	if err := compareShadow(t, shadow); err != nil {
		return infra.WrapErrorStack(err, fmt.Sprintf("[fuzz] seed %d", cfg.Seed))
	}
	_, _ = fmt.Fprintf(out, "fuzz: ops %d, upserts %d, inserts %d, removes %d, removeMins %d, len %d, seed %d, ok\n",
		cfg.Ops, report.upserts, report.inserts, report.removes, report.removeMins, t.Len(), cfg.Seed,
	)
	logger.Info("[fuzz] done", zap.Int64("len", t.Len()))
	return nil
}

// compareShadow checks the tree holds exactly the shadow pairs in
// ascending key order.
func compareShadow(t tree.RBTree[int, int], shadow map[int]int) error {
	keys := lo.Keys(shadow)
	slices.Sort(keys)
	idx := 0
	var err error
	t.Foreach(func(i int64, color tree.RBColor, key, val int) bool {
		if idx >= len(keys) || keys[idx] != key || shadow[key] != val {
			err = infra.NewErrorStack(fmt.Sprintf("[fuzz] shadow mismatch at index %d, key %d", i, key))
			return false
		}
		idx++
		return true
	})
	if err == nil && idx != len(keys) {
		err = infra.NewErrorStack(fmt.Sprintf("[fuzz] shadow has %d keys, tree has %d", len(keys), idx))
	}
	return err
}
