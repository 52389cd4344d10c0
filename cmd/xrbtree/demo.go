package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/lib/tree"
	"github.com/benz9527/xrbtree/xlog"
)

var defaultDemoKeys = []int{10, 20, 30, 15, 12, 25, 28, 27}

type demoConfig struct {
	Keys  []int
	Print bool
}

func newDemoCmd(rootCfg *rootConfig) *cobra.Command {
	cfg := &demoConfig{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "upserts, looks up, iterates and removes a fixed key sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, rootCfg,
				fx.Supply(cfg),
				fx.Provide(newDemoTree),
				fx.Invoke(registerDemo),
			)
		},
	}
	flags := cmd.Flags()
	flags.IntSliceVar(&cfg.Keys, "keys", defaultDemoKeys, "keys to upsert, the value is the key itself")
	flags.BoolVar(&cfg.Print, "print", false, "print the tree after each upsert and remove")
	return cmd
}

func newDemoTree() tree.RBTree[int, int] {
	return tree.NewRBTree[int, int]()
}

func registerDemo(lc fx.Lifecycle, cfg *demoConfig, t tree.RBTree[int, int], out io.Writer, logger xlog.XLogger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return runDemo(cfg, t, out, logger)
		},
		OnStop: func(ctx context.Context) error {
			t.Release()
			return nil
		},
	})
}

func runDemo(cfg *demoConfig, t tree.RBTree[int, int], out io.Writer, logger xlog.XLogger) error {
	keys := lo.Uniq(cfg.Keys)
	for _, key := range cfg.Keys {
		t.Upsert(key, key)
		if cfg.Print {
			_, _ = fmt.Fprintf(out, "upsert %d\n", key)
			t.Print(out)
			_, _ = fmt.Fprintln(out)
		}
	}
	if err := tree.ValidateAll[int, int](t); err != nil {
		return err
	}
	logger.Info("[demo] upserted", zap.Ints("keys", cfg.Keys), zap.Int64("len", t.Len()))

	for _, key := range keys {
		val, ok := t.Load(key)
		if !ok || val != key {
			return infra.NewErrorStack(fmt.Sprintf("[demo] lookup key %d, got (%d, %v)", key, val, ok))
		}
	}

	asc := make([]int, 0, len(keys))
	for it := t.Begin(); !it.IsEnd(); it = it.Next() {
		asc = append(asc, it.Key())
	}
	desc := make([]int, 0, len(keys))
	for it := t.End().Prev(); !it.IsEnd(); it = it.Prev() {
		desc = append(desc, it.Key())
	}
	sorted, reversed := slices.Clone(keys), slices.Clone(desc)
	slices.Sort(sorted)
	slices.Reverse(reversed)
	if !slices.Equal(asc, sorted) || !slices.Equal(asc, reversed) {
		return infra.NewErrorStack(fmt.Sprintf("[demo] iteration mismatch, asc %v, desc %v", asc, desc))
	}
	_, _ = fmt.Fprintf(out, "ascending: %v\n", asc)
	_, _ = fmt.Fprintf(out, "descending: %v\n", desc)

	for _, key := range keys {
		if _, ok := t.Remove(key); !ok {
			return infra.NewErrorStack(fmt.Sprintf("[demo] remove key %d, absent", key))
		}
		if err := tree.ValidateAll[int, int](t); err != nil {
			return infra.WrapErrorStack(err, fmt.Sprintf("[demo] remove key %d", key))
		}
		if cfg.Print {
			_, _ = fmt.Fprintf(out, "remove %d\n", key)
			t.Print(out)
			_, _ = fmt.Fprintln(out)
		}
	}
	if !t.Empty() || !t.Begin().IsEnd() {
		return infra.NewErrorStack(fmt.Sprintf("[demo] not empty after removal, len %d", t.Len()))
	}
	_, _ = fmt.Fprintln(out, "empty: true")
	logger.Info("[demo] done", zap.Int("keys", len(keys)))
	return nil
}
