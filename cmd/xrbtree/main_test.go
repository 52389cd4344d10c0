package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/benz9527/xrbtree/lib/tree"
	"github.com/benz9527/xrbtree/xlog"
)

func executeCmd(t *testing.T, args ...string) (string, string, error) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = noColor
	})

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	root := newRootCmd()
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func testLogger(w io.Writer) xlog.XLogger {
	return xlog.NewXLogger(
		xlog.WithXLoggerWriter(w),
		xlog.WithXLoggerLevel(xlog.LogLevelError),
	)
}

func TestDemoCmd(t *testing.T) {
	stdout, stderr, err := executeCmd(t, "demo", "--log-level", "info")
	require.NoError(t, err)
	require.Contains(t, stdout, "ascending: [10 12 15 20 25 27 28 30]\n")
	require.Contains(t, stdout, "descending: [30 28 27 25 20 15 12 10]\n")
	require.Contains(t, stdout, "empty: true\n")
	require.NotContains(t, stdout, "size:")
	require.Contains(t, stderr, "[demo] done")
}

func TestDemoCmd_Print(t *testing.T) {
	stdout, _, err := executeCmd(t, "demo", "--keys", "2,1,3,2", "--print", "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, stdout, "upsert 3\nsize: 3, Valid\n\n    /--(3, 3)\n---(2, 2)\n    \\--(1, 1)\n")
	require.Contains(t, stdout, "ascending: [1 2 3]\n")
	require.Contains(t, stdout, "remove 1\nsize: 1, Valid\n\n---(3, 3)\n")
	require.True(t, strings.HasSuffix(stdout, "empty: true\n"))
}

func TestDemoCmd_BadFlags(t *testing.T) {
	_, _, err := executeCmd(t, "demo", "--log-level", "trace")
	require.Error(t, err)

	_, _, err = executeCmd(t, "demo", "--log-encoder", "yaml")
	require.Error(t, err)

	_, _, err = executeCmd(t, "demo", "extra")
	require.Error(t, err)
}

func TestFuzzCmd(t *testing.T) {
	for _, args := range [][]string{
		{"fuzz", "--ops", "3000", "--seed", "7", "--key-range", "64", "--log-level", "error"},
		{"fuzz", "--ops", "3000", "--seed", "7", "--key-range", "64", "--succ", "--log-level", "error"},
		{"fuzz", "--ops", "500", "--seed", "11", "--key-range", "8", "--log-encoder", "json", "--log-level", "error"},
	} {
		t.Run(strings.Join(args, " "), func(tt *testing.T) {
			stdout, _, err := executeCmd(tt, args...)
			require.NoError(tt, err)
			require.Contains(tt, stdout, "fuzz: ops")
			require.Contains(tt, stdout, "seed "+args[4]+", ok\n")
		})
	}
}

func TestFuzzCmd_StdoutStats(t *testing.T) {
	stdout, _, err := executeCmd(t, "fuzz", "--ops", "200", "--seed", "3", "--stats", "stdout", "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, stdout, "fuzz: ops 200")
	require.Contains(t, stdout, "rbtree.rotation.count")
	require.Contains(t, stdout, "app.core.goroutines")
}

func TestFuzzCmd_PrometheusStats(t *testing.T) {
	stdout, stderr, err := executeCmd(t,
		"fuzz", "--ops", "200", "--seed", "5",
		"--stats", "prometheus", "--metrics-addr", "127.0.0.1:0",
		"--log-level", "info",
	)
	require.NoError(t, err)
	require.Contains(t, stdout, "fuzz: ops 200")
	require.Contains(t, stderr, "[fuzz] serving metrics")
}

func TestFuzzCmd_BadFlags(t *testing.T) {
	_, _, err := executeCmd(t, "fuzz", "--stats", "jaeger")
	require.Error(t, err)

	_, _, err = executeCmd(t, "fuzz", "--key-range", "0")
	require.Error(t, err)

	_, _, err = executeCmd(t, "fuzz", "--metrics-addr", "not-an-addr", "--stats", "prometheus", "--ops", "1")
	require.Error(t, err)
}

func TestRunFuzz_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runFuzz(ctx, &fuzzConfig{Ops: 10, Seed: 1, KeyRange: 4}, tree.NewRBTree[int, int](), io.Discard, testLogger(io.Discard))
	require.Error(t, err)
	require.Contains(t, err.Error(), "interrupted")
}

func TestCompareShadow(t *testing.T) {
	rbtree := tree.NewRBTree[int, int]()
	for i := 0; i < 8; i++ {
		rbtree.Upsert(i, i*i)
	}
	shadow := map[int]int{}
	for i := 0; i < 8; i++ {
		shadow[i] = i * i
	}
	require.NoError(t, compareShadow(rbtree, shadow))

	shadow[3] = 0
	require.Error(t, compareShadow(rbtree, shadow))

	delete(shadow, 3)
	require.Error(t, compareShadow(rbtree, shadow))

	shadow[3], shadow[100] = 9, 100
	require.Error(t, compareShadow(rbtree, shadow))
}

func TestRunDemo_Empty(t *testing.T) {
	out := &bytes.Buffer{}
	err := runDemo(&demoConfig{}, tree.NewRBTree[int, int](), out, testLogger(io.Discard))
	require.NoError(t, err)
	require.Equal(t, "ascending: []\ndescending: []\nempty: true\n", out.String())
}
