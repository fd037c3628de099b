package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "search", "trace-1")
	_, resolve := StartChildSpan(ctx, "resolve")
	resolve.SetAttr("candidates", 2)
	resolve.End()
	_, rerank := StartChildSpan(ctx, "rerank")
	rerank.End()
	root.End()

	require.Len(t, root.Children, 2)
	assert.Equal(t, "trace-1", root.Children[0].TraceID)
	assert.Same(t, root, SpanFromContext(ctx))

	var buf bytes.Buffer
	root.LogTo(slog.New(slog.NewTextHandler(&buf, nil)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "span=search")
	assert.Contains(t, lines[1], "span=resolve")
	assert.Contains(t, lines[1], "candidates=2")
	assert.Contains(t, lines[2], "depth=1")
}

func TestChildWithoutParent(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Nil(t, SpanFromContext(context.Background()))
}
