package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/selenai/internal/tools"
)

func TestDecide(t *testing.T) {
	manual := tools.NewInvocation("1", "", tools.Manual())
	model := tools.NewInvocation("1", "", tools.ModelIssued("call_1"))

	tests := []struct {
		name   string
		inv    *tools.Invocation
		writes bool
		want   Route
	}{
		{"manual read-only", manual, false, RouteExecute},
		{"manual writes", manual, true, RouteExecute},
		{"model read-only", model, false, RouteExecute},
		{"model writes", model, true, RouteQueue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.inv, tt.writes))
		})
	}
}

func TestQueueIsFIFO(t *testing.T) {
	q := NewQueue()
	first := q.Push(tools.NewInvocation("a", "", tools.ModelIssued("c1")), "")
	second := q.Push(tools.NewInvocation("b", "", tools.ModelIssued("c2")), "")
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, "#1", first.Handle())
	assert.Equal(t, "#2", second.Handle())

	e, err := q.Take("")
	require.NoError(t, err)
	assert.Same(t, first, e)

	e, err = q.Take("")
	require.NoError(t, err)
	assert.Same(t, second, e)

	_, err = q.Take("")
	assert.Equal(t, tools.KindNotFound, tools.KindOf(err))
}

func TestQueueTakeByID(t *testing.T) {
	q := NewQueue()
	a := q.Push(tools.NewInvocation("a", "", tools.ModelIssued("call_a")), "")
	b := q.Push(tools.NewInvocation("b", "", tools.ModelIssued("call_b")), "")
	c := q.Push(tools.NewInvocation("c", "", tools.ModelIssued("call_c")), "")

	e, err := q.Take("#2")
	require.NoError(t, err)
	assert.Same(t, b, e)

	e, err = q.Take(c.Invocation.ID)
	require.NoError(t, err)
	assert.Same(t, c, e)

	e, err = q.Take("call_a")
	require.NoError(t, err)
	assert.Same(t, a, e)

	assert.Equal(t, 0, q.Len())
}

func TestQueueTakeUnknownID(t *testing.T) {
	q := NewQueue()
	q.Push(tools.NewInvocation("a", "", tools.ModelIssued("c1")), "")

	for _, id := range []string{"7", "#7", "nope"} {
		_, err := q.Take(id)
		assert.Equal(t, tools.KindNotFound, tools.KindOf(err), id)
	}
	assert.Equal(t, 1, q.Len())
}

func TestQueueSequenceNumbersAreNotReused(t *testing.T) {
	q := NewQueue()
	q.Push(tools.NewInvocation("a", "", tools.ModelIssued("c1")), "")
	_, err := q.Take("")
	require.NoError(t, err)

	e := q.Push(tools.NewInvocation("b", "", tools.ModelIssued("c2")), "preview")
	assert.Equal(t, 2, e.Seq)
	assert.Equal(t, "preview", q.List()[0].Preview)

	drained := q.Drain()
	assert.Len(t, drained, 1)
	assert.Equal(t, 0, q.Len())
}
