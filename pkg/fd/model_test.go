package fd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// tag is posted for bookkeeping only and has no filtering.
type tag struct{ vars []*FDVariable }

func (c tag) Variables() []*FDVariable { return c.vars }
func (c tag) Type() string             { return "Tag" }
func (c tag) String() string           { return "tag" }

func TestModelBuilding(t *testing.T) {
	m := NewModel()
	x := m.NewVariable(NewBitSetDomain(3))
	ys := m.NewVariablesWithPrefix(2, NewBitSetDomain(4), "y")
	c := m.NewCell(5)

	require.Equal(t, 0, x.ID())
	require.Equal(t, "y_1", ys[1].Name())
	require.Equal(t, 3, m.VariableCount())
	require.Same(t, ys[0], m.GetVariable(1))
	require.Nil(t, m.GetVariable(3))
	require.Nil(t, m.GetVariable(-1))
	require.Equal(t, 1, m.CellCount())
	require.Equal(t, 5, c.Initial())
	require.Equal(t, DefaultSolverConfig(), m.Config())
	require.Nil(t, m.Strategy())
	require.NoError(t, m.Validate())
}

func TestModelValidate(t *testing.T) {
	other := NewModel()
	foreign := other.NewVariable(NewBitSetDomain(2))

	tests := []struct {
		name  string
		build func(m *Model)
	}{
		{"empty domain", func(m *Model) { m.NewVariable(NewBitSetDomain(0)) }},
		{"foreign variable", func(m *Model) {
			x := m.NewVariable(NewBitSetDomain(2))
			m.AddConstraint(forbidEqual{x, foreign})
		}},
		{"nil variable", func(m *Model) {
			x := m.NewVariable(NewBitSetDomain(2))
			m.AddConstraint(forbidEqual{x, nil})
		}},
		{"no filtering", func(m *Model) {
			x := m.NewVariable(NewBitSetDomain(2))
			m.AddConstraint(tag{[]*FDVariable{x}})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel()
			tt.build(m)
			require.ErrorIs(t, m.Validate(), ErrInvalidConfiguration)
		})
	}
}
