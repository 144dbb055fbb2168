package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFormula(masterID uuid.UUID, version int, active bool) Formula {
	return Formula{
		BaseEntity:      shared.NewBaseEntity(),
		MasterProductID: masterID,
		Version:         version,
		IsActive:        active,
		Density:         decimal.NewFromFloat(1.3),
	}
}

func TestResolveActiveFormula(t *testing.T) {
	masterID := uuid.New()

	t.Run("returns the single active formula", func(t *testing.T) {
		formulas := []Formula{
			newFormula(masterID, 1, false),
			newFormula(masterID, 2, true),
			newFormula(masterID, 3, false),
		}

		active, err := ResolveActiveFormula(masterID, formulas)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, 2, active.Version)
	})

	t.Run("newest inactive formula is not picked", func(t *testing.T) {
		formulas := []Formula{newFormula(masterID, 1, true), newFormula(masterID, 9, false)}

		active, err := ResolveActiveFormula(masterID, formulas)
		require.NoError(t, err)
		assert.Equal(t, 1, active.Version)
	})

	t.Run("no active formula means no recipe", func(t *testing.T) {
		active, err := ResolveActiveFormula(masterID, []Formula{newFormula(masterID, 1, false)})
		require.NoError(t, err)
		assert.Nil(t, active)

		active, err = ResolveActiveFormula(masterID, nil)
		require.NoError(t, err)
		assert.Nil(t, active)
	})

	t.Run("two active formulas fail loudly", func(t *testing.T) {
		formulas := []Formula{newFormula(masterID, 1, true), newFormula(masterID, 2, true)}

		active, err := ResolveActiveFormula(masterID, formulas)
		assert.Nil(t, active)
		assert.True(t, shared.HasCode(err, shared.CodeFormulaAmbiguous))
	})

	t.Run("formulas of other products are ignored", func(t *testing.T) {
		formulas := []Formula{newFormula(uuid.New(), 1, true), newFormula(masterID, 4, true)}

		active, err := ResolveActiveFormula(masterID, formulas)
		require.NoError(t, err)
		assert.Equal(t, 4, active.Version)
	})
}

func TestFormula_Components(t *testing.T) {
	f := newFormula(uuid.New(), 1, true)
	f.Components = []FormulaComponent{
		{MaterialID: uuid.New(), Percentage: decimal.NewFromInt(40), Sequence: 2},
		{MaterialID: uuid.New(), Percentage: decimal.NewFromInt(60), Sequence: 1},
	}

	assert.True(t, decimal.NewFromInt(100).Equal(f.PercentageTotal()))
	assert.True(t, f.IsBalanced())

	ordered := f.OrderedComponents()
	assert.Equal(t, 1, ordered[0].Sequence)
	assert.Equal(t, 2, f.Components[0].Sequence, "original order untouched")

	f.Components[0].Percentage = decimal.NewFromInt(30)
	assert.False(t, f.IsBalanced())
}

func TestFormula_Snapshot(t *testing.T) {
	f := newFormula(uuid.New(), 1, true)
	f.Viscosity = decimal.NewFromInt(95)
	f.WaterPercentage = decimal.NewFromInt(35)

	snap := f.Snapshot()
	f.Density = decimal.NewFromInt(2)

	require.NotNil(t, snap.FormulaID)
	assert.Equal(t, f.ID, *snap.FormulaID)
	assert.True(t, decimal.NewFromFloat(1.3).Equal(snap.Density), "snapshot is a copy")
	assert.True(t, decimal.NewFromInt(95).Equal(snap.Viscosity))
	assert.True(t, decimal.NewFromInt(35).Equal(snap.WaterPercentage))
}
