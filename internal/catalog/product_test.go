package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftFrom(t *testing.T) {
	d := DraftFrom(Product{ID: 7, Name: "Lamp", Description: "Desk", Price: 12.5, Quantity: 3})

	require.True(t, d.Editing())
	assert.EqualValues(t, 7, *d.EditID)
	assert.Equal(t, "12.5", d.Price)
	assert.Equal(t, "3", d.Quantity)
}

func TestDraft_WithFieldsKeepsTarget(t *testing.T) {
	d := DraftFrom(Product{ID: 2})
	other := int64(99)

	next := d.WithFields(Draft{Name: "New", EditID: &other})

	assert.Equal(t, "New", next.Name)
	assert.EqualValues(t, 2, *next.EditID)
	assert.False(t, Draft{}.WithFields(Draft{Name: "x"}).Editing())
}

func TestDraft_Input(t *testing.T) {
	input, err := Draft{Name: "Lamp", Description: "Desk", Price: " 12.5 ", Quantity: "3"}.Input()
	require.NoError(t, err)
	assert.Equal(t, Input{Name: "Lamp", Description: "Desk", Price: 12.5, Quantity: 3}, input)

	input, err = Draft{Name: "Empty"}.Input()
	require.NoError(t, err)
	assert.Zero(t, input.Price)
	assert.Zero(t, input.Quantity)

	_, err = Draft{Price: "abc"}.Input()
	assert.ErrorContains(t, err, "price")
	_, err = Draft{Quantity: "1.5"}.Input()
	assert.ErrorContains(t, err, "quantity")
}
