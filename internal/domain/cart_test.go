package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCart_FindItemIndex(t *testing.T) {
	cart := &Cart{
		UserID: "user-1",
		Items: []LineItem{
			{ProductID: "p1", Size: "M", Quantity: 2},
			{ProductID: "p1", Size: "L", Quantity: 1},
			{ProductID: "p2", Quantity: 3},
		},
	}

	assert.Equal(t, 0, cart.FindItemIndex("p1", "M"))
	assert.Equal(t, 1, cart.FindItemIndex("p1", "L"))
	assert.Equal(t, 2, cart.FindItemIndex("p2", ""))
	assert.Equal(t, -1, cart.FindItemIndex("p1", "XL"))
	assert.Equal(t, -1, cart.FindItemIndex("p3", ""))
}

func TestCart_ItemCount(t *testing.T) {
	cart := &Cart{Items: []LineItem{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 5},
	}}

	assert.Equal(t, 7, cart.ItemCount())
	assert.Zero(t, (&Cart{}).ItemCount())
}

func TestCart_ProductIDs_Distinct(t *testing.T) {
	cart := &Cart{Items: []LineItem{
		{ProductID: "p1", Size: "M", Quantity: 1},
		{ProductID: "p1", Size: "L", Quantity: 1},
		{ProductID: "p2", Quantity: 1},
	}}

	assert.Equal(t, []string{"p1", "p2"}, cart.ProductIDs())
}

func TestCart_Clone_Independent(t *testing.T) {
	cart := &Cart{UserID: "u", Items: []LineItem{{ProductID: "p1", Quantity: 1}}}

	clone := cart.Clone()
	clone.Items[0].Quantity = 99

	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, "u", clone.UserID)
}
