package simulator

import (
	"fmt"

	"community_energy/internal/model"
)

// AddHousehold appends a validated household, assigning the next free ID.
func AddHousehold(h model.Household) Mutation {
	return func(c *Community) error {
		h.ID = c.NextHouseholdID()
		h.Active = true
		if err := h.Validate(); err != nil {
			return err
		}
		h.ResetTick()
		c.Households = append(c.Households, h)
		return nil
	}
}

// UpdatePrices changes a household's price preferences.
func UpdatePrices(id int, sellMin, buyMax float64) Mutation {
	return func(c *Community) error {
		if err := model.ValidatePrice("sell_price_min", sellMin); err != nil {
			return err
		}
		if err := model.ValidatePrice("buy_price_max", buyMax); err != nil {
			return err
		}
		h, ok := c.Household(id)
		if !ok {
			return fmt.Errorf("household %d not found", id)
		}
		h.SellPriceMin = sellMin
		h.BuyPriceMax = buyMax
		return nil
	}
}

// RemoveHousehold soft-deletes a household. It keeps its history and
// battery but no longer takes part in ticks.
func RemoveHousehold(id int) Mutation {
	return func(c *Community) error {
		h, ok := c.Household(id)
		if !ok {
			return fmt.Errorf("household %d not found", id)
		}
		h.Active = false
		h.ResetTick()
		return nil
	}
}
