// Package catalog serves restaurant metadata configured at startup.
package catalog

import (
	"context"
	"fmt"
	"sort"

	"tablebook/internal/config"
	"tablebook/internal/domain"
	"tablebook/internal/models"
)

type StaticCatalog struct {
	restaurants map[string]models.Restaurant
	seeds       map[string]*models.RestaurantAvailability
}

func NewStaticCatalog(restaurants []config.RestaurantConfig) *StaticCatalog {
	c := &StaticCatalog{
		restaurants: make(map[string]models.Restaurant, len(restaurants)),
		seeds:       make(map[string]*models.RestaurantAvailability),
	}
	for _, r := range restaurants {
		c.restaurants[r.ID] = models.Restaurant{ID: r.ID, Name: r.Name, StaffChatID: r.StaffChatID}
		if r.Availability != nil {
			seed := r.Availability.Clone()
			seed.RestaurantID = r.ID
			c.seeds[r.ID] = seed
		}
	}
	return c
}

func (c *StaticCatalog) GetRestaurant(_ context.Context, id string) (*models.Restaurant, error) {
	r, ok := c.restaurants[id]
	if !ok {
		return nil, fmt.Errorf("restaurant %s: %w", id, domain.ErrNotFound)
	}
	return &r, nil
}

// List returns restaurants ordered by id.
func (c *StaticCatalog) List() []models.Restaurant {
	out := make([]models.Restaurant, 0, len(c.restaurants))
	for _, r := range c.restaurants {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Seeds returns the availability configurations declared in config, keyed by
// restaurant id. Each call returns fresh copies.
func (c *StaticCatalog) Seeds() map[string]*models.RestaurantAvailability {
	out := make(map[string]*models.RestaurantAvailability, len(c.seeds))
	for id, a := range c.seeds {
		out[id] = a.Clone()
	}
	return out
}
