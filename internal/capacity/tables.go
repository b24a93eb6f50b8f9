package capacity

import (
	"sort"

	"tablebook/internal/models"
)

// AssignableTables returns the active tables not held by another active
// booking at the same date and time. excludeBookingID lets a booking keep
// seeing the table it already holds. Party size is not checked.
func AssignableTables(a *models.RestaurantAvailability, slot string, active []*models.Booking, excludeBookingID string) []models.Table {
	if a == nil {
		return []models.Table{}
	}
	atSlot := make([]*models.Booking, 0, len(active))
	for _, b := range active {
		if b.Time == slot && b.Status.IsActive() {
			atSlot = append(atSlot, b)
		}
	}
	return freeTables(a.ActiveTables(), atSlot, excludeBookingID)
}

func freeTables(tables []models.Table, active []*models.Booking, excludeBookingID string) []models.Table {
	taken := make(map[string]struct{}, len(active))
	for _, b := range active {
		if b.TableID != "" && b.ID != excludeBookingID {
			taken[b.TableID] = struct{}{}
		}
	}
	out := make([]models.Table, 0, len(tables))
	for _, t := range tables {
		if _, ok := taken[t.ID]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// HolderOf returns the active booking holding tableID at the slot, if any.
func HolderOf(tableID, slot string, active []*models.Booking, excludeBookingID string) *models.Booking {
	for _, b := range active {
		if b.ID != excludeBookingID && b.Time == slot && b.TableID == tableID && b.Status.IsActive() {
			return b
		}
	}
	return nil
}

// SuggestTables orders tables by fit for the party: the smallest tables that
// seat everyone first, then undersized tables from largest to smallest.
// Ties keep configured order. The result is advisory only.
func SuggestTables(tables []models.Table, partySize int) []models.Table {
	out := append([]models.Table(nil), tables...)
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := out[i].Capacity >= partySize, out[j].Capacity >= partySize
		if fi != fj {
			return fi
		}
		if fi {
			return out[i].Capacity < out[j].Capacity
		}
		return out[i].Capacity > out[j].Capacity
	})
	return out
}
