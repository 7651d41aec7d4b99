package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateRooms(t *testing.T) {
	rooms := []Room{
		{Id: 0, Name: "e", Capacity: 100},
		{Id: 1, Name: "d", Capacity: 50},
		{Id: 2, Name: "c", Capacity: 50},
		{Id: 3, Name: "b", Capacity: 30},
		{Id: 4, Name: "a", Capacity: 30},
	}

	t.Run("One class per room", func(t *testing.T) {
		for _, phase := range []Phase{Monolithic, FixPeriod} {
			//** Act
			classes := AggregateRooms(rooms, phase)

			//** Assert
			assert.Len(t, classes, len(rooms))
			for i, class := range classes {
				assert.Equal(t, RoomClass{Rooms: []int{i}, Multiplicity: 1, Capacity: rooms[i].Capacity}, class)
			}
		}
	})

	t.Run("Equal capacities merged", func(t *testing.T) {
		//** Act
		classes := AggregateRooms(rooms, FixDay)

		//** Assert
		assert.Equal(t, []RoomClass{
			{Rooms: []int{0}, Multiplicity: 1, Capacity: 100},
			{Rooms: []int{1, 2}, Multiplicity: 2, Capacity: 50},
			{Rooms: []int{3, 4}, Multiplicity: 2, Capacity: 30},
		}, classes)
	})

	t.Run("Small and large split at the median", func(t *testing.T) {
		//** Act
		classes := AggregateRooms(rooms, Surface)

		//** Assert
		assert.Equal(t, []RoomClass{
			{Rooms: []int{1, 2, 3, 4}, Multiplicity: 4, Capacity: 50},
			{Rooms: []int{0}, Multiplicity: 1, Capacity: 100},
		}, classes)
	})

	t.Run("Single room leaves the large class empty", func(t *testing.T) {
		//** Act
		classes := AggregateRooms(rooms[:1], Surface)

		//** Assert
		assert.Len(t, classes, 2)
		assert.Equal(t, 1, classes[0].Multiplicity)
		assert.Equal(t, 0, classes[1].Multiplicity)
	})
}
