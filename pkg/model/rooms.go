package model

import (
	"slices"

	"github.com/samber/lo"
)

// RoomClass stands for a group of physical rooms that a phase treats as interchangeable.
type RoomClass struct {
	Rooms        []int // Ids of the underlying rooms
	Multiplicity int
	Capacity     int // Largest capacity within the group
}

func (class *RoomClass) add(room Room) {
	class.Rooms = append(class.Rooms, room.Id)
	class.Multiplicity++
	class.Capacity = max(class.Capacity, room.Capacity)
}

// AggregateRooms groups rooms (sorted by descending capacity) following the policy of phase.
func AggregateRooms(rooms []Room, phase Phase) []RoomClass {
	switch phase {
	case FixDay:
		return aggregateEqualCapacities(rooms)
	case Surface:
		return aggregateSmallLarge(rooms)
	default:
		return lo.Map(rooms, func(room Room, _ int) RoomClass {
			return RoomClass{Rooms: []int{room.Id}, Multiplicity: 1, Capacity: room.Capacity}
		})
	}
}

func aggregateEqualCapacities(rooms []Room) []RoomClass {
	classes := make([]RoomClass, 0)
	if len(rooms) == 0 {
		return classes
	}
	current := RoomClass{}
	for i := 0; i < len(rooms)-1; i++ {
		current.add(rooms[i])
		if rooms[i].Capacity != rooms[i+1].Capacity {
			classes = append(classes, current)
			current = RoomClass{}
		}
	}
	current.add(rooms[len(rooms)-1])
	return append(classes, current)
}

// aggregateSmallLarge always yields two classes, small first; the large one may be empty.
func aggregateSmallLarge(rooms []Room) []RoomClass {
	small, large := RoomClass{Rooms: []int{}}, RoomClass{Rooms: []int{}}
	if len(rooms) == 0 {
		return []RoomClass{small, large}
	}

	distinct := lo.Uniq(lo.Map(rooms, func(room Room, _ int) int { return room.Capacity }))
	slices.SortFunc(distinct, func(a, b int) int { return b - a })
	splitAt := distinct[len(distinct)/2] + 1

	for _, room := range rooms {
		if room.Capacity < splitAt {
			small.add(room)
		} else {
			large.add(room)
		}
	}
	return []RoomClass{small, large}
}
