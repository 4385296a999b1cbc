package domain

// Stats summarizes occupancy. Available + Occupied == Total since status is binary.
type Stats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Occupied  int `json:"occupied"`
}

func ComputeStats(rooms []Room) Stats {
	stats := Stats{Total: len(rooms)}
	for _, r := range rooms {
		if r.IsOccupied() {
			stats.Occupied++
		} else {
			stats.Available++
		}
	}
	return stats
}
