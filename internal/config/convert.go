package config

import "github.com/danmuck/reservectl/internal/store"

// SeedFlights converts config-declared flights into store rows. Seeded
// flights start fully available, so capacity equals the declared seat
// count.
func SeedFlights(cfg ServerConfig) []store.Flight {
	flights := make([]store.Flight, 0, len(cfg.Flights))
	for _, seed := range cfg.Flights {
		flights = append(flights, store.Flight{
			Ref:         seed.Ref,
			Destination: seed.Destination,
			Available:   seed.Seats,
			Capacity:    seed.Seats,
			Price:       seed.Price,
		})
	}
	return flights
}
