// Package market standardizes payloads shared between the exchange layer and the strategy.
package market

import "time"

// Side identifies which binary outcome a contract pays out on.
type Side string

const (
	// Yes contracts pay 100 cents if the event resolves true.
	Yes Side = "yes"
	// No contracts pay 100 cents if the event resolves false.
	No Side = "no"
)

// Market carries the metadata the engine needs to evaluate one listing.
type Market struct {
	Ticker    string
	Title     string
	Status    string
	CloseTime time.Time
}
