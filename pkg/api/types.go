package api

// Response types for REST endpoints and WebSocket messages.

// BookSnapshot is the aggregated depth of one product.
type BookSnapshot struct {
	Product   string       `json:"product"`
	Bids      []PriceLevel `json:"bids"` // sorted high to low
	Asks      []PriceLevel `json:"asks"` // sorted low to high
	Timestamp int64        `json:"timestamp"` // unix milliseconds
}

// PriceLevel is one aggregated price level.
type PriceLevel struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
	Orders   int   `json:"orders"`
}

// PositionInfo is one trader's holding in one product.
type PositionInfo struct {
	Product  string `json:"product"`
	Quantity int64  `json:"quantity"` // +ve long, -ve short
	Value    int64  `json:"value"`    // net cash flow, negative means net paid
}

// TradeInfo is one executed fill served from the journal.
type TradeInfo struct {
	ID          string `json:"id"`
	Product     string `json:"product"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	Fee         int64  `json:"fee"`
	MakerTrader int    `json:"makerTrader"`
	TakerTrader int    `json:"takerTrader"`
	Timestamp   int64  `json:"timestamp"` // unix nanoseconds
}

// StatusInfo is the health payload.
type StatusInfo struct {
	Status        string `json:"status"`
	Products      int    `json:"products"`
	FeesCollected int64  `json:"feesCollected"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WSSubscribeRequest is sent by a client to manage channel subscriptions,
// e.g. {"op":"subscribe","channels":["market:GPU","fills:GPU"]}.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// MarketUpdate is broadcast on the "market:<product>" channel for every
// order placement, amendment, or cancellation. A cancellation carries
// quantity and price zero.
type MarketUpdate struct {
	Type      string `json:"type"` // "market"
	Side      string `json:"side"`
	Product   string `json:"product"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

// FillUpdate is broadcast on the "fills:<product>" channel after each
// consumption event.
type FillUpdate struct {
	Type      string `json:"type"` // "fill"
	Product   string `json:"product"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Fee       int64  `json:"fee"`
	Timestamp int64  `json:"timestamp"`
}
