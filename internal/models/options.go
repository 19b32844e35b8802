package models

import "time"

// OptionGreeks represents option Greeks.
type OptionGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// OptionQuote is a single contract at one strike/expiration/side, as
// reported by an option-chain snapshot.
type OptionQuote struct {
	ContractName      string       `json:"contractName,omitempty"`
	ExpirationDate    time.Time    `json:"expirationDate"`
	Strike            float64      `json:"strike"`
	LastPrice         float64      `json:"lastPrice"`
	Bid               float64      `json:"bid"`
	Ask               float64      `json:"ask"`
	Volume            int64        `json:"volume"`
	OpenInterest      int64        `json:"openInterest"`
	ImpliedVolatility float64      `json:"impliedVolatility"`
	Greeks            OptionGreeks `json:"greeks"`
}

// ExpirationQuotes groups the call and put contracts for one expiration.
type ExpirationQuotes struct {
	ExpirationDate time.Time     `json:"expirationDate"`
	Calls          []OptionQuote `json:"calls"`
	Puts           []OptionQuote `json:"puts"`
}

// OptionChain is a point-in-time snapshot of every listed contract for
// a symbol, across strikes and expirations.
type OptionChain struct {
	Symbol      string             `json:"symbol"`
	SpotPrice   float64            `json:"spotPrice"`
	Expirations []ExpirationQuotes `json:"expirations"`
}

// StrikeDelta is the strike-selection projection of a contract.
type StrikeDelta struct {
	Strike float64 `json:"strike"`
	Delta  float64 `json:"delta"`
}

// SymbolData is the result of validating a symbol: the spot price plus
// the option chain and its tradeable expirations, soonest first.
type SymbolData struct {
	Symbol          string       `json:"symbol"`
	SpotPrice       float64      `json:"spotPrice"`
	Chain           *OptionChain `json:"-"`
	ExpirationDates []time.Time  `json:"expirationDates"`
}

// BatchQuote is one row of a batch price/earnings lookup.
type BatchQuote struct {
	Symbol   string     `json:"symbol"`
	Price    float64    `json:"price"`
	Earnings *time.Time `json:"earnings,omitempty"`
}
