package models

// Requests for the prediction HTTP endpoints.

type TickerRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required,alpha,min=1,max=10"`
}

type SentimentRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required,alpha,min=1,max=10"`
	AsOf   string `query:"as_of" json:"as_of"`
}
