package checkout

// OptionsQuery selects the base price and the buyer's region.
type OptionsQuery struct {
	Amount   string `query:"amount" validate:"required,numeric"`
	Currency string `query:"currency" validate:"required,alphanum,min=2,max=10"`
	Region   string `query:"region" validate:"omitempty,alpha,len=2"`
}

// RecommendQuery names the region to recommend a currency for.
type RecommendQuery struct {
	Region string `query:"region" validate:"omitempty,alpha,len=2"`
}

// RecommendResponse is the body of a recommendation.
type RecommendResponse struct {
	Region   string `json:"region"`
	Currency string `json:"currency"`
}
