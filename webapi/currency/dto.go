package currency

// ListQuery filters the currency list.
type ListQuery struct {
	Category    string `query:"category" validate:"omitempty,oneof=fiat crypto"`
	MinPriority int    `query:"min_priority" validate:"gte=0"`
}
