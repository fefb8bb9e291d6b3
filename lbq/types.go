package lbq

type AndOrCondition []Where

type Where map[string]any // @name Where

type Fields map[string]bool // @name Fields

type Order struct {
	Field     string `json:"field,omitempty"`
	Direction string `json:"Direction,omitempty"`
} // @name Order

// Conditions holds extra remote query parameters keyed by association name.
type Conditions map[string]map[string]any // @name Conditions

type Filter struct {
	Fields        Fields     `json:"fields,omitempty"`
	Limit         uint       `json:"limit,omitempty"`
	Order         []Order    `json:"order,omitempty"`
	Skip          uint       `json:"skip,omitempty"`
	Where         Where      `json:"where,omitempty"`
	IncludeRemote []string   `json:"includeRemote,omitempty"`
	FilterRemote  Conditions `json:"filterRemote,omitempty"`
} // @name Filter
