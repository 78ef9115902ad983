package subgraph

import "strings"

// Field is one entry of a GraphQL selection set.
type Field struct {
	Name string
	Sub  Selection
}

// Selection is an explicit list of fields requested from a type.
type Selection []Field

// String renders the selection as GraphQL, e.g. "id tokenIn { id symbol }".
func (s Selection) String() string {
	var sb strings.Builder
	s.write(&sb)
	return sb.String()
}

func (s Selection) write(sb *strings.Builder) {
	for i, f := range s {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(f.Name)
		if len(f.Sub) > 0 {
			sb.WriteString(" { ")
			f.Sub.write(sb)
			sb.WriteString(" }")
		}
	}
}

// Names returns the top-level field names.
func (s Selection) Names() []string {
	names := make([]string, 0, len(s))
	for _, f := range s {
		names = append(names, f.Name)
	}
	return names
}

// SwapSelection is the field set requested from every source's Swap type.
var SwapSelection = Selection{
	{Name: "timestamp"},
	{Name: "to"},
	{Name: "from"},
	{Name: "tokenIn", Sub: Selection{{Name: "id"}, {Name: "symbol"}, {Name: "decimals"}}},
	{Name: "amountIn"},
	{Name: "amountInUSD"},
	{Name: "tokenOut", Sub: Selection{{Name: "id"}, {Name: "symbol"}, {Name: "decimals"}}},
	{Name: "amountOut"},
	{Name: "amountOutUSD"},
	{Name: "pool", Sub: Selection{{Name: "id"}, {Name: "name"}, {Name: "symbol"}}},
	{Name: "hash"},
	{Name: "logIndex"},
}
