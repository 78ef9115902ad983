package subgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"dex-swaps-lab/internal/domain"
)

// ErrSchemaMismatch is returned when a source does not expose the swap shape
// the fetcher relies on.
var ErrSchemaMismatch = errors.New("schema mismatch")

// swapTypeName is the entity type holding swap events in the standardized DEX schema.
const swapTypeName = "Swap"

// swapsCollection is the query root field listing swaps.
const swapsCollection = "swaps"

const introspectionQuery = `
	query SwapSchema($type: String!) {
		__schema {
			queryType {
				fields { name }
			}
		}
		__type(name: $type) {
			fields { name }
		}
	}
`

type introspectionResult struct {
	Schema struct {
		QueryType struct {
			Fields []namedField `json:"fields"`
		} `json:"queryType"`
	} `json:"__schema"`
	Type *struct {
		Fields []namedField `json:"fields"`
	} `json:"__type"`
}

type namedField struct {
	Name string `json:"name"`
}

// Schema is the resolved, query-ready handle of one source.
// It is immutable after Resolve and safe for concurrent use.
type Schema struct {
	Source     domain.SourceDescriptor
	SwapFields []string // Swap fields exposed by the source, sorted
	client     *Client
	selection  Selection
}

// NewSchema builds a handle without introspection, for sources whose shape is
// already known.
func NewSchema(source domain.SourceDescriptor, client *Client, selection Selection) *Schema {
	return &Schema{
		Source:     source,
		SwapFields: selection.Names(),
		client:     client,
		selection:  selection,
	}
}

// Resolve introspects the source endpoint and checks that the swaps collection
// and every selected Swap field exist.
func Resolve(ctx context.Context, source domain.SourceDescriptor, client *Client) (*Schema, error) {
	var result introspectionResult
	vars := map[string]interface{}{"type": swapTypeName}
	if err := client.Do(ctx, "SwapSchema", introspectionQuery, vars, &result); err != nil {
		return nil, fmt.Errorf("introspect %s: %w", source.ID, err)
	}

	if !hasField(result.Schema.QueryType.Fields, swapsCollection) {
		return nil, fmt.Errorf("%w: %s has no %q query field", ErrSchemaMismatch, source.ID, swapsCollection)
	}
	if result.Type == nil {
		return nil, fmt.Errorf("%w: %s has no %s type", ErrSchemaMismatch, source.ID, swapTypeName)
	}

	var missing []string
	for _, name := range SwapSelection.Names() {
		if !hasField(result.Type.Fields, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s %s lacks fields %s",
			ErrSchemaMismatch, source.ID, swapTypeName, strings.Join(missing, ", "))
	}

	fields := make([]string, 0, len(result.Type.Fields))
	for _, f := range result.Type.Fields {
		fields = append(fields, f.Name)
	}
	sort.Strings(fields)

	return &Schema{
		Source:     source,
		SwapFields: fields,
		client:     client,
		selection:  SwapSelection,
	}, nil
}

func hasField(fields []namedField, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
