package output

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
)

// ApplyJQ runs a jq expression over data and collects every emitted value.
func ApplyJQ(expr string, data any) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, ErrUsageHint(fmt.Sprintf("Invalid --jq expression: %v", err), expr)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, ErrUsageHint(fmt.Sprintf("Invalid --jq expression: %v", err), expr)
	}

	input, err := jsonValue(data)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, ErrUsage(fmt.Sprintf("jq: %v", err))
		}
		results = append(results, v)
	}
	return results, nil
}

// jsonValue converts data into the plain types gojq accepts.
func jsonValue(data any) (any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding data for jq: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decoding data for jq: %w", err)
	}
	return v, nil
}
