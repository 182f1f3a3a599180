package llm

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeArgs decodes a structured model payload into out using the json tags
// of the target. Numbers encoded as strings are accepted.
func DecodeArgs(args map[string]any, out any) error {
	if args == nil {
		return fmt.Errorf("no structured payload")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("decode structured payload: %w", err)
	}
	return nil
}
