package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ppiankov/letteraudit/internal/model"
)

//go:embed parse_result.schema.json
var parseResultSchema []byte

const parseResultSchemaURL = "parse_result.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(parseResultSchemaURL, bytes.NewReader(parseResultSchema)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(parseResultSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// ParseResult validates data against the ParseResult schema and decodes it.
// Callers use it for parse results produced outside this process.
func ParseResult(data []byte) (*model.ParseResult, error) {
	s, err := schema()
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return nil, fmt.Errorf("parse result does not match schema: %w", err)
	}

	var result model.ParseResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode parse result: %w", err)
	}
	if result.Claims == nil {
		result.Claims = []model.ClaimRecord{}
	}
	return &result, nil
}
