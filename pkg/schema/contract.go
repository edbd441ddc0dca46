package schema

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed contract.yaml
var contractYAML []byte

// Contract validates wire JSON strictly against the published response-channel
// contract. The default decode path is permissive (extra fields tolerated);
// the contract rejects unknown fields and malformed payload shapes outright.
type Contract struct {
	step     *openapi3.Schema
	response *openapi3.Schema
}

// LoadContract parses and validates the embedded OpenAPI document.
func LoadContract() (*Contract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(contractYAML)
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate contract: %w", err)
	}

	stepRef, ok := doc.Components.Schemas["CotStep"]
	if !ok || stepRef.Value == nil {
		return nil, fmt.Errorf("contract is missing the CotStep schema")
	}
	respRef, ok := doc.Components.Schemas["AgentResponse"]
	if !ok || respRef.Value == nil {
		return nil, fmt.Errorf("contract is missing the AgentResponse schema")
	}
	return &Contract{step: stepRef.Value, response: respRef.Value}, nil
}

// ValidateStep checks wire JSON for a CotStep against the strict contract.
func (c *Contract) ValidateStep(data []byte) error {
	return c.visit(c.step, "cot step", data)
}

// ValidateResponse checks wire JSON for an AgentResponse against the strict
// contract.
func (c *Contract) ValidateResponse(data []byte) error {
	return c.visit(c.response, "agent response", data)
}

func (c *Contract) visit(schema *openapi3.Schema, what string, data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	if err := schema.VisitJSON(value); err != nil {
		return fmt.Errorf("%s does not satisfy contract: %w", what, err)
	}
	return nil
}
