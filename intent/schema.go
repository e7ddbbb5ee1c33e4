package intent

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const signedResponseSchema = `{
  "type": "object",
  "required": ["response", "signature"],
  "additionalProperties": false,
  "properties": {
    "response": {
      "type": "object",
      "required": ["intent", "timestamp_ms", "data"],
      "additionalProperties": false,
      "properties": {
        "intent": {"type": "integer", "minimum": 0, "maximum": 127},
        "timestamp_ms": {"type": "integer", "minimum": 0},
        "data": {"type": "string", "format": "base64"}
      }
    },
    "signature": {"type": "string", "format": "signature-hex"}
  }
}`

const signedBCSResponseSchema = `{
  "type": "object",
  "required": ["intent_message_bcs", "signature"],
  "additionalProperties": false,
  "properties": {
    "intent_message_bcs": {"type": "string", "format": "hex"},
    "signature": {"type": "string", "format": "signature-hex"}
  }
}`

var (
	schemaOnce     sync.Once
	responseSchema *gojsonschema.Schema
	bcsSchema      *gojsonschema.Schema
	schemaErr      error
)

var hexPattern = regexp.MustCompile(`^(0x)?([0-9a-fA-F]{2})*$`)

func init() {
	gojsonschema.FormatCheckers.Add("hex", hexFormatChecker{})
	gojsonschema.FormatCheckers.Add("signature-hex", signatureHexFormatChecker{})
	gojsonschema.FormatCheckers.Add("base64", base64FormatChecker{})
}

type hexFormatChecker struct{}

func (hexFormatChecker) IsFormat(input interface{}) bool {
	str, ok := input.(string)
	return ok && hexPattern.MatchString(str)
}

// Ed25519 signatures are 64 bytes
type signatureHexFormatChecker struct{}

func (signatureHexFormatChecker) IsFormat(input interface{}) bool {
	str, ok := input.(string)
	if !ok || !hexPattern.MatchString(str) {
		return false
	}
	return len(strings.TrimPrefix(str, "0x")) == 128
}

type base64FormatChecker struct{}

func (base64FormatChecker) IsFormat(input interface{}) bool {
	str, ok := input.(string)
	if !ok {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(str)
	return err == nil
}

func compileSchemas() error {
	schemaOnce.Do(func() {
		responseSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(signedResponseSchema))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile signed response schema: %w", schemaErr)
			return
		}
		bcsSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(signedBCSResponseSchema))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile signed bcs response schema: %w", schemaErr)
		}
	})
	return schemaErr
}

func validate(schema *gojsonschema.Schema, doc []byte, what string) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%s validation failed: %w", what, err)
	}
	if !result.Valid() {
		var b strings.Builder
		for _, e := range result.Errors() {
			if b.Len() > 0 {
				b.WriteString("; ")
			}
			b.WriteString(e.String())
		}
		return fmt.Errorf("%s validation failed: %s", what, b.String())
	}
	return nil
}

// ParseSignedResponse validates and decodes a structured envelope
func ParseSignedResponse(doc []byte) (*SignedResponse[[]byte], error) {
	if err := compileSchemas(); err != nil {
		return nil, err
	}
	if err := validate(responseSchema, doc, "signed response"); err != nil {
		return nil, err
	}
	var resp SignedResponse[[]byte]
	if err := json.Unmarshal(doc, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode signed response: %w", err)
	}
	if resp.Response.Data == nil {
		resp.Response.Data = []byte{}
	}
	return &resp, nil
}

// ParseSignedBCSResponse validates and decodes a flat envelope
func ParseSignedBCSResponse(doc []byte) (*SignedBCSResponse, error) {
	if err := compileSchemas(); err != nil {
		return nil, err
	}
	if err := validate(bcsSchema, doc, "signed bcs response"); err != nil {
		return nil, err
	}
	var resp SignedBCSResponse
	if err := json.Unmarshal(doc, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode signed bcs response: %w", err)
	}
	return &resp, nil
}
