package service

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

// Offering is a provider's priced service, ready to be bought.
type Offering struct {
	model.Offering
	ProviderAddress string

	client *Client
}

// Offerings binds every offering of agent to the client.
func (c *Client) Offerings(agent *model.Agent) []*Offering {
	if agent == nil {
		return nil
	}
	out := make([]*Offering, 0, len(agent.Offerings))
	for _, o := range agent.Offerings {
		out = append(out, &Offering{Offering: o, ProviderAddress: agent.WalletAddress, client: c})
	}
	return out
}

// InitiateJob validates requirement against the offering's requirement
// schema, when one is published, and opens a job at the offering price.
func (o *Offering) InitiateJob(
	ctx context.Context,
	requirement any,
	evaluator string,
	expiredAt time.Time,
) (int64, error) {
	normalized, err := normalizeRequirement(requirement)
	if err != nil {
		return 0, err
	}
	if err := o.validate(normalized); err != nil {
		return 0, err
	}

	terms := map[string]any{"name": o.Name}
	if s, ok := normalized.(string); ok {
		terms["message"] = s
	} else {
		terms["serviceRequirement"] = normalized
	}
	return o.client.InitiateJob(ctx, InitiateJobRequest{
		Provider:    o.ProviderAddress,
		Requirement: terms,
		Amount:      o.Price,
		Evaluator:   evaluator,
		ExpiredAt:   expiredAt,
	})
}

// normalizeRequirement round-trips requirement through JSON so that the
// schema sees plain maps, slices and float64s.
func normalizeRequirement(requirement any) (any, error) {
	if requirement == nil {
		return nil, apperrors.ValidationField("requirement", "service requirement is required")
	}
	raw, err := json.Marshal(requirement)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "service requirement is not valid JSON")
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "service requirement is not valid JSON")
	}
	return out, nil
}

func (o *Offering) validate(requirement any) error {
	schema, err := o.schema()
	if err != nil || schema == nil {
		return err
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeValidation, "offering %q has an unusable requirement schema", o.Name)
	}
	if err := resolved.Validate(requirement); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeValidation, "invalid service requirement for %q", o.Name)
	}
	return nil
}

// schema decodes the requirement schema. The directory serves it either as
// an object or as a JSON-encoded string; an empty schema means no checks.
func (o *Offering) schema() (*jsonschema.Schema, error) {
	raw := bytes.TrimSpace(o.RequirementSchema)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "decode requirement schema")
		}
		raw = bytes.TrimSpace([]byte(s))
		if len(raw) == 0 {
			return nil, nil
		}
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "decode requirement schema of %q", o.Name)
	}
	return &schema, nil
}
