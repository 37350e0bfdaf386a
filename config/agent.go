package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// KnownRoles lists the accepted AGENT_ROLES entries.
var KnownRoles = []string{"buyer", "seller", "evaluator"}

// AgentConfig describes the wallet this agent acts for and how each role
// behaves.
type AgentConfig struct {
	WalletAddress string `env:"WALLET_ADDRESS"`
	EntityID      string `env:"ENTITY_ID"`
	// Roles is a comma separated list of buyer, seller, evaluator.
	Roles string `env:"ROLES" envDefault:"evaluator"`

	// MaxPrice caps what the buyer pays for one job (0 = no cap).
	MaxPrice float64 `env:"MAX_PRICE" envDefault:"0"`

	// Offerings is the seller's allowlist of service names (empty = all).
	Offerings []string `env:"OFFERINGS"`
	// DeliverableType and DeliverableValue form the seller's deliverable.
	DeliverableType  string `env:"DELIVERABLE_TYPE"  envDefault:"text"`
	DeliverableValue string `env:"DELIVERABLE_VALUE"`

	// EvaluationExpression is a JMESPath expression over {job, deliverable};
	// empty accepts every deliverable.
	EvaluationExpression string `env:"EVALUATION_EXPRESSION"`
}

// Sanitize trims fields and drops empty allowlist entries.
func (c *AgentConfig) Sanitize() {
	c.WalletAddress = strings.TrimSpace(c.WalletAddress)
	c.EntityID = strings.TrimSpace(c.EntityID)
	c.Roles = strings.ToLower(strings.TrimSpace(c.Roles))
	if c.MaxPrice < 0 {
		c.MaxPrice = 0
	}
	offerings := c.Offerings[:0]
	for _, o := range c.Offerings {
		if o = strings.TrimSpace(o); o != "" {
			offerings = append(offerings, o)
		}
	}
	c.Offerings = offerings
	c.DeliverableType = strings.TrimSpace(c.DeliverableType)
	c.EvaluationExpression = strings.TrimSpace(c.EvaluationExpression)
}

// RoleList splits Roles, dropping blanks.
func (c *AgentConfig) RoleList() []string {
	var out []string
	for _, r := range strings.Split(c.Roles, ",") {
		if r = strings.TrimSpace(r); r != "" && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

// HasRole reports whether role is enabled.
func (c *AgentConfig) HasRole(role string) bool {
	return slices.Contains(c.RoleList(), role)
}

// Validate requires a wallet address and known roles. The seller role needs
// a deliverable value.
func (c *AgentConfig) Validate() error {
	var errs []error
	if !IsAddress(c.WalletAddress) {
		errs = append(errs, fmt.Errorf("AGENT_WALLET_ADDRESS must be a 0x address, got %q", c.WalletAddress))
	}
	roles := c.RoleList()
	if len(roles) == 0 {
		errs = append(errs, errors.New("at least one role must be specified"))
	}
	for _, r := range roles {
		if !slices.Contains(KnownRoles, r) {
			errs = append(errs, fmt.Errorf("invalid role %q (valid options: %s)", r, strings.Join(KnownRoles, ", ")))
		}
	}
	if slices.Contains(roles, "seller") && c.DeliverableValue == "" {
		errs = append(errs, errors.New("seller role requires AGENT_DELIVERABLE_VALUE"))
	}
	return errors.Join(errs...)
}
