package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Agent is a registered ACP participant as returned by the agent directory.
type Agent struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	WalletAddress  string         `json:"walletAddress"`
	Offerings      []Offering     `json:"offerings"`
	TwitterHandle  string         `json:"twitterHandle,omitempty"`
	Cluster        string         `json:"cluster,omitempty"`
	Symbol         string         `json:"symbol,omitempty"`
	Metrics        map[string]any `json:"metrics,omitempty"`
	ProcessingTime string         `json:"processingTime,omitempty"`
}

// Offering is one priced service an agent sells.
type Offering struct {
	Name              string          `json:"name"`
	Price             float64         `json:"price"`
	PriceUSD          float64         `json:"priceUsd"`
	RequirementSchema json.RawMessage `json:"requirementSchema,omitempty"`
}

// OfferingByName returns the offering with the given name (case-insensitive).
func (a *Agent) OfferingByName(name string) (Offering, bool) {
	for _, o := range a.Offerings {
		if strings.EqualFold(o.Name, name) {
			return o, true
		}
	}
	return Offering{}, false
}

// AgentSort is a directory ranking key.
type AgentSort string

const (
	SortSuccessfulJobCount AgentSort = "successfulJobCount"
	SortSuccessRate        AgentSort = "successRate"
	SortUniqueBuyerCount   AgentSort = "uniqueBuyerCount"
	SortMinsFromLastOnline AgentSort = "minsFromLastOnlineTime"
)

// Valid reports whether s is a known sort key.
func (s AgentSort) Valid() bool {
	switch s {
	case SortSuccessfulJobCount, SortSuccessRate, SortUniqueBuyerCount, SortMinsFromLastOnline:
		return true
	default:
		return false
	}
}

// GraduationStatus filters agents by graduation.
type GraduationStatus string

const (
	GraduationGraduated    GraduationStatus = "graduated"
	GraduationNotGraduated GraduationStatus = "not_graduated"
	GraduationAll          GraduationStatus = "all"
)

// OnlineStatus filters agents by presence.
type OnlineStatus string

const (
	OnlineStatusOnline  OnlineStatus = "online"
	OnlineStatusOffline OnlineStatus = "offline"
	OnlineStatusAll     OnlineStatus = "all"
)

// DefaultAgentTopK is the result count used when AgentSearch.TopK is zero.
const DefaultAgentTopK = 5

// AgentSearch parameterises a directory search.
type AgentSearch struct {
	Keyword     string
	Cluster     string
	SortBy      []AgentSort
	TopK        int
	ExcludeSelf bool
	Graduation  GraduationStatus
	Online      OnlineStatus
}

// Validate checks the sort keys and filters.
func (s *AgentSearch) Validate() error {
	for _, key := range s.SortBy {
		if !key.Valid() {
			return fmt.Errorf("invalid sort key %q", key)
		}
	}
	switch s.Graduation {
	case "", GraduationGraduated, GraduationNotGraduated, GraduationAll:
	default:
		return fmt.Errorf("invalid graduation status %q", s.Graduation)
	}
	switch s.Online {
	case "", OnlineStatusOnline, OnlineStatusOffline, OnlineStatusAll:
	default:
		return fmt.Errorf("invalid online status %q", s.Online)
	}
	if s.TopK < 0 {
		return fmt.Errorf("top_k must be >= 0")
	}
	return nil
}

// JobListKind selects one of the per-agent job listings.
type JobListKind string

const (
	JobListActive    JobListKind = "active"
	JobListCompleted JobListKind = "completed"
	JobListCancelled JobListKind = "cancelled"
)

// Pagination for job listings. Zero values mean page 1 of 10.
type Pagination struct {
	Page     int
	PageSize int
}

// Normalize applies the listing defaults.
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 10
	}
	return p
}
