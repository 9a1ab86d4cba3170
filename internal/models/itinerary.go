// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned by ParseItinerary when a preset payload
// lacks the structural fields every itinerary must carry.
var ErrMalformedPayload = errors.New("malformed itinerary payload")

// Itinerary is the structured view of a preset payload. Only Destinations
// and Days are required; the rest is optional display data and is left
// empty when the payload carries it in a shape the view cannot use.
type Itinerary struct {
	Destinations []string       `json:"destinations"`
	Days         int            `json:"days"`
	Preferences  map[string]any `json:"preferences,omitempty"`
	Plan         []DayPlan      `json:"plan,omitempty"`
	Notes        string         `json:"notes,omitempty"`
}

// DayPlan lists the activities planned for one day of the trip.
type DayPlan struct {
	Day        int        `json:"day"`
	Title      string     `json:"title,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Activities []Activity `json:"activities,omitempty"`
}

// Activity is a single entry in a day's schedule.
type Activity struct {
	Time        string `json:"time,omitempty"`
	Title       string `json:"title"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// ParseItinerary decodes and structurally validates a preset payload.
// The payload must be a JSON object with a "destinations" array of strings
// and an integer "days" of at least 1. All failures wrap ErrMalformedPayload.
func ParseItinerary(raw json.RawMessage) (*Itinerary, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: payload is empty", ErrMalformedPayload)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: payload must be a JSON object", ErrMalformedPayload)
	}

	destRaw, ok := fields["destinations"]
	if !ok {
		return nil, fmt.Errorf("%w: destinations is required", ErrMalformedPayload)
	}
	var destinations []string
	if err := json.Unmarshal(destRaw, &destinations); err != nil || destinations == nil {
		return nil, fmt.Errorf("%w: destinations must be a list of strings", ErrMalformedPayload)
	}

	daysRaw, ok := fields["days"]
	if !ok {
		return nil, fmt.Errorf("%w: days is required", ErrMalformedPayload)
	}
	var days int
	if err := json.Unmarshal(daysRaw, &days); err != nil || days < 1 {
		return nil, fmt.Errorf("%w: days must be an integer >= 1", ErrMalformedPayload)
	}

	it := &Itinerary{Destinations: destinations, Days: days}
	if v, ok := fields["preferences"]; ok {
		_ = json.Unmarshal(v, &it.Preferences)
	}
	if v, ok := fields["notes"]; ok {
		_ = json.Unmarshal(v, &it.Notes)
	}
	if v, ok := fields["plan"]; ok {
		it.Plan = decodePlan(v)
	}
	return it, nil
}

// decodePlan keeps the plan entries that decode as a DayPlan and drops the
// rest. A plan that is not a list yields nil.
func decodePlan(raw json.RawMessage) []DayPlan {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	var plan []DayPlan
	for _, e := range entries {
		var d DayPlan
		if err := json.Unmarshal(e, &d); err != nil {
			continue
		}
		plan = append(plan, d)
	}
	return plan
}

// DayPlan returns the plan for day n (1-based), or nil if nothing was
// planned for it. Entries without an explicit day number are matched by
// their position in the plan list.
func (it *Itinerary) DayPlan(n int) *DayPlan {
	for i := range it.Plan {
		if it.Plan[i].Day == n {
			return &it.Plan[i]
		}
	}
	if n-1 < len(it.Plan) && it.Plan[n-1].Day == 0 {
		return &it.Plan[n-1]
	}
	return nil
}
