/*
Package geo
File: nominatim.go
Description:
    Reverse geocoding against an OpenStreetMap Nominatim endpoint. The result
    is split into a street-level part and an area-level part; the area is what
    zones get named after.
*/

package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	defaultUserAgent    = "ecosnap-engine/1.0"
	lookupTimeout       = 5 * time.Second
)

// ErrNoAddress is returned when the lookup succeeds but carries nothing usable.
var ErrNoAddress = errors.New("geo: no address for coordinate")

// Place is a human readable description of a coordinate.
type Place struct {
	Street string `json:"street,omitempty"`
	Area   string `json:"area,omitempty"`
}

// Address joins the non-empty parts, street first.
func (p Place) Address() string {
	parts := make([]string, 0, 2)
	for _, s := range []string{p.Street, p.Area} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// ZoneName prefers the area and falls back to the street.
func (p Place) ZoneName() string {
	if p.Area != "" {
		return p.Area
	}
	return p.Street
}

// Geocoder turns coordinates into a Place.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (Place, error)
}

type Nominatim struct {
	base      string
	userAgent string
	h         *http.Client
}

// NewNominatim builds a client for base (DefaultNominatimURL when empty).
func NewNominatim(base string, httpClient *http.Client) *Nominatim {
	if base == "" {
		base = DefaultNominatimURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: lookupTimeout}
	}
	return &Nominatim{base: strings.TrimRight(base, "/"), userAgent: defaultUserAgent, h: httpClient}
}

type nominatimReply struct {
	Address struct {
		Road          string `json:"road"`
		Pedestrian    string `json:"pedestrian"`
		Park          string `json:"park"`
		Building      string `json:"building"`
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		Residential   string `json:"residential"`
	} `json:"address"`
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lng float64) (Place, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.base+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.h.Do(req)
	if err != nil {
		return Place{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Place{}, fmt.Errorf("nominatim http %d: %s", resp.StatusCode, string(b))
	}

	var reply nominatimReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return Place{}, fmt.Errorf("decode nominatim reply: %w", err)
	}
	a := reply.Address
	p := Place{
		Street: firstNonEmpty(a.Road, a.Pedestrian, a.Park, a.Building),
		Area:   firstNonEmpty(a.Suburb, a.Neighbourhood, a.Residential),
	}
	if p.Street == "" && p.Area == "" {
		return Place{}, ErrNoAddress
	}
	return p, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
