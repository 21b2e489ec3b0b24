// Package aggregate groups traffic records by a key and averages their traffic volume.
package aggregate

import (
	"sort"
	"strconv"

	"github.com/chrissnell/trafficdash/internal/traffic"
	"gonum.org/v1/gonum/stat"
)

// Order controls how the groups of a series are arranged
type Order int

const (
	// Natural orders groups ascending by key
	Natural Order = iota
	// ByValue orders groups ascending by mean. Ties keep natural key order.
	ByValue
)

// Group is the mean traffic volume of the records sharing one key
type Group[K comparable] struct {
	Key   K       `json:"key"`
	Label string  `json:"label"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Series is an ordered list of groups. Groups with no records never appear.
type Series[K comparable] struct {
	Name   string     `json:"name"`
	Groups []Group[K] `json:"groups"`
}

// Keyer describes how to group records and how to present and order the keys
type Keyer[K comparable] struct {
	Key   func(traffic.Record) K
	Less  func(a, b K) bool
	Label func(K) string
}

// Mean groups records with k and computes the arithmetic mean traffic volume per group
func Mean[K comparable](name string, records []traffic.Record, k Keyer[K], order Order) Series[K] {
	values := make(map[K][]float64)
	var keys []K
	for _, r := range records {
		key := k.Key(r)
		if _, ok := values[key]; !ok {
			keys = append(keys, key)
		}
		values[key] = append(values[key], r.TrafficVolume)
	}

	sort.Slice(keys, func(i, j int) bool { return k.Less(keys[i], keys[j]) })

	groups := make([]Group[K], 0, len(keys))
	for _, key := range keys {
		v := values[key]
		groups = append(groups, Group[K]{
			Key:   key,
			Label: k.Label(key),
			Mean:  stat.Mean(v, nil),
			Count: len(v),
		})
	}

	if order == ByValue {
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Mean < groups[j].Mean })
	}

	return Series[K]{Name: name, Groups: groups}
}

// Len returns the number of groups
func (s Series[K]) Len() int { return len(s.Groups) }

// Empty reports whether the series has no groups
func (s Series[K]) Empty() bool { return len(s.Groups) == 0 }

// Keys returns the group keys in series order
func (s Series[K]) Keys() []K {
	out := make([]K, len(s.Groups))
	for i, g := range s.Groups {
		out[i] = g.Key
	}
	return out
}

// Labels returns the group labels in series order
func (s Series[K]) Labels() []string {
	out := make([]string, len(s.Groups))
	for i, g := range s.Groups {
		out[i] = g.Label
	}
	return out
}

// Means returns the group means in series order
func (s Series[K]) Means() []float64 {
	out := make([]float64, len(s.Groups))
	for i, g := range s.Groups {
		out[i] = g.Mean
	}
	return out
}

var (
	byHour = Keyer[int]{
		Key:   func(r traffic.Record) int { return r.Hour },
		Less:  func(a, b int) bool { return a < b },
		Label: strconv.Itoa,
	}
	byMonth = Keyer[int]{
		Key:   func(r traffic.Record) int { return r.Month },
		Less:  func(a, b int) bool { return a < b },
		Label: strconv.Itoa,
	}
	byWeekend = Keyer[bool]{
		Key:   func(r traffic.Record) bool { return r.IsWeekend },
		Less:  func(a, b bool) bool { return !a && b },
		Label: WeekendLabel,
	}
	byWeather = Keyer[string]{
		Key:   func(r traffic.Record) string { return r.Weather },
		Less:  func(a, b string) bool { return a < b },
		Label: func(s string) string { return s },
	}
)

// WeekendLabel names the is-weekend key
func WeekendLabel(weekend bool) string {
	if weekend {
		return "Weekend"
	}
	return "Weekday"
}

// Hourly is the mean traffic volume per hour of day, hours ascending
func Hourly(records []traffic.Record) Series[int] {
	return Mean("hourly", records, byHour, Natural)
}

// Weekend is the mean traffic volume for weekdays and weekends, weekdays first
func Weekend(records []traffic.Record) Series[bool] {
	return Mean("weekend", records, byWeekend, Natural)
}

// Monthly is the mean traffic volume per month, months ascending
func Monthly(records []traffic.Record) Series[int] {
	return Mean("monthly", records, byMonth, Natural)
}

// ByWeather is the mean traffic volume per weather label, ascending by mean
func ByWeather(records []traffic.Record) Series[string] {
	return Mean("weather", records, byWeather, ByValue)
}
