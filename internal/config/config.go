// Package config loads the pipeline's JSON startup configuration (spec
// §6): the top-level {dir, start_month, end_month} document plus the
// stock-info map, and exposes the stock-info records through a TTL
// cache keyed by asset code, matching the teacher's
// internal/marketdata.Service use of patrickmn/go-cache
// (service_core.go: "Cache: cache.New(5*time.Minute, 10*time.Minute)").
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	cache "github.com/patrickmn/go-cache"

	perr "github.com/typhfeng/stk-sub000/pkg/errors"
)

// Config is the top-level startup document.
type Config struct {
	Dir        string `json:"dir"`
	StartMonth string `json:"start_month"`
	EndMonth   string `json:"end_month"`

	start time.Time
	end   time.Time
}

// StockInfo is one entry of the stock-info map (spec §6): code →
// {name, industry, sub_industry, ipo_date, delist_date}.
type StockInfo struct {
	Code         string `json:"-"`
	Name         string `json:"name"`
	Industry     string `json:"industry"`
	SubIndustry  string `json:"sub_industry"`
	IPODate      string `json:"ipo_date"`
	DelistDate   string `json:"delist_date"`

	ipo    time.Time
	delist time.Time // zero value means active
}

// Active reports whether the stock had not yet delisted as of asOf.
// An empty delist_date means active for the whole configured window.
func (s StockInfo) Active(asOf time.Time) bool {
	if s.delist.IsZero() {
		return true
	}
	return asOf.Before(s.delist) || asOf.Equal(s.delist)
}

const monthLayout = "2006-01"

func parseMonth(s string) (time.Time, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// parseFlexibleDate accepts either "YYYY-MM" or "YYYY-MM-DD" per spec
// §6's ipo_date/delist_date format note. An empty string returns the
// zero time with ok=false (caller treats that as "no date").
func parseFlexibleDate(s string) (t time.Time, ok bool, err error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	if len(s) == len("2006-01-02") {
		t, err = time.Parse("2006-01-02", s)
	} else {
		t, err = time.Parse(monthLayout, s)
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// LoadConfig reads and validates the top-level config document.
// Any parse failure is a ConfigInvalid error — fatal, aborted before
// workers start, per spec §7.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrap(perr.ConfigInvalid, err, "read config "+path)
	}
	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, perr.Wrap(perr.ConfigInvalid, err, "parse config "+path)
	}
	c.start, err = parseMonth(c.StartMonth)
	if err != nil {
		return nil, perr.Wrap(perr.ConfigInvalid, err, "start_month").WithDetail("value", c.StartMonth)
	}
	c.end, err = parseMonth(c.EndMonth)
	if err != nil {
		return nil, perr.Wrap(perr.ConfigInvalid, err, "end_month").WithDetail("value", c.EndMonth)
	}
	if c.end.Before(c.start) {
		return nil, perr.New(perr.ConfigInvalid, fmt.Sprintf(
			"end_month %s precedes start_month %s", c.EndMonth, c.StartMonth))
	}
	if c.Dir == "" {
		return nil, perr.New(perr.ConfigInvalid, "dir must not be empty")
	}
	return &c, nil
}

// Months returns the inclusive [start_month, end_month] boundary, for
// callers that iterate the archive tree.
func (c *Config) Months() (start, end time.Time) { return c.start, c.end }

// StockInfoStore is the TTL-cached view over the stock-info map loaded
// from config. Parsed records are cached by asset code with a 5-minute
// expiry and a 10-minute cleanup interval, mirroring the teacher's
// convention; entries are loaded once by LoadStockInfo and are not
// reloaded after they expire, so Lookup reports an expired code as
// unknown.
type StockInfoStore struct {
	cache *cache.Cache
}

// LoadStockInfo parses the stock-info map document and returns a
// populated store. A malformed date on any single entry is
// ConfigInvalid and aborts the whole load — per spec §7, config errors
// are fatal before workers start, not skipped per-entry the way a
// per-archive error would be.
func LoadStockInfo(path string) (*StockInfoStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrap(perr.ConfigInvalid, err, "read stock info "+path)
	}
	var raw2 map[string]StockInfo
	if err := json.Unmarshal(raw, &raw2); err != nil {
		return nil, perr.Wrap(perr.ConfigInvalid, err, "parse stock info "+path)
	}

	store := &StockInfoStore{cache: cache.New(5*time.Minute, 10*time.Minute)}
	for code, info := range raw2 {
		info.Code = code
		if t, ok, err := parseFlexibleDate(info.IPODate); err != nil {
			return nil, perr.Wrap(perr.ConfigInvalid, err, "ipo_date for "+code)
		} else if ok {
			info.ipo = t
		}
		if t, ok, err := parseFlexibleDate(info.DelistDate); err != nil {
			return nil, perr.Wrap(perr.ConfigInvalid, err, "delist_date for "+code)
		} else if ok {
			info.delist = t
		}
		store.cache.SetDefault(code, info)
	}
	return store, nil
}

// Lookup returns the StockInfo for code, and ok=false if the code is
// unknown (or its cache entry has expired).
func (s *StockInfoStore) Lookup(code string) (StockInfo, bool) {
	v, found := s.cache.Get(code)
	if !found {
		return StockInfo{}, false
	}
	return v.(StockInfo), true
}

// Len reports the number of cached entries, primarily for tests.
func (s *StockInfoStore) Len() int {
	return s.cache.ItemCount()
}
