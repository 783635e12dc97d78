package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"waste-process-api/pkg/models"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/singleflight"
)

// historicalColumns lists the accepted header spellings per field, lower-cased.
var historicalColumns = []struct {
	field      string
	candidates []string
}{
	{"country", []string{"country", "país", "pais"}},
	{"year", []string{"year", "año"}},
	{"food_category", []string{"food category", "food_category", "category"}},
	{"total_waste_tons", []string{"total waste (tons)", "total_waste_tons"}},
	{"economic_loss_million", []string{"economic loss (million $)", "economic_loss_million"}},
	{"avg_waste_per_capita_kg", []string{"avg waste per capita (kg)", "avg_waste_per_capita_kg"}},
	{"population_million", []string{"population (million)", "population_million"}},
	{"household_waste_pct", []string{"household waste (%)", "household_waste_pct"}},
}

type cachedTable struct {
	version string
	records []models.HistoricalRecord
}

// HistoricalDataService loads the food-waste dataset from a local CSV/XLSX
// file or an s3:// object. Parsed tables are cached per location and reused
// until the source changes; callers must treat the returned slice as read-only.
type HistoricalDataService struct {
	location string
	objects  ObjectStore
	cache    *lru.Cache[string, cachedTable]
	fetches  singleflight.Group
}

// NewHistoricalDataService creates a loader for location. objects may be nil
// when location is a local path.
func NewHistoricalDataService(location string, objects ObjectStore) (*HistoricalDataService, error) {
	cache, err := lru.New[string, cachedTable](8)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(location, "s3://") && objects == nil {
		return nil, fmt.Errorf("dataset %s requires an object store", location)
	}
	return &HistoricalDataService{
		location: location,
		objects:  objects,
		cache:    cache,
	}, nil
}

// Location returns the configured dataset location.
func (s *HistoricalDataService) Location() string { return s.location }

// Load returns the full historical table. Any read or parse failure wraps
// ErrDataUnavailable.
func (s *HistoricalDataService) Load(ctx context.Context) ([]models.HistoricalRecord, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, s.location, err)
	}
	return records, nil
}

func (s *HistoricalDataService) load(ctx context.Context) ([]models.HistoricalRecord, error) {
	version, err := s.version(ctx)
	if err != nil {
		return nil, err
	}
	if records, ok := s.cached(version); ok {
		return records, nil
	}

	// 同じ版の取得は一回にまとめる
	v, err, _ := s.fetches.Do(version, func() (interface{}, error) {
		if records, ok := s.cached(version); ok {
			return records, nil
		}
		data, err := s.read(ctx)
		if err != nil {
			return nil, err
		}
		records, err := ParseHistoricalData(data, isSpreadsheet(s.location))
		if err != nil {
			return nil, err
		}
		s.cache.Add(s.location, cachedTable{version: version, records: records})
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.HistoricalRecord), nil
}

func (s *HistoricalDataService) cached(version string) ([]models.HistoricalRecord, bool) {
	if table, ok := s.cache.Get(s.location); ok && table.version == version {
		return table.records, true
	}
	return nil, false
}

// version identifies the current content of the source without reading it.
func (s *HistoricalDataService) version(ctx context.Context) (string, error) {
	if bucket, key, ok := parseS3Location(s.location); ok {
		return s.objects.Version(ctx, bucket, key)
	}
	info, err := os.Stat(s.location)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()), nil
}

func (s *HistoricalDataService) read(ctx context.Context) ([]byte, error) {
	if bucket, key, ok := parseS3Location(s.location); ok {
		return s.objects.Fetch(ctx, bucket, key)
	}
	return os.ReadFile(s.location)
}

// ParseHistoricalData parses CSV (or XLSX when spreadsheet is true) content
// into historical records. The first row must be a header containing all
// eight dataset columns.
func ParseHistoricalData(data []byte, spreadsheet bool) ([]models.HistoricalRecord, error) {
	var rows [][]string
	if spreadsheet {
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("xlsx: %w", err)
		}
		defer f.Close()
		rows, err = f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("xlsx: %w", err)
		}
	} else {
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		var err error
		rows, err = r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
	}
	return parseHistoricalRows(rows)
}

func parseHistoricalRows(rows [][]string) ([]models.HistoricalRecord, error) {
	if len(rows) == 0 {
		return nil, errors.New("dataset: no header row")
	}

	header := normalizeHeader(rows[0])
	idx := make(map[string]int, len(historicalColumns))
	var missing []string
	for _, col := range historicalColumns {
		i := findIndex(header, col.candidates)
		if i == -1 {
			missing = append(missing, col.candidates[0])
			continue
		}
		idx[col.field] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset: missing required columns: %s", strings.Join(missing, ", "))
	}

	records := make([]models.HistoricalRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		line := n + 2
		cell := func(field string) string {
			i := idx[field]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		var rec models.HistoricalRecord
		var err error
		rec.Country = cell("country")
		rec.FoodCategory = cell("food_category")
		if rec.Year, err = parseYear(cell("year")); err != nil {
			return nil, fmt.Errorf("dataset: row %d: year: %w", line, err)
		}
		numbers := []struct {
			field string
			dst   *float64
		}{
			{"total_waste_tons", &rec.TotalWasteTons},
			{"economic_loss_million", &rec.EconomicLossMillion},
			{"avg_waste_per_capita_kg", &rec.AvgWastePerCapitaKg},
			{"population_million", &rec.PopulationMillion},
			{"household_waste_pct", &rec.HouseholdWastePct},
		}
		for _, num := range numbers {
			if *num.dst, err = parseNumber(cell(num.field)); err != nil {
				return nil, fmt.Errorf("dataset: row %d: %s: %w", line, num.field, err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// FilterHistory returns the rows of records matching country and category,
// compared case-insensitively, in dataset order. The result is never nil.
func FilterHistory(records []models.HistoricalRecord, country, category string) []models.HistoricalPoint {
	country = strings.TrimSpace(country)
	category = strings.TrimSpace(category)
	out := make([]models.HistoricalPoint, 0)
	for _, r := range records {
		if !strings.EqualFold(strings.TrimSpace(r.Country), country) ||
			!strings.EqualFold(strings.TrimSpace(r.FoodCategory), category) {
			continue
		}
		out = append(out, models.HistoricalPoint{
			Year:                r.Year,
			TotalWasteTons:      r.TotalWasteTons,
			EconomicLossMillion: r.EconomicLossMillion,
		})
	}
	return out
}

// Utility helpers

func normalizeHeader(hdr []string) []string {
	out := make([]string, len(hdr))
	for i, v := range hdr {
		// Remove UTF-8 BOM if present, then trim and lowercase
		v = strings.TrimPrefix(v, "\ufeff")
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func findIndex(hdr []string, candidates []string) int {
	for i, v := range hdr {
		for _, c := range candidates {
			if v == c {
				return i
			}
		}
	}
	return -1
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

// parseYear accepts "2019" as well as spreadsheet renderings like "2019.0".
func parseYear(s string) (int, error) {
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %s", s)
	}
	return int(f), nil
}

func isSpreadsheet(location string) bool {
	return strings.HasSuffix(strings.ToLower(location), ".xlsx")
}

// parseS3Location splits "s3://bucket/key/path.csv" into bucket and key.
func parseS3Location(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
