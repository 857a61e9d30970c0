package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"ride-etl/models"
	"ride-etl/utils"
)

// NumericStats holds min, max and mean of one numeric column.
type NumericStats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
}

// QualityReport describes a cleaned trip dataset.
type QualityReport struct {
	TotalRows      int
	Missing        map[string]int
	Numeric        map[string]NumericStats
	RidesByStatus  map[string]int
	RidesByVehicle map[string]int
	CompletedRides int
	CancelledRides int
}

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger.Named("insights")}
}

// Generate builds a QualityReport from a cleaned dataset.
func (s *InsightService) Generate(ds *models.Dataset) *QualityReport {
	report := &QualityReport{
		Missing:        ds.MissingCounts(),
		Numeric:        make(map[string]NumericStats),
		RidesByStatus:  make(map[string]int),
		RidesByVehicle: make(map[string]int),
	}
	report.TotalRows = ds.Len()
	if ds.Len() == 0 {
		return report
	}

	for _, name := range models.NumericColumns {
		idx := ds.ColumnIndex(name)
		if idx < 0 {
			continue
		}
		var st NumericStats
		var total float64
		for _, row := range ds.Rows {
			cell := row[idx]
			if cell.Kind != models.KindNumber {
				continue
			}
			if st.Count == 0 || cell.Number < st.Min {
				st.Min = cell.Number
			}
			if st.Count == 0 || cell.Number > st.Max {
				st.Max = cell.Number
			}
			total += cell.Number
			st.Count++
		}
		if st.Count > 0 {
			st.Mean = round2(total / float64(st.Count))
			st.Min = round2(st.Min)
			st.Max = round2(st.Max)
			report.Numeric[name] = st
		}
	}

	status := ds.ColumnIndex(models.BookingStatusColumn)
	vehicle := ds.ColumnIndex(models.VehicleTypeColumn)
	for _, row := range ds.Rows {
		if status >= 0 {
			v := row[status].String()
			report.RidesByStatus[v]++
			lower := strings.ToLower(v)
			switch {
			case lower == "completed":
				report.CompletedRides++
			case strings.HasPrefix(lower, "cancelled"):
				report.CancelledRides++
			}
		}
		if vehicle >= 0 {
			report.RidesByVehicle[row[vehicle].String()]++
		}
	}

	s.logger.Debug("%d rows, %d completed, %d cancelled",
		report.TotalRows, report.CompletedRides, report.CancelledRides)
	return report
}

// Log writes a compact summary of r through the service logger.
func (s *InsightService) Log(r *QualityReport) {
	s.logger.Info("Rows: %d | completed: %d | cancelled: %d",
		r.TotalRows, r.CompletedRides, r.CancelledRides)
	for _, name := range models.NumericColumns {
		if st, ok := r.Numeric[name]; ok {
			s.logger.Info("%s min=%.2f max=%.2f mean=%.2f", name, st.Min, st.Max, st.Mean)
		}
	}
}

// Print renders r as a human readable report.
func (s *InsightService) Print(w io.Writer, r *QualityReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  RIDE DATA QUALITY REPORT\n")
	fmt.Fprintf(w, "%s\n\n", sep)

	fmt.Fprintf(w, "  Overview\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total rides     : %d\n", r.TotalRows)
	fmt.Fprintf(w, "  Completed rides : %d\n", r.CompletedRides)
	fmt.Fprintf(w, "  Cancelled rides : %d\n", r.CancelledRides)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Numeric Columns\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Numeric) == 0 {
		fmt.Fprintf(w, "  No numeric data available\n")
	}
	for _, name := range models.NumericColumns {
		st, ok := r.Numeric[name]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %-28s min %10.2f  max %10.2f  mean %10.2f\n",
			truncate(name, 28), st.Min, st.Max, st.Mean)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Missing Values\n")
	fmt.Fprintf(w, "  %s\n", thin)
	missing := 0
	for _, kc := range sortedCounts(r.Missing) {
		if kc.count > 0 {
			fmt.Fprintf(w, "  %-30s %d\n", truncate(kc.key, 28), kc.count)
			missing++
		}
	}
	if missing == 0 {
		fmt.Fprintf(w, "  None\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Rides by Booking Status\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.RidesByStatus) == 0 {
		fmt.Fprintf(w, "  No status data\n")
	}
	for _, kc := range sortedCounts(r.RidesByStatus) {
		fmt.Fprintf(w, "  %-30s %d\n", truncate(kc.key, 28), kc.count)
	}

	fmt.Fprintf(w, "\n%s\n\n", sep)
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders by count descending, then key.
func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
