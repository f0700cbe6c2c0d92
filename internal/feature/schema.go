// Package feature builds the fixed-order numeric feature vector consumed by
// the pretrained suspension classifier.
//
// The 33-field order below is a contract with the trained model artifact:
// the classifier was fit on columns in exactly this order, and a reordering
// would silently corrupt every prediction without any error. The schema is
// therefore a single named, versioned value shared by the builder and the
// scorer, and the scorer re-checks it on every call.
package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// SchemaVersion identifies the vector layout. Bump it whenever a field is
// added, removed, or moved, together with a retrained artifact.
const SchemaVersion = "v1"

// Count is the number of fields in the vector.
const Count = 33

// Field indices into the vector, in schema order.
const (
	Year = iota
	Month
	Day
	DayOfWeek // Monday=0 .. Sunday=6
	IsRainySeason
	MonthFromSYStart
	IsHoliday
	IsSchoolDay
	UnitCode
	MeanFloodRiskScore
	HistPrecipitationSumT1
	HistWindSpeedMaxT1
	HistWindGustsMaxT1
	HistPressureMinT1
	HistTemperatureMaxT1
	HistHumidityMeanT1
	HistCloudCoverMaxT1
	HistDewPointMeanT1
	HistApparentTempMaxT1
	HistWeatherCodeT1
	HistPrecipSum7d
	HistPrecipSum3d
	HistWindMax7d
	FcstPrecipitationSum
	FcstPrecipitationHours
	FcstWindSpeedMax
	FcstWindGustsMax
	FcstPressureMin
	FcstTemperatureMax
	FcstHumidityMean
	FcstCloudCoverMax
	FcstDewPointMean
	FcstCapeMax
)

// Names lists the field names in vector order. These are the training column
// names; model artifacts record them and the loader verifies the match.
var Names = [Count]string{
	"year",
	"month",
	"day",
	"day_of_week",
	"is_rainy_season",
	"month_from_sy_start",
	"is_holiday",
	"is_school_day",
	"lgu_id",
	"mean_flood_risk_score",
	"hist_precipitation_sum_t1",
	"hist_wind_speed_max_t1",
	"hist_wind_gusts_max_t1",
	"hist_pressure_msl_min_t1",
	"hist_temperature_max_t1",
	"hist_relative_humidity_mean_t1",
	"hist_cloud_cover_max_t1",
	"hist_dew_point_mean_t1",
	"hist_apparent_temperature_max_t1",
	"hist_weather_code_t1",
	"hist_precip_sum_7d",
	"hist_precip_sum_3d",
	"hist_wind_max_7d",
	"fcst_precipitation_sum",
	"fcst_precipitation_hours",
	"fcst_wind_speed_max",
	"fcst_wind_gusts_max",
	"fcst_pressure_msl_min",
	"fcst_temperature_max",
	"fcst_relative_humidity_mean",
	"fcst_cloud_cover_max",
	"fcst_dew_point_mean",
	"fcst_cape_max",
}

var indexByName = func() map[string]int {
	m := make(map[string]int, Count)
	for i, n := range Names {
		m[n] = i
	}
	return m
}()

// Index returns the vector index of a field name.
func Index(name string) (int, bool) {
	i, ok := indexByName[name]
	return i, ok
}

// Vector is a complete feature vector. The zero Vector is not valid; vectors
// are produced by Builder.Build or unmarshalled from a named-field object.
type Vector struct {
	schemaVersion string
	values        [Count]float64
}

// SchemaVersion returns the layout version the vector was built against.
func (v Vector) SchemaVersion() string { return v.schemaVersion }

// Values returns a copy of the ordered field values.
func (v Vector) Values() []float64 {
	out := make([]float64, Count)
	copy(out, v.values[:])
	return out
}

// At returns the value at a field index.
func (v Vector) At(i int) float64 { return v.values[i] }

// NewVector builds a vector from ordered values, for callers that already
// hold schema-ordered data (archive replay, fixtures). Live predictions go
// through Builder.Build instead.
func NewVector(values []float64) (Vector, error) {
	if len(values) != Count {
		return Vector{}, fmt.Errorf("feature vector has %d values, schema %s expects %d", len(values), SchemaVersion, Count)
	}
	v := newVector()
	copy(v.values[:], values)
	return v, nil
}

func newVector() Vector {
	return Vector{schemaVersion: SchemaVersion}
}

func (v *Vector) set(i int, value float64) { v.values[i] = value }

// MarshalJSON encodes the vector as an object with fields in schema order.
func (v Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(name))
		buf.WriteByte(':')
		val, err := json.Marshal(v.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a named-field object. Every schema field must be
// present and no unknown fields are tolerated: a shape mismatch here means
// the archive was produced by a different schema version.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var fields map[string]float64
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) != Count {
		return fmt.Errorf("feature vector has %d fields, schema %s expects %d", len(fields), SchemaVersion, Count)
	}
	out := newVector()
	for name, value := range fields {
		i, ok := Index(name)
		if !ok {
			return fmt.Errorf("unknown feature field %q", name)
		}
		out.set(i, value)
	}
	*v = out
	return nil
}
