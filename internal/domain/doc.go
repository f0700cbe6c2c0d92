// Package domain models class-suspension prediction data for Metro Manila.
//
// # Data Source
//
// Each collection cycle, an upstream collector service fetches daily weather
// for all 17 Metro Manila local government units (LGUs) from the Open-Meteo
// daily API and the current typhoon/rainfall advisory from PAGASA bulletins.
// The collector publishes one flat JSON message per cycle to the Kafka source
// topic: the target date, one advisory snapshot, and one observation record
// per (LGU, date, kind).
//
// # Observation Conventions
//
// Observations come in two kinds:
//
//	historical  observed/actual values for a past date
//	forecast    predicted values for the target date
//
// A (date, LGU, kind) triple is unique within one cycle. The same triple
// arriving twice with different values is a data-quality error and fails the
// cycle; an identical duplicate is collapsed silently (collectors retry).
//
// Units follow the Open-Meteo daily variables: precipitation in mm, wind and
// gusts in km/h, temperature and dew point in °C, humidity and cloud cover in
// percent, sea-level pressure in hPa, weather code per WMO table 4677.
// Provider-dependent fields (dew point, apparent temperature, weather code,
// precipitation hours, CAPE) may be absent on some providers and are modeled
// as optional.
//
// # Advisory Conventions
//
// One advisory snapshot is broadcast to every LGU in a cycle; it is not
// per-unit state. The tropical cyclone wind signal (0-5) in a bulletin covers
// the typhoon's whole track, so the snapshot carries both the raw bulletin
// signal and the effective signal for Metro Manila: zero unless the advisory
// flags the area as affected. No active typhoon forces both signals to zero.
//
// Rainfall warning levels form an ordinal scale used as a model input:
//
//	none 0 | yellow 1 | orange 2 | red 3
//
// # Prediction Records
//
// A cycle produces exactly one PredictionResult per configured LGU, assembled
// into a PredictionBatch with the advisory context stored once and summary
// statistics derived from the per-unit tiers. Batches are append-only history:
// never mutated after assembly, identified by a run ID, and stamped with the
// scorer's artifact version for provenance.
package domain
