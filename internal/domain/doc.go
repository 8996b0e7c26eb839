// Package domain models hourly air-quality observations from the Beijing
// multi-site PRSA corpus and the one-hour-ahead PM2.5 forecast built on them.
//
// # Data Source
//
// The corpus is a set of CSV files, one per monitoring station, covering
// 2013-03-01 through 2017-02-28 at hourly resolution. Every file shares the
// same header:
//
//	No, year, month, day, hour, PM2.5, PM10, SO2, NO2, CO, O3,
//	TEMP, PRES, DEWP, RAIN, wd, WSPM, station
//
// Only the sixteen columns in [RequiredColumns] are read; "No" and "wd" are
// ignored. Header names are case-sensitive and column order is irrelevant.
//
// # Conventions
//
// Time:
//
//	Derived from year/month/day/hour in UTC. The corpus is Beijing local time
//	but carries no zone; UTC keeps the arithmetic free of DST and offsets.
//
// Missing values:
//
//	"NA" or an empty cell is NaN. [ForwardFill] replaces NaN with the last
//	valid value of the same station in time order. Leading gaps have no
//	predecessor and stay NaN; they are counted in a [FillReport].
//
// Units:
//
//	PM2.5, PM10, SO2, NO2, CO, O3 in µg/m³; TEMP and DEWP in °C; PRES in hPa;
//	RAIN in mm; WSPM in m/s.
//
// # Forecast Flow
//
//	Series → ExtractWindow (24 rows before target) → MinMaxScaler.Fit(series)
//	→ Transform(window) → Model.Predict → InverseTransform(PM2.5)
//
// The scaler is fitted on the selected station's full history for every
// request. It is not the scaler the model was trained with; see DESIGN.md.
package domain
