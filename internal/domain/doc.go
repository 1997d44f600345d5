// Package domain models the agricultural dashboard: the environmental snapshot
// shared between pages, the user session, and the request/result records of
// every prediction capability offered by the backend.
//
// # Environmental Snapshot
//
// The dashboard page resolves a location (map click, place search or device
// coordinates), fetches the current weather for it and publishes the reading
// as the single "current weather" record. Every prediction page reads that
// record once when it is mounted and uses it to prefill overlapping form
// fields:
//
//	snapshot field   form field(s)
//	temperature      temperature
//	humidity         humidity
//	rainfall         rainfall
//	wind_speed       windSpeed
//	lat, lng         lat, lng
//
// Every numeric field is optional. A missing field leaves the form field empty.
//
// # Form Inputs
//
// Inputs are flat records of strings exactly as typed by the user. Coercion to
// numbers happens in the backend facade, which decides per capability whether
// an empty value becomes 0 or is omitted (null) from the wire payload.
//
// # Results
//
// Results are decoded backend bodies. The backend is loose about types
// (confidence may be 95.5 or "95.5%"), so result types use pointers and
// tolerant decoders, and every renderer must cope with missing fields.
package domain
