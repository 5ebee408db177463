package entity

import (
	"encoding/json"
	"fmt"
)

// noneSentinel clears a select's state when received (case-insensitive).
const noneSentinel = "none"

// emptyJSONSentinel is, together with the empty payload, a strict no-op
// for update state messages.
const emptyJSONSentinel = "{}"

// Field names recognised in update state payloads. Absent fields are
// left untouched (sparse merge); unknown fields are ignored.
const (
	fieldInstalledVersion = "installed_version"
	fieldLatestVersion    = "latest_version"
	fieldTitle            = "title"
	fieldReleaseSummary   = "release_summary"
	fieldReleaseURL       = "release_url"
	fieldEntityPicture    = "entity_picture"
)

var updateFields = []string{
	fieldInstalledVersion,
	fieldLatestVersion,
	fieldTitle,
	fieldReleaseSummary,
	fieldReleaseURL,
	fieldEntityPicture,
}

// decodeUpdatePayload maps an update state payload to its recognised
// fields using a three-way fallback:
//
//  1. Valid JSON object: recognised keys are extracted, everything else
//     ignored.
//  2. Valid JSON but not an object (string, number, array): the whole
//     payload is treated as the installed version.
//  3. Not JSON at all: likewise, the raw payload is the installed
//     version.
//
// Scalar JSON values are stringified; null and structured values inside
// an object are skipped.
func decodeUpdatePayload(payload string) map[string]string {
	var decoded any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return map[string]string{fieldInstalledVersion: payload}
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return map[string]string{fieldInstalledVersion: payload}
	}

	fields := make(map[string]string)
	for _, key := range updateFields {
		raw, present := obj[key]
		if !present {
			continue
		}
		switch v := raw.(type) {
		case string:
			fields[key] = v
		case float64:
			fields[key] = trimFloat(v)
		case bool:
			fields[key] = fmt.Sprintf("%t", v)
		default:
			// null, nested objects and arrays carry no usable value.
		}
	}
	return fields
}

// trimFloat renders a JSON number without a spurious trailing ".0" for
// integral values, so a payload of 2 round-trips as "2".
func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
