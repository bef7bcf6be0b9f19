// Package normalize maps raw upstream payloads (tvapi) onto this
// repository's domain types, grounded on
// original_source/backend/trafikverket.py's parse_situation.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/trafikinfo/aggregator/domain"
	"github.com/trafikinfo/aggregator/tvapi"
)

// iconTitles maps IconId to the Swedish display title used when no
// deviation carries an explicit Header/Message.
var iconTitles = map[string]string{
	"vehicleBreakdown": "Fordonshaveri",
	"accident":         "Trafikolycka",
	"roadWork":         "Vägarbete",
	"congestion":       "Köbildning",
	"obstruction":      "Hinder på väg",
	"roadConditions":   "Väglag",
	"trafficMessage":   "Trafikmeddelande",
}

const defaultIncidentTitle = "Trafikhändelse"

// IconIDs returns every icon_id this package knows a title for, used by
// worker's icon-sync loop to know which icons to keep mirrored to disk.
func IconIDs() []string {
	out := make([]string, 0, len(iconTitles))
	for id := range iconTitles {
		out = append(out, id)
	}
	return out
}

// conditionTexts maps RoadCondition.ConditionCode to a default Swedish
// label, used when the upstream payload omits ConditionText (spec.md
// §4.2's road-condition fallback rule).
var conditionTexts = map[int]string{
	1: "Torr",
	2: "Fuktig/våt",
	3: "Snömodd/is",
	4: "Snö/is",
}

const defaultConditionText = "Väglag"

var wgs84PointRE = regexp.MustCompile(`\(([\d.]+)\s+([\d.]+)`)

// parseWGS84 extracts (lon, lat) from a WKT "POINT (lon lat)"-style string,
// matching trafikverket.py's capture-lon-then-lat regex.
func parseWGS84(wkt string) (lon, lat *float64, ok bool) {
	m := wgs84PointRE.FindStringSubmatch(wkt)
	if m == nil {
		return nil, nil, false
	}
	lonV, err1 := strconv.ParseFloat(m[1], 64)
	latV, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return nil, nil, false
	}
	return &lonV, &latV, true
}

// parseTime parses the upstream RFC3339 timestamp format; blank strings
// and parse failures both return nil (absent), never a zero time.Time.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// IncidentFromSituation merges every deviation under a Situation into one
// domain.Incident, following trafikverket.py's merge rules: descriptions,
// restriction types, and message types are deduplicated preserving first-seen
// order; geometry is taken from the first deviation that has one; the time
// window widens to the earliest start and latest end across all deviations.
func IncidentFromSituation(sit tvapi.RawSituation) *domain.Incident {
	if len(sit.Deviation) == 0 {
		return nil
	}
	first := sit.Deviation[0]

	var descriptions, restrictions, messageTypes []string
	var lat, lon *float64
	startTime := parseTime(first.StartTime)
	endTime := parseTime(first.EndTime)

	for _, d := range sit.Deviation {
		descriptions = appendUnique(descriptions, d.Description)
		restrictions = appendUnique(restrictions, d.TrafficRestrictionType)

		mtype := d.MessageCode
		if mtype == "" {
			mtype = d.MessageType
		}
		messageTypes = appendUnique(messageTypes, mtype)

		if lat == nil {
			if wkt := d.Geometry.WGS84(); wkt != "" {
				if lonV, latV, ok := parseWGS84(wkt); ok {
					lon, lat = lonV, latV
				}
			}
		}

		if dStart := parseTime(d.StartTime); dStart != nil && (startTime == nil || dStart.Before(*startTime)) {
			startTime = dStart
		}
		if dEnd := parseTime(d.EndTime); dEnd != nil && (endTime == nil || dEnd.After(*endTime)) {
			endTime = dEnd
		}
	}

	title := first.Header
	if title == "" {
		title = first.Message
	}
	if title == "" && first.IconID != "" {
		title = iconTitles[first.IconID]
	}
	if title == "" {
		if len(messageTypes) > 0 {
			title = strings.Join(messageTypes, " / ")
		} else {
			title = defaultIncidentTitle
		}
	}

	return &domain.Incident{
		ExternalID:             sit.ID,
		Title:                  title,
		Description:            strings.Join(descriptions, " | "),
		Location:               first.LocationDescriptor,
		IconID:                 first.IconID,
		MessageType:            strings.Join(messageTypes, ", "),
		SeverityCode:           first.SeverityCode,
		SeverityText:           first.SeverityText,
		RoadNumber:             first.RoadNumber,
		StartTime:              startTime,
		EndTime:                endTime,
		Latitude:               lat,
		Longitude:              lon,
		CountyNo:               firstCounty(first.CountyNo),
		TemporaryLimit:         first.TemporaryLimit,
		TrafficRestrictionType: strings.Join(restrictions, ", "),
	}
}

func firstCounty(counties []int) int {
	if len(counties) == 0 {
		return 0
	}
	return counties[0]
}

// RoadConditionFromRaw maps one upstream RoadCondition object onto the
// domain type. Unlike Situation, there's no multi-deviation merge here.
func RoadConditionFromRaw(raw tvapi.RawRoadCondition) *domain.RoadCondition {
	var lat, lon *float64
	if wkt := raw.Geometry.WGS84(); wkt != "" {
		if lonV, latV, ok := parseWGS84(wkt); ok {
			lon, lat = lonV, latV
		}
	}

	return &domain.RoadCondition{
		ID:            raw.ID,
		ConditionCode: raw.ConditionCode,
		ConditionText: conditionText(raw.ConditionCode, raw.ConditionText),
		Measure:       raw.Measure,
		Warning:       raw.Warning,
		Cause:         raw.Cause,
		LocationText:  raw.LocationText,
		RoadNumber:    raw.RoadNumber,
		StartTime:     parseTime(raw.StartTime),
		EndTime:       parseTime(raw.EndTime),
		Latitude:      lat,
		Longitude:     lon,
		CountyNo:      raw.CountyNo,
		Timestamp:     timeOrZero(parseTime(raw.Timestamp)),
	}
}

// conditionText applies spec.md §4.2's fallback: when the upstream payload
// carries no ConditionText, look it up from the fixed code table, falling
// back to a generic label for an unrecognized code.
func conditionText(code int, text string) string {
	if text != "" {
		return text
	}
	if t, ok := conditionTexts[code]; ok {
		return t
	}
	return defaultConditionText
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
