// Package reference holds the static lookup tables the booking form is keyed on. Every index
// exposed to users is 1-based, matching the form's own numbering.
package reference

import (
	"fmt"
	"strconv"
	"strings"
	"thsr-booker/internal/components/tableutil"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
)

var Stations = []string{
	"Nangang", "Taipei", "Banqiao", "Taoyuan", "Hsinchu", "Miaoli",
	"Taichung", "Changhua", "Yunlin", "Chiayi", "Tainan", "Zuoying",
}

// TimeTable lists the departure time tokens the search form accepts, in order.
var TimeTable = []string{
	"1201A", "1230A", "600A", "630A", "700A", "730A", "800A", "830A", "900A", "930A", "1000A",
	"1030A", "1100A", "1130A", "1200N", "1230P", "100P", "130P", "200P", "230P", "300P", "330P",
	"400P", "430P", "500P", "530P", "600P", "630P", "700P", "730P", "800P", "830P", "900P", "930P",
	"1000P", "1030P", "1100P", "1130P",
}

const (
	DefaultFromStation = 2
	DefaultToStation   = 12
	DefaultTimeSlot    = 10
)

// Station returns the name of a 1-based station index.
func Station(idx int) (string, bool) {
	if idx < 1 || idx > len(Stations) {
		return "", false
	}
	return Stations[idx-1], true
}

// TimeSlot returns the token of a 1-based time table index.
func TimeSlot(idx int) (string, bool) {
	if idx < 1 || idx > len(TimeTable) {
		return "", false
	}
	return TimeTable[idx-1], true
}

// DisplayTime converts a time token such as "1230A" or "100P" into 24-hour "HH:MM".
// A-suffixed tokens in the 12 o'clock hour are just after midnight, P-suffixed tokens other
// than 1230P move into the afternoon and N (noon) is left alone.
func DisplayTime(token string) (string, error) {
	if len(token) < 4 || len(token) > 5 {
		return "", fmt.Errorf("invalid time token %q", token)
	}
	suffix := token[len(token)-1]
	value, err := strconv.Atoi(token[:len(token)-1])
	if err != nil {
		return "", fmt.Errorf("invalid time token %q: %w", token, err)
	}

	switch suffix {
	case 'A':
		if value/100 == 12 {
			value %= 1200
		}
	case 'P':
		if value != 1230 {
			value += 1200
		}
	case 'N':
	default:
		return "", fmt.Errorf("invalid time token suffix %q", token)
	}

	formatted := fmt.Sprintf("%04d", value)
	return formatted[:2] + ":" + formatted[2:], nil
}

const stationSimilarityThreshold = 0.85

// FindStation resolves a station given either as its 1-based index or as its name. Names are
// matched case-insensitively first and then by Jaro-Winkler similarity, to accept typos like
// "Zuouing".
func FindStation(query string) (int, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, false
	}
	if idx, err := strconv.Atoi(query); err == nil {
		_, ok := Station(idx)
		return idx, ok
	}

	normalized := strings.ToLower(query)
	for i, name := range Stations {
		if strings.ToLower(name) == normalized {
			return i + 1, true
		}
	}

	bestIdx := 0
	bestScore := 0.0
	for i, name := range Stations {
		score := matchr.JaroWinkler(normalized, strings.ToLower(name), false)
		if score > bestScore {
			bestScore = score
			bestIdx = i + 1
		}
	}
	if bestScore < stationSimilarityThreshold {
		return 0, false
	}
	return bestIdx, true
}

// RenderStations renders the station list as a table of 1-based index and name.
func RenderStations() string {
	t := tableutil.New()
	t.AppendHeader(table.Row{"#", "Station"})
	for i, name := range Stations {
		t.AppendRow(table.Row{i + 1, name})
	}
	return t.Render()
}

// RenderTimeTable renders the time slots as a table of 1-based index and 24-hour time.
func RenderTimeTable() string {
	t := tableutil.New()
	t.AppendHeader(table.Row{"#", "Departure"})
	for i, token := range TimeTable {
		display, err := DisplayTime(token)
		if err != nil {
			display = token
		}
		t.AppendRow(table.Row{i + 1, display})
	}
	return t.Render()
}
