package features

// Kind selects how a raw request value is coerced into a vector slot.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindFlag
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindFlag:
		return "flag"
	}
	return "unknown"
}

const (
	Danceability     = "Danceability"
	Energy           = "Energy"
	Key              = "Key"
	Loudness         = "Loudness"
	Mode             = "Mode"
	Speechiness      = "Speechiness"
	Acousticness     = "Acousticness"
	Instrumentalness = "Instrumentalness"
	Liveness         = "Liveness"
	Valence          = "Valence"
	Tempo            = "Tempo"
	Duration         = "Duration (ms)"
	Explicit         = "Explicit"
	ReleaseYear      = "Release_Year"
	ReleaseMonth     = "Release_Month"

	// ReleaseDateKey is the request key carrying a raw year-month-day string.
	ReleaseDateKey = "release_date"
	// ReleaseDateColumn is the reference dataset column the release year and month derive from.
	ReleaseDateColumn = "Release Date"
)

// NumFeatures is the width of the model input.
const NumFeatures = 15

// Feature is one row of the coercion table.
type Feature struct {
	Name    string
	Kind    Kind
	Aliases []string
}

// Table lists every model input in training order. Reordering it silently
// corrupts predictions.
var Table = [NumFeatures]Feature{
	{Name: Danceability, Kind: KindFloat},
	{Name: Energy, Kind: KindFloat},
	{Name: Key, Kind: KindFloat},
	{Name: Loudness, Kind: KindFloat},
	{Name: Mode, Kind: KindFloat},
	{Name: Speechiness, Kind: KindFloat},
	{Name: Acousticness, Kind: KindFloat},
	{Name: Instrumentalness, Kind: KindFloat},
	{Name: Liveness, Kind: KindFloat},
	{Name: Valence, Kind: KindFloat},
	{Name: Tempo, Kind: KindFloat},
	{Name: Duration, Kind: KindFloat, Aliases: []string{"Duration(ms)"}},
	{Name: Explicit, Kind: KindFlag},
	{Name: ReleaseYear, Kind: KindInt},
	{Name: ReleaseMonth, Kind: KindInt},
}

// Names returns the canonical feature names in model order.
func Names() []string {
	names := make([]string, NumFeatures)
	for i, spec := range Table {
		names[i] = spec.Name
	}
	return names
}

// Index returns the slot of a canonical feature name.
func Index(name string) (int, bool) {
	for i, spec := range Table {
		if spec.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Vector is a fully populated model input in canonical order.
type Vector [NumFeatures]float64

// Slice copies the vector into the row shape the model consumes.
func (v Vector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// Get returns the value of a named slot.
func (v Vector) Get(name string) (float64, bool) {
	i, ok := Index(name)
	if !ok {
		return 0, false
	}
	return v[i], true
}

// Map keys the vector by feature name.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, NumFeatures)
	for i, spec := range Table {
		out[spec.Name] = v[i]
	}
	return out
}
