package generation

// MaterialPosition labels where a material reference photo applies.
type MaterialPosition string

const (
	PositionCeiling MaterialPosition = "ceiling"
	PositionFloor   MaterialPosition = "floor"
	PositionWall    MaterialPosition = "wall"
)

// MaterialPhoto is a reference photo for one surface.
type MaterialPhoto struct {
	Position MaterialPosition
	Data     []byte
	MIMEType string
}

// Request carries everything one generation call needs. It lives only for
// the duration of the request.
type Request struct {
	RoomPhoto     []byte
	RoomPhotoMIME string
	Style         string
	RoomType      string
	Description   string
	Materials     []MaterialPhoto
}

// AnalysisResult is stage 1's parsed output and stage 2's input. Never
// persisted.
type AnalysisResult struct {
	Changes            []string `json:"changes"`
	Style              string   `json:"style"`
	EstimatedMaterials []string `json:"estimatedMaterials"`

	// Fallback is true when the model's text could not be parsed and the
	// result was synthesized from the raw output.
	Fallback bool `json:"-"`
}

// Result is the successful pipeline outcome returned to the client.
type Result struct {
	GeneratedImage string         `json:"generatedImage"` // base64
	Analysis       AnalysisResult `json:"analysis"`
}

// Defaults applied when the client omits optional fields.
const (
	DefaultStyle    = "modern"
	DefaultRoomType = "living room"
)
