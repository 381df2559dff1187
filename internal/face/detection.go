package face

import "errors"

var (
	// ErrNoFaceDetected is returned when a registration image has no face.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrMultipleFacesDetected is returned when a registration image has more than one face.
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
)

// Box is a detection bounding box in source image pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one face found by the external detector.
type Detection struct {
	Box       Box       `json:"box"`
	Embedding Embedding `json:"embedding"`
}

// SingleFace enforces the registration policy: exactly one face must be visible.
func SingleFace(detections []Detection) (Detection, error) {
	switch len(detections) {
	case 0:
		return Detection{}, ErrNoFaceDetected
	case 1:
		if err := detections[0].Embedding.Validate(); err != nil {
			return Detection{}, err
		}
		return detections[0], nil
	default:
		return Detection{}, ErrMultipleFacesDetected
	}
}
