package capture

// Source reads frames from a Camera and preprocesses them.
type Source struct {
	camera Camera
	pre    *Preprocessor
}

// NewSource combines a camera with a preprocessor.
func NewSource(camera Camera, pre *Preprocessor) *Source {
	return &Source{camera: camera, pre: pre}
}

// Next returns the next preprocessed frame. Read failures surface as
// ErrNoFrame so callers can skip the tick; ErrEndOfStream and
// ErrCameraNotOpen are passed through.
func (s *Source) Next() (Frame, error) {
	raw, err := s.camera.ReadFrame()
	if err != nil {
		return Frame{}, err
	}
	defer raw.Close()

	return s.pre.Process(*raw)
}

// Camera returns the underlying camera.
func (s *Source) Camera() Camera {
	return s.camera
}
