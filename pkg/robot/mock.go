package robot

import (
	"sync"

	"github.com/teslashibe/go-emo/pkg/emotions"
)

// Mock is an in-memory Body for development and tests.
type Mock struct {
	// ShowErr and PoseErr, when set, are returned by every call.
	ShowErr error
	PoseErr error

	mu     sync.Mutex
	frames []string
	poses  []emotions.Pose
}

// NewMock creates a mock body.
func NewMock() *Mock {
	return &Mock{}
}

// Show records the frame name.
func (m *Mock) Show(f emotions.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShowErr != nil {
		return m.ShowErr
	}
	m.frames = append(m.frames, f.Name)
	return nil
}

// SetPose records the pose.
func (m *Mock) SetPose(p emotions.Pose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PoseErr != nil {
		return m.PoseErr
	}
	m.poses = append(m.poses, p)
	return nil
}

// Frames returns the names of all frames shown.
func (m *Mock) Frames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.frames...)
}

// Poses returns all commanded poses.
func (m *Mock) Poses() []emotions.Pose {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]emotions.Pose(nil), m.poses...)
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
	m.poses = nil
}

var _ Body = (*Mock)(nil)
