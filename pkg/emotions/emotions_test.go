package emotions

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"
)

type stubDecoder struct{}

func (stubDecoder) DecodeFrame(path string) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

// recorder captures display and actuator calls in order.
type recorder struct {
	mu       sync.Mutex
	frames   []string
	poses    []Pose
	events   []string
	poseErr  error
	clipPath string
}

func (r *recorder) Show(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f.Name)
	return nil
}

func (r *recorder) SetPose(p Pose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poses = append(r.poses, p)
	return r.poseErr
}

func (r *recorder) PlayFile(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clipPath = path
	r.events = append(r.events, "clip")
	return nil
}

func (r *recorder) Speak(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "say:"+text)
	return nil
}

func (r *recorder) steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Step, len(r.poses))
	for i := range r.poses {
		out[i] = Step{Frame: r.frames[i], Pose: r.poses[i]}
	}
	return out
}

func writeFrames(t *testing.T, root string, e Emotion, names ...string) {
	t.Helper()
	dir := filepath.Join(root, e.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestPlayer(t *testing.T, root string, rec *recorder) (*Player, *int) {
	t.Helper()
	sleeps := 0
	opts := DefaultPlayerOptions()
	opts.ShushClip = "shush.mp3"
	opts.Sleep = func(time.Duration) { sleeps++ }
	return NewPlayer(NewLibrary(root, stubDecoder{}), rec, rec, rec, rec, opts), &sleeps
}

func TestParseEmotion(t *testing.T) {
	for _, e := range All() {
		got, err := ParseEmotion(e.String())
		if err != nil || got != e {
			t.Errorf("ParseEmotion(%q) = %v, %v", e.String(), got, err)
		}
	}

	got, err := ParseEmotion("  HaPPy ")
	if err != nil || got != Happy {
		t.Errorf("expected case-insensitive trimmed parse, got %v, %v", got, err)
	}

	got, err = ParseEmotion("xyz")
	if !errors.Is(err, ErrUnknownEmotion) {
		t.Errorf("expected ErrUnknownEmotion, got %v", err)
	}
	if got != Neutral {
		t.Errorf("unknown tag should fall back to neutral, got %v", got)
	}
}

func TestPoses(t *testing.T) {
	r := DefaultPulseRange

	happy, err := Poses(Happy, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(happy) != 20 || happy[0] != (Pose{600, 600}) || happy[19] != (Pose{150, 150}) {
		t.Errorf("unexpected happy table: %v", happy)
	}

	neutral, _ := Poses(Neutral, r)
	if neutral[0] != (Pose{300, 300}) {
		t.Errorf("neutral should start at half range, got %v", neutral[0])
	}

	dizzy, _ := Poses(Dizzy, r)
	if len(dizzy) != 10 || dizzy[0] != (Pose{600, 150}) || dizzy[1] != (Pose{150, 600}) {
		t.Errorf("unexpected dizzy table: %v", dizzy)
	}

	sleep, _ := Poses(Sleep, r)
	for _, p := range sleep {
		if p != (Pose{150, 150}) {
			t.Fatalf("sleep should rest at min, got %v", p)
		}
	}

	if _, err := Poses(Shush, r); !errors.Is(err, ErrNotAnimated) {
		t.Errorf("expected ErrNotAnimated for shush, got %v", err)
	}

	// Half of a narrow range clamps to the minimum.
	narrow, _ := Poses(Blink, PulseRange{Min: 400, Max: 600})
	if narrow[0] != (Pose{400, 400}) {
		t.Errorf("expected clamp to 400, got %v", narrow[0])
	}
}

func TestSequenceCyclesFrames(t *testing.T) {
	poses := []Pose{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}}
	steps, err := Sequence([]string{"a.png", "b.png"}, poses)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.png", "b.png", "a.png", "b.png", "a.png"}
	for i, st := range steps {
		if st.Frame != want[i] || st.Pose != poses[i] {
			t.Errorf("step %d = %+v", i, st)
		}
	}

	// Extra frames beyond the pose table are not shown.
	steps, _ = Sequence([]string{"a", "b", "c"}, poses[:2])
	if len(steps) != 2 {
		t.Errorf("expected 2 steps, got %d", len(steps))
	}

	if _, err := Sequence(nil, poses); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
}

func TestLibraryFrameNames(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, root, Happy, "010.png", "002.jpg", "001.PNG", "notes.txt")

	lib := NewLibrary(root, stubDecoder{})
	names, err := lib.FrameNames(Happy)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"001.PNG", "002.jpg", "010.png"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("FrameNames = %v, want %v", names, want)
	}

	if _, err := lib.FrameNames(Sad); !errors.Is(err, ErrNoFrames) {
		t.Errorf("missing dir: expected ErrNoFrames, got %v", err)
	}

	writeFrames(t, root, Angry)
	if _, err := lib.FrameNames(Angry); !errors.Is(err, ErrNoFrames) {
		t.Errorf("empty dir: expected ErrNoFrames, got %v", err)
	}

	if got := lib.Available(); !reflect.DeepEqual(got, []Emotion{Happy}) {
		t.Errorf("Available = %v", got)
	}
}

func TestRenderVisitsEveryStepInOrder(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, root, Excited, "f0.png", "f1.png", "f2.png", "f3.png", "f4.png", "f5.png", "f6.png", "f7.png", "f8.png", "f9.png")

	for _, loops := range []int{1, 2, 3} {
		rec := &recorder{}
		p, sleeps := newTestPlayer(t, root, rec)

		if err := p.Render(context.Background(), Excited, loops); err != nil {
			t.Fatalf("Render: %v", err)
		}

		one, _ := p.Steps(Excited)
		var want []Step
		for i := 0; i < loops; i++ {
			want = append(want, one...)
		}
		if got := rec.steps(); !reflect.DeepEqual(got, want) {
			t.Errorf("loops=%d: got %d steps, want %d in authored order", loops, len(got), len(want))
		}
		if *sleeps != len(want) {
			t.Errorf("loops=%d: expected one hold per step, got %d", loops, *sleeps)
		}
	}
}

func TestRenderIsRepeatable(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, root, Neutral, "a.png", "b.png", "c.png")

	rec := &recorder{}
	p, _ := newTestPlayer(t, root, rec)

	if err := p.Render(context.Background(), Neutral, 1); err != nil {
		t.Fatal(err)
	}
	first := rec.steps()

	rec2 := &recorder{}
	p.display, p.actuator = rec2, rec2
	if err := p.Render(context.Background(), Neutral, 1); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, rec2.steps()) {
		t.Error("two renders of the same emotion produced different sequences")
	}
}

func TestRenderWithoutFramesIsNoop(t *testing.T) {
	rec := &recorder{}
	p, sleeps := newTestPlayer(t, t.TempDir(), rec)

	err := p.Render(context.Background(), Sad, 2)
	if !errors.Is(err, ErrNoFrames) {
		t.Fatalf("expected ErrNoFrames, got %v", err)
	}
	if len(rec.poses) != 0 || len(rec.frames) != 0 || *sleeps != 0 {
		t.Error("peripherals should not be touched without frames")
	}
}

func TestRenderContinuesOnPeripheralError(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, root, Sleep, "z.png")

	rec := &recorder{poseErr: errors.New("bus busy")}
	p, _ := newTestPlayer(t, root, rec)

	err := p.Render(context.Background(), Sleep, 1)
	if err == nil {
		t.Fatal("expected joined peripheral error")
	}
	if len(rec.poses) != 20 {
		t.Errorf("expected all 20 steps despite errors, got %d", len(rec.poses))
	}
}

func TestRenderShush(t *testing.T) {
	rec := &recorder{}
	p, sleeps := newTestPlayer(t, t.TempDir(), rec)

	if err := p.Render(context.Background(), Shush, 2); err != nil {
		t.Fatal(err)
	}
	want := []string{"clip", "say:Please be quiet."}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
	if rec.clipPath != "shush.mp3" {
		t.Errorf("clip = %q", rec.clipPath)
	}
	if len(rec.poses) != 0 || *sleeps != 0 {
		t.Error("shush must not step frames or poses")
	}
}

func TestRenderStopsOnCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, root, Happy, "a.png")

	rec := &recorder{}
	p, _ := newTestPlayer(t, root, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Render(ctx, Happy, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
